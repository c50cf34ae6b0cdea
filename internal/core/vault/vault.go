// Package vault defines the secret lookup used to resolve key material.
package vault

import (
	"context"
	"strings"
)

// Type represents the type of vault.
type Type string

const (
	// TypeDotEnv resolves secrets from the process environment.
	TypeDotEnv Type = "dotenv"
)

// Vault resolves secrets by reference.
type Vault interface {
	// GetSecret returns the secret behind ref or an error if it is unknown.
	GetSecret(ctx context.Context, ref string) (string, error)

	// Ping checks if the vault is reachable.
	Ping(ctx context.Context) error

	// Close releases vault resources.
	Close() error
}

// IsReference reports whether value names a secret ("scheme://key") rather
// than holding it inline.
func IsReference(value string) bool {
	return strings.Contains(value, "://")
}
