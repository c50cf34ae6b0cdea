// Package dotenv resolves secrets from environment variables.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/unifiedui/chat-bridge/internal/core/vault"
)

const scheme = "dotenv://"

// Vault reads "dotenv://NAME" references from the environment. Values set
// with Put take precedence.
type Vault struct {
	mu        sync.RWMutex
	overrides map[string]string
}

var _ vault.Vault = (*Vault)(nil)

// NewVault creates a new dotenv vault.
func NewVault() *Vault {
	return &Vault{overrides: make(map[string]string)}
}

// Put sets an in-memory value for key.
func (v *Vault) Put(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overrides[key] = value
}

// GetSecret resolves a reference.
func (v *Vault) GetSecret(_ context.Context, ref string) (string, error) {
	if vault.IsReference(ref) && !strings.HasPrefix(ref, scheme) {
		return "", fmt.Errorf("unsupported secret reference: %s", ref)
	}
	key := strings.TrimPrefix(ref, scheme)
	if key == "" {
		return "", fmt.Errorf("secret reference is empty")
	}

	v.mu.RLock()
	value, ok := v.overrides[key]
	v.mu.RUnlock()
	if ok {
		return value, nil
	}

	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

// Ping always succeeds.
func (v *Vault) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (v *Vault) Close() error {
	return nil
}
