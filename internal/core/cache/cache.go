// Package cache defines the key/value cache used for session credentials
// and shared state snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Type represents the type of cache.
type Type string

const (
	// TypeRedis represents a Redis cache.
	TypeRedis Type = "redis"
)

// Client defines the cache operations.
type Client interface {
	// Get retrieves a value by key. Returns nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. If ttl is 0, the default TTL is used.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes all keys matching the glob pattern and returns
	// the number of keys deleted.
	DeletePattern(ctx context.Context, pattern string) (int64, error)

	// Ping checks if the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

// Key prefixes.
const (
	snapshotPrefix   = "chatbridge:snapshot"
	credentialPrefix = "chatbridge:cred"
)

// SnapshotKey is the key of a session's shared state snapshot.
func SnapshotKey(sessionID string) string {
	return fmt.Sprintf("%s:%s", snapshotPrefix, sessionID)
}

// CredentialKey is the key of the bearer token forwarded for a thread.
func CredentialKey(sessionID, threadID string) string {
	return fmt.Sprintf("%s:%s:%s", credentialPrefix, sessionID, threadID)
}

// CredentialPattern matches every credential key of a session.
func CredentialPattern(sessionID string) string {
	return fmt.Sprintf("%s:%s:*", credentialPrefix, sessionID)
}

// GetJSON reads a key and decodes it into v. It reports false when the key
// does not exist.
func GetJSON(ctx context.Context, c Client, key string, v any) (bool, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode cached value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Client, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
