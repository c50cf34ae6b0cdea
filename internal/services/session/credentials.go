// Package session keeps the bearer tokens forwarded to the agent so that
// background continuations can authenticate after the originating request
// has returned.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/unifiedui/chat-bridge/internal/core/cache"
	"github.com/unifiedui/chat-bridge/internal/pkg/encryption"
)

// DefaultCredentialTTL bounds how long a forwarded token is kept.
const DefaultCredentialTTL = time.Hour

// ErrNoCredential is returned when no token is cached for a thread.
var ErrNoCredential = errors.New("no credential cached for thread")

// Credentials stores tokens per (session, thread).
type Credentials interface {
	// Put caches the token of a thread, replacing any previous one.
	Put(ctx context.Context, sessionID, threadID, token string) error

	// Get returns the token of a thread or ErrNoCredential.
	Get(ctx context.Context, sessionID, threadID string) (string, error)

	// Forget removes the token of a thread.
	Forget(ctx context.Context, sessionID, threadID string) error

	// ForgetSession removes every token of a session.
	ForgetSession(ctx context.Context, sessionID string) error
}

// Config holds the configuration for the credentials cache.
type Config struct {
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration
}

type credentials struct {
	cacheClient cache.Client
	encryptor   encryption.Encryptor
	ttl         time.Duration
}

// NewCredentials creates an encrypted credentials cache.
func NewCredentials(cfg *Config) (Credentials, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCredentialTTL
	}

	return &credentials{
		cacheClient: cfg.CacheClient,
		encryptor:   cfg.Encryptor,
		ttl:         ttl,
	}, nil
}

func (c *credentials) Put(ctx context.Context, sessionID, threadID, token string) error {
	key := cache.CredentialKey(sessionID, threadID)

	sealed, err := c.encryptor.Encrypt([]byte(token), []byte(key))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	if err := c.cacheClient.Set(ctx, key, []byte(sealed), c.ttl); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Get treats entries that no longer decrypt (for example after a key
// rotation) as missing and drops them.
func (c *credentials) Get(ctx context.Context, sessionID, threadID string) (string, error) {
	key := cache.CredentialKey(sessionID, threadID)

	sealed, err := c.cacheClient.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	if sealed == nil {
		return "", ErrNoCredential
	}

	token, err := c.encryptor.Decrypt(string(sealed), []byte(key))
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("thread_id", threadID).Msg("dropping unreadable credential")
		_, _ = c.cacheClient.Delete(ctx, key)
		return "", ErrNoCredential
	}

	return string(token), nil
}

func (c *credentials) Forget(ctx context.Context, sessionID, threadID string) error {
	if _, err := c.cacheClient.Delete(ctx, cache.CredentialKey(sessionID, threadID)); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (c *credentials) ForgetSession(ctx context.Context, sessionID string) error {
	if _, err := c.cacheClient.DeletePattern(ctx, cache.CredentialPattern(sessionID)); err != nil {
		return fmt.Errorf("failed to delete session credentials: %w", err)
	}
	return nil
}
