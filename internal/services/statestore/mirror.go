package statestore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/chat-bridge/internal/core/cache"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

const saveTimeout = 2 * time.Second

// Mirror persists session snapshots in the cache so a reopened session
// resumes its explanation panel.
type Mirror struct {
	cache  cache.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewMirror creates a mirror. A nil cache disables persistence.
func NewMirror(c cache.Client, ttl time.Duration, logger *zerolog.Logger) *Mirror {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Mirror{cache: c, ttl: ttl, logger: l}
}

// Load returns the saved snapshot of a session, if any.
func (m *Mirror) Load(ctx context.Context, sessionID string) (models.SharedStateSnapshot, bool, error) {
	var snap models.SharedStateSnapshot
	if m.cache == nil {
		return snap, false, nil
	}

	found, err := cache.GetJSON(ctx, m.cache, cache.SnapshotKey(sessionID), &snap)
	if err != nil {
		return models.SharedStateSnapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, found, nil
}

// Save writes a snapshot for a session.
func (m *Mirror) Save(ctx context.Context, sessionID string, snap models.SharedStateSnapshot) error {
	if m.cache == nil {
		return nil
	}
	if err := cache.SetJSON(ctx, m.cache, cache.SnapshotKey(sessionID), snap, m.ttl); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Delete removes the saved snapshot of a session.
func (m *Mirror) Delete(ctx context.Context, sessionID string) error {
	if m.cache == nil {
		return nil
	}
	if _, err := m.cache.Delete(ctx, cache.SnapshotKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Attach saves every change of store under sessionID until the returned
// function is called. Save failures are logged.
func (m *Mirror) Attach(sessionID string, store *Store) func() {
	return store.Subscribe(func(snap models.SharedStateSnapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if err := m.Save(ctx, sessionID, snap); err != nil {
			m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to mirror shared state")
		}
	})
}
