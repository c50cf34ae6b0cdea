package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/chat-bridge/internal/core/docdb"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

const (
	writeTimeout = 5 * time.Second

	// DefaultHistoryLimit applies when History is called without a limit.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps a single History page.
	MaxHistoryLimit = 200
)

// Config holds the configuration for an Archiver.
type Config struct {
	Collection docdb.MessagesCollection
	BufferSize int
	Workers    int
	Logger     *zerolog.Logger
}

// Archiver writes terminal messages asynchronously.
type Archiver struct {
	collection docdb.MessagesCollection
	queue      *Queue[*models.ArchivedMessage]
	logger     zerolog.Logger
}

// NewArchiver creates an archiver and starts its workers.
func NewArchiver(cfg *Config) (*Archiver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Collection == nil {
		return nil, fmt.Errorf("messages collection is required")
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	a := &Archiver{
		collection: cfg.Collection,
		logger:     logger.With().Str("component", "archive").Logger(),
	}
	a.queue = NewQueue(cfg.BufferSize, a.write, a.failed)
	a.queue.Start(cfg.Workers)

	return a, nil
}

// Archive schedules a terminal message for storage. Non-terminal messages
// are ignored. It reports whether the message was accepted.
func (a *Archiver) Archive(sessionID string, m *models.Message) bool {
	if m == nil || !m.IsTerminal() {
		return false
	}
	if !a.queue.Enqueue(models.NewArchivedMessage(sessionID, m)) {
		a.logger.Warn().
			Str("thread_id", m.ThreadID).
			Str("message_id", m.ID).
			Msg("archive queue full, dropping message")
		return false
	}
	return true
}

// HistoryPage is one page of a thread's archive.
type HistoryPage struct {
	Messages []*models.ArchivedMessage
	// Total counts every archived message of the thread.
	Total int64
}

// History returns a page of archived messages of a thread, newest first.
func (a *Archiver) History(ctx context.Context, sessionID, threadID string, limit, skip int64) (*HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if skip < 0 {
		skip = 0
	}

	messages, err := a.collection.List(ctx, &docdb.ListMessagesOptions{
		SessionID: sessionID,
		ThreadID:  threadID,
		Limit:     limit,
		Skip:      skip,
		OrderBy:   docdb.SortOrderDesc,
	})
	if err != nil {
		return nil, err
	}
	total, err := a.collection.Count(ctx, sessionID, threadID)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Messages: messages, Total: total}, nil
}

// Purge deletes the archive of a thread and returns the number of removed
// messages. Messages still queued for the thread may be written afterwards.
func (a *Archiver) Purge(ctx context.Context, sessionID, threadID string) (int64, error) {
	n, err := a.collection.DeleteThread(ctx, sessionID, threadID)
	if err != nil {
		return 0, err
	}
	a.logger.Info().
		Str("session_id", sessionID).
		Str("thread_id", threadID).
		Int64("deleted", n).
		Msg("thread archive purged")
	return n, nil
}

// Close flushes pending writes until ctx expires.
func (a *Archiver) Close(ctx context.Context) error {
	return a.queue.Stop(ctx)
}

func (a *Archiver) write(ctx context.Context, m *models.ArchivedMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return a.collection.Archive(ctx, m)
}

func (a *Archiver) failed(m *models.ArchivedMessage, err error) {
	a.logger.Error().
		Err(err).
		Str("thread_id", m.ThreadID).
		Str("message_id", m.ID).
		Msg("failed to archive message")
}
