// Package docdb defines the document database used for the transcript
// archive.
package docdb

import (
	"context"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// Type represents the type of document database.
type Type string

const (
	// TypeMongoDB represents a MongoDB database.
	TypeMongoDB Type = "mongodb"
)

// SortOrder represents the sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// ListMessagesOptions contains options for listing archived messages.
type ListMessagesOptions struct {
	SessionID string
	ThreadID  string
	Limit     int64
	Skip      int64
	// OrderBy orders by createdAt; descending when empty.
	OrderBy SortOrder
}

// MessagesCollection stores archived transcript messages.
type MessagesCollection interface {
	// Archive upserts messages by id, so re-archiving an updated message
	// replaces the stored copy.
	Archive(ctx context.Context, messages ...*models.ArchivedMessage) error

	// List returns archived messages of a thread.
	List(ctx context.Context, opts *ListMessagesOptions) ([]*models.ArchivedMessage, error)

	// Count returns the number of archived messages of a thread.
	Count(ctx context.Context, sessionID, threadID string) (int64, error)

	// DeleteThread removes every archived message of a thread and returns
	// how many were removed.
	DeleteThread(ctx context.Context, sessionID, threadID string) (int64, error)

	// EnsureIndexes creates the indexes used by List and Count.
	EnsureIndexes(ctx context.Context) error
}

// Client is a document database connection.
type Client interface {
	Messages() MessagesCollection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
