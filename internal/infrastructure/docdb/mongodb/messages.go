package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unifiedui/chat-bridge/internal/core/docdb"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// MessagesCollectionName is the name of the archive collection.
const MessagesCollectionName = "messages"

// MessagesCollection implements docdb.MessagesCollection for MongoDB.
type MessagesCollection struct {
	messages *mongo.Collection
}

var _ docdb.MessagesCollection = (*MessagesCollection)(nil)

// NewMessagesCollection creates a new messages collection wrapper.
func NewMessagesCollection(db *mongo.Database) *MessagesCollection {
	return &MessagesCollection{messages: db.Collection(MessagesCollectionName)}
}

// Archive upserts messages in one unordered bulk write.
func (c *MessagesCollection) Archive(ctx context.Context, messages ...*models.ArchivedMessage) error {
	if len(messages) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(messages))
	for _, m := range messages {
		if m.ID == "" {
			return fmt.Errorf("message ID is required")
		}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": m.ID}).
			SetReplacement(m).
			SetUpsert(true))
	}

	if _, err := c.messages.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to archive messages: %w", err)
	}
	return nil
}

// List returns archived messages of a thread with pagination and sorting.
func (c *MessagesCollection) List(ctx context.Context, opts *docdb.ListMessagesOptions) ([]*models.ArchivedMessage, error) {
	if opts == nil || opts.ThreadID == "" {
		return nil, fmt.Errorf("thread ID is required")
	}

	cursor, err := c.messages.Find(ctx, threadFilter(opts.SessionID, opts.ThreadID), buildFindOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]*models.ArchivedMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// Count returns the number of archived messages of a thread.
func (c *MessagesCollection) Count(ctx context.Context, sessionID, threadID string) (int64, error) {
	n, err := c.messages.CountDocuments(ctx, threadFilter(sessionID, threadID))
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// DeleteThread removes every archived message of a thread.
func (c *MessagesCollection) DeleteThread(ctx context.Context, sessionID, threadID string) (int64, error) {
	res, err := c.messages.DeleteMany(ctx, threadFilter(sessionID, threadID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the thread listing indexes.
func (c *MessagesCollection) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "threadId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_thread_created"),
		},
		{
			Keys: bson.D{
				{Key: "sessionId", Value: 1},
				{Key: "threadId", Value: 1},
			},
			Options: options.Index().SetName("idx_session_thread"),
		},
	}

	if _, err := c.messages.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create messages indexes: %w", err)
	}
	return nil
}

func threadFilter(sessionID, threadID string) bson.M {
	filter := bson.M{"threadId": threadID}
	if sessionID != "" {
		filter["sessionId"] = sessionID
	}
	return filter
}

// buildFindOptions defaults to newest first.
func buildFindOptions(opts *docdb.ListMessagesOptions) *options.FindOptions {
	findOpts := options.Find()

	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	sortOrder := -1
	if opts.OrderBy == docdb.SortOrderAsc {
		sortOrder = 1
	}
	findOpts.SetSort(bson.D{{Key: "createdAt", Value: sortOrder}, {Key: "_id", Value: sortOrder}})

	return findOpts
}
