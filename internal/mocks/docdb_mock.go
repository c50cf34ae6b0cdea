package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/chat-bridge/internal/core/docdb"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// MockMessagesCollection is a mock implementation of docdb.MessagesCollection.
type MockMessagesCollection struct {
	mock.Mock
}

// Archive upserts messages.
func (m *MockMessagesCollection) Archive(ctx context.Context, messages ...*models.ArchivedMessage) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

// List returns archived messages.
func (m *MockMessagesCollection) List(ctx context.Context, opts *docdb.ListMessagesOptions) ([]*models.ArchivedMessage, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ArchivedMessage), args.Error(1)
}

// Count counts archived messages.
func (m *MockMessagesCollection) Count(ctx context.Context, sessionID, threadID string) (int64, error) {
	args := m.Called(ctx, sessionID, threadID)
	return args.Get(0).(int64), args.Error(1)
}

// DeleteThread removes archived messages.
func (m *MockMessagesCollection) DeleteThread(ctx context.Context, sessionID, threadID string) (int64, error) {
	args := m.Called(ctx, sessionID, threadID)
	return args.Get(0).(int64), args.Error(1)
}

// EnsureIndexes creates indexes.
func (m *MockMessagesCollection) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDocDB is a mock implementation of docdb.Client.
type MockDocDB struct {
	mock.Mock
}

// Messages returns the messages collection.
func (m *MockDocDB) Messages() docdb.MessagesCollection {
	args := m.Called()
	return args.Get(0).(docdb.MessagesCollection)
}

// Ping verifies the connection.
func (m *MockDocDB) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the connection.
func (m *MockDocDB) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
