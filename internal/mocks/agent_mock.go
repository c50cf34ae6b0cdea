// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// MockAgent is a mock of the chat agent client.
type MockAgent struct {
	mock.Mock
}

// Exchange sends a message to the agent.
func (m *MockAgent) Exchange(ctx context.Context, token, threadID, message string) (*models.AgentResponse, error) {
	args := m.Called(ctx, token, threadID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentResponse), args.Error(1)
}

// FetchStates returns the agent state tags for a thread.
func (m *MockAgent) FetchStates(ctx context.Context, threadID string) ([]string, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
