package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationThread identifies one logical conversation. It lives as long
// as the chat view that opened it and is never persisted.
type ConversationThread struct {
	ThreadID  string    `json:"threadId"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewConversationThread opens a thread with a generated identifier.
func NewConversationThread(sessionID string) *ConversationThread {
	return &ConversationThread{
		ThreadID:  uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
}
