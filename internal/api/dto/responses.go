package dto

import (
	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// OpenThreadResponse represents the response for opening a thread.
type OpenThreadResponse struct {
	Thread   *models.ConversationThread `json:"thread"`
	Messages []*models.Message          `json:"messages"`
}

// GetMessagesResponse represents the live transcript of a thread.
type GetMessagesResponse struct {
	Messages []*models.Message `json:"messages"`
	Loading  bool              `json:"loading"`
}

// SendMessageResponse represents the response for sending a message.
type SendMessageResponse struct {
	Message *models.Message `json:"message"`
}

// HistoryResponse represents archived messages of a thread.
type HistoryResponse struct {
	Messages []*models.ArchivedMessage `json:"messages"`
	Total    int64                     `json:"total"`
	Limit    int64                     `json:"limit"`
	Offset   int64                     `json:"offset"`
}

// PurgeHistoryResponse reports how many archived messages were deleted.
type PurgeHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

// CancelAuthorizationResponse reports whether a wait was stopped.
type CancelAuthorizationResponse struct {
	Cancelled bool `json:"cancelled"`
}

// ScenariosResponse lists the explanation catalog.
type ScenariosResponse struct {
	Scenarios []models.Scenario `json:"scenarios"`
}
