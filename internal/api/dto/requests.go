// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// OpenSessionRequest represents the request body for opening a session.
type OpenSessionRequest struct {
	// SessionID reopens a session, or resumes its mirrored state after a
	// restart. Empty creates a new session.
	SessionID string `json:"sessionId" binding:"omitempty,max=128"`
}

// OpenThreadRequest represents the request body for opening a thread.
type OpenThreadRequest struct {
	UserName string `json:"userName" binding:"omitempty,max=256"`
}

// SendMessageRequest represents the request body for sending a message.
// Blank content is rejected by the transcript, not by binding, so it maps
// to the same validation error.
type SendMessageRequest struct {
	Content string `json:"content" binding:"max=32000"`
}

// HistoryQuery represents the query parameters of the history endpoint.
type HistoryQuery struct {
	Limit  int64 `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int64 `form:"offset" binding:"omitempty,min=0"`
}

// StartAuthorizationRequest represents the request body for starting an
// authorization wait.
type StartAuthorizationRequest struct {
	MessageID string `json:"messageId" binding:"required"`
}

// ShowExplanationRequest points the explanation panel at one message.
type ShowExplanationRequest struct {
	ThreadID  string `json:"threadId" binding:"required"`
	MessageID string `json:"messageId" binding:"required"`
}

// ToggleExplanationRequest sets the panel visibility. A missing visible
// flips it.
type ToggleExplanationRequest struct {
	Visible *bool `json:"visible"`
}
