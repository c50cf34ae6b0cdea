package models

import (
	"encoding/json"
	"fmt"
)

// AgentResponse is the structured payload the backend agent returns alongside
// its chat text. It is immutable once received.
type AgentResponse struct {
	// AgentMessageID is the identifier the agent assigned, if any.
	AgentMessageID string `json:"agentMessageId,omitempty" bson:"agentMessageId,omitempty"`
	// ChatText is the text shown to the user.
	ChatText string `json:"chatText" bson:"chatText"`
	// AuthorizationURL signals that a consent step is required.
	AuthorizationURL string `json:"authorizationUrl,omitempty" bson:"authorizationUrl,omitempty"`
	// ContinuationPayload is echoed back to the agent once authorization succeeds.
	ContinuationPayload json.RawMessage `json:"continuationPayload,omitempty" bson:"continuationPayload,omitempty"`
	// StateTags describe the agent's internal progress, in emission order.
	StateTags []string `json:"stateTags,omitempty" bson:"stateTags,omitempty"`
	// FrontendState is an optional UI hint emitted by the agent.
	FrontendState string `json:"frontendState,omitempty" bson:"frontendState,omitempty"`
}

// RequiresAuthorization reports whether the response asks for a consent step.
func (r *AgentResponse) RequiresAuthorization() bool {
	return r != nil && r.AuthorizationURL != ""
}

// HasStateTags reports whether the agent reported any progress tags.
func (r *AgentResponse) HasStateTags() bool {
	return r != nil && len(r.StateTags) > 0
}

// MeetingPreview is the scheduling preview the agent returns before the
// consent step.
type MeetingPreview struct {
	MeetingID string `json:"meeting_id,omitempty"`
	Topic     string `json:"topic"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	Duration  string `json:"duration"`
	TimeZone  string `json:"timeZone"`
}

// DecodeMeetingPreview decodes a continuation payload into a MeetingPreview.
func DecodeMeetingPreview(payload json.RawMessage) (*MeetingPreview, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("continuation payload is empty")
	}
	var preview MeetingPreview
	if err := json.Unmarshal(payload, &preview); err != nil {
		return nil, fmt.Errorf("failed to decode meeting preview: %w", err)
	}
	return &preview, nil
}
