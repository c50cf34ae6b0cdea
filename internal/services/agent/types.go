// Package agent provides the client for the backend chat agent service.
package agent

import (
	"encoding/json"
	"errors"
)

var (
	// ErrAgentStatus is returned when the agent answers with a non-2xx status.
	ErrAgentStatus = errors.New("agent returned a non-success status")
	// ErrMalformedResponse is returned when the agent payload does not have
	// the expected shape.
	ErrMalformedResponse = errors.New("agent returned a malformed response")
)

// Tool response keys that carry a continuation payload, in lookup order.
var continuationKeys = []string{"schedule_preview", "booking_preview", "BookingDetails"}

// chatRequest is the body sent to POST /chat.
type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

// chatResponse is the body returned by POST /chat.
type chatResponse struct {
	ID            string          `json:"id"`
	Response      *chatEnvelope   `json:"response"`
	FrontendState string          `json:"frontend_state"`
	MessageStates json.RawMessage `json:"message_states"`
}

// chatEnvelope holds the natural language answer and the tool output.
type chatEnvelope struct {
	ChatResponse *string                    `json:"chat_response"`
	ToolResponse map[string]json.RawMessage `json:"tool_response"`
}

// stateResponse is the body returned by GET /state/{threadId}.
type stateResponse struct {
	States *[]string `json:"states"`
}
