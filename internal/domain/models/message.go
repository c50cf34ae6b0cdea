// Package models contains domain models for the chat bridge.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageOrigin identifies who authored a message.
type MessageOrigin string

const (
	// OriginUser represents a message typed by the user.
	OriginUser MessageOrigin = "user"
	// OriginAgent represents a message produced by the backend agent.
	OriginAgent MessageOrigin = "agent"
)

// MessagePhase represents where a message is in its lifecycle.
type MessagePhase string

const (
	// PhasePending marks the placeholder shown while the agent exchange runs.
	PhasePending MessagePhase = "pending"
	// PhaseDelivered marks a message that reached its final content.
	PhaseDelivered MessagePhase = "delivered"
	// PhaseFailed marks an agent message that replaced a failed exchange.
	PhaseFailed MessagePhase = "failed"
)

// LoadingAction hints which loading indicator a pending placeholder uses.
type LoadingAction string

const (
	LoadingActionDefault LoadingAction = "default"
	LoadingActionBooking LoadingAction = "booking"
)

// Message is one exchange unit in a thread transcript.
type Message struct {
	ID            string         `json:"id" bson:"_id"`
	ThreadID      string         `json:"threadId" bson:"threadId"`
	Content       string         `json:"content" bson:"content"`
	Origin        MessageOrigin  `json:"origin" bson:"origin"`
	Phase         MessagePhase   `json:"phase" bson:"phase"`
	LoadingAction LoadingAction  `json:"loadingAction,omitempty" bson:"-"`
	ToolResponse  *AgentResponse `json:"toolResponse,omitempty" bson:"toolResponse,omitempty"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`

	// ConfirmationResolved is set once a continuation for this message's
	// authorization step was delivered.
	ConfirmationResolved bool `json:"confirmationResolved,omitempty" bson:"confirmationResolved,omitempty"`
}

// NewMessage creates a message with a fresh identifier.
func NewMessage(threadID string, origin MessageOrigin, phase MessagePhase, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Content:   content,
		Origin:    origin,
		Phase:     phase,
		CreatedAt: time.Now().UTC(),
	}
}

// IsTerminal reports whether the message reached a final phase.
func (m *Message) IsTerminal() bool {
	return m.Phase == PhaseDelivered || m.Phase == PhaseFailed
}

// AwaitsConfirmation reports whether the UI should offer the authorization
// ("confirm schedule") affordance for this message.
func (m *Message) AwaitsConfirmation() bool {
	return m.Origin == OriginAgent &&
		m.Phase == PhaseDelivered &&
		m.ToolResponse != nil &&
		m.ToolResponse.AuthorizationURL != "" &&
		!m.ConfirmationResolved
}

// Clone returns a copy that is safe to hand to callers outside the owning store.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
