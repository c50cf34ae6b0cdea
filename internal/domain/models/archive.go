package models

import "time"

// ArchivedMessage is a terminal transcript message as stored in the
// document database.
type ArchivedMessage struct {
	Message    `bson:",inline"`
	SessionID  string    `json:"sessionId" bson:"sessionId"`
	ArchivedAt time.Time `json:"archivedAt" bson:"archivedAt"`
}

// NewArchivedMessage wraps a terminal message for storage.
func NewArchivedMessage(sessionID string, m *Message) *ArchivedMessage {
	return &ArchivedMessage{
		Message:    *m.Clone(),
		SessionID:  sessionID,
		ArchivedAt: time.Now().UTC(),
	}
}
