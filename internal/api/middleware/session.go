package middleware

import (
	"github.com/gin-gonic/gin"
)

// SessionContext holds the path identifiers of a session-scoped request.
type SessionContext struct {
	SessionID string
	ThreadID  string
	Token     string
}

// GetSessionContext extracts the session context from the request.
func GetSessionContext(c *gin.Context) *SessionContext {
	return &SessionContext{
		SessionID: c.Param("sessionId"),
		ThreadID:  c.Param("threadId"),
		Token:     GetToken(c),
	}
}
