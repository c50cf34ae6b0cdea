// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
)

const tokenKey = "auth_token"

// AuthMiddleware extracts the bearer token the agent service expects. The
// bridge does not validate it; the agent does.
type AuthMiddleware struct {
	// allowQueryToken accepts ?access_token= for clients that cannot set
	// headers (EventSource, browser websockets).
	allowQueryToken bool
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(allowQueryToken bool) *AuthMiddleware {
	return &AuthMiddleware{allowQueryToken: allowQueryToken}
}

// Authenticate returns a gin middleware that requires a Bearer token and
// stores it in the context for downstream handlers.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extract(c)
		if err != nil {
			HandleError(c, err)
			return
		}

		c.Set(tokenKey, token)
		c.Next()
	}
}

func (m *AuthMiddleware) extract(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if m.allowQueryToken {
			if token := c.Query("access_token"); token != "" {
				return token, nil
			}
		}
		return "", domainerrors.NewUnauthorizedError("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domainerrors.NewUnauthorizedError("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domainerrors.NewUnauthorizedError("empty token")
	}
	return token, nil
}

// GetToken retrieves the auth token from the gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
