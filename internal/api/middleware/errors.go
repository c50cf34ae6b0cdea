package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/chat-bridge/internal/api/dto"
	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
)

const codeMethodNotAllowed = "METHOD_NOT_ALLOWED"

var internalErrorBody = dto.ErrorResponse{
	Code:    domainerrors.ErrCodeInternal,
	Message: "internal server error",
}

// ErrorMiddleware handles error recovery and formatting.
type ErrorMiddleware struct{}

// NewErrorMiddleware creates a new ErrorMiddleware.
func NewErrorMiddleware() *ErrorMiddleware {
	return &ErrorMiddleware{}
}

// Recovery returns a gin middleware that turns panics into 500 responses.
func (m *ErrorMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger := GetRequestLogger(c)
				logger.Error().
					Interface("error", err).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, internalErrorBody)
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HandleError renders err as an error response and aborts the chain.
// Errors that are not domain errors become opaque 500s.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	domainErr, ok := domainerrors.GetDomainError(err)
	if !ok {
		logger := GetRequestLogger(c)
		logger.Error().Err(err).Msg("unhandled error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, internalErrorBody)
		return
	}

	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger := GetRequestLogger(c)
		logger.Error().Err(domainErr).Msg("request failed")
	}
	c.AbortWithStatusJSON(domainErr.HTTPStatus, dto.ErrorResponse{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: domainErr.Details,
	})
}

// NotFound returns a 404 handler for unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Code:    domainerrors.ErrCodeNotFound,
			Message: "route not found",
			Details: c.Request.URL.Path,
		})
	}
}

// MethodNotAllowed returns a 405 handler.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{
			Code:    codeMethodNotAllowed,
			Message: "method not allowed",
			Details: c.Request.Method,
		})
	}
}
