package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/chat-bridge/internal/api/dto"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
)

// SessionsHandler handles session and thread lifecycle endpoints.
type SessionsHandler struct {
	manager *conversation.Manager
}

// NewSessionsHandler creates a new SessionsHandler.
func NewSessionsHandler(manager *conversation.Manager) *SessionsHandler {
	return &SessionsHandler{manager: manager}
}

// OpenSession handles POST /sessions
// @Summary Open a session
// @Description Opens a UI session, or returns the open one with the given id. A known id whose session is gone resumes its mirrored explanation state.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.OpenSessionRequest false "Optional session id"
// @Success 200 {object} conversation.SessionInfo
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions [post]
func (h *SessionsHandler) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	info, err := h.manager.OpenSession(c.Request.Context(), req.SessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// CloseSession handles DELETE /sessions/{sessionId}
// @Summary Close a session
// @Description Closes every thread of the session, cancels authorization waits and drops cached state
// @Tags Sessions
// @Param sessionId path string true "Session ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId} [delete]
func (h *SessionsHandler) CloseSession(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	if err := h.manager.CloseSession(c.Request.Context(), sc.SessionID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// OpenThread handles POST /sessions/{sessionId}/threads
// @Summary Open a thread
// @Description Starts a conversation thread seeded with a greeting
// @Tags Threads
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body dto.OpenThreadRequest false "Optional user name for the greeting"
// @Success 201 {object} dto.OpenThreadResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads [post]
func (h *SessionsHandler) OpenThread(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	var req dto.OpenThreadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	thread, messages, err := h.manager.OpenThread(c.Request.Context(), sc.SessionID, req.UserName)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OpenThreadResponse{
		Thread:   thread,
		Messages: messages,
	})
}

// CloseThread handles DELETE /sessions/{sessionId}/threads/{threadId}
// @Summary Close a thread
// @Description Cancels the thread's authorization wait and drops its transcript
// @Tags Threads
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId} [delete]
func (h *SessionsHandler) CloseThread(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	if err := h.manager.CloseThread(c.Request.Context(), sc.SessionID, sc.ThreadID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
