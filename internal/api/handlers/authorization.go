package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/chat-bridge/internal/api/dto"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
)

// AuthorizationHandler handles the consent step of booking messages.
type AuthorizationHandler struct {
	manager *conversation.Manager
}

// NewAuthorizationHandler creates a new AuthorizationHandler.
func NewAuthorizationHandler(manager *conversation.Manager) *AuthorizationHandler {
	return &AuthorizationHandler{manager: manager}
}

// Start handles POST /sessions/{sessionId}/threads/{threadId}/authorization
// @Summary Start an authorization wait
// @Description Starts polling the agent for the consent step of a message. The browser loads triggerUrl in a hidden frame; the continuation is sent once the agent reports the authorized state.
// @Tags Authorization
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Param request body dto.StartAuthorizationRequest true "Message awaiting authorization"
// @Success 202 {object} conversation.AuthorizationStart
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Message does not await authorization"
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/authorization [post]
func (h *AuthorizationHandler) Start(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	var req dto.StartAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	start, err := h.manager.StartAuthorization(c.Request.Context(), sc.SessionID, sc.ThreadID, sc.Token, req.MessageID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, start)
}

// Status handles GET /sessions/{sessionId}/threads/{threadId}/authorization
// @Summary Get the authorization wait
// @Description Returns the outcome and attempt count of the thread's latest authorization wait
// @Tags Authorization
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Success 200 {object} authorization.Status
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/authorization [get]
func (h *AuthorizationHandler) Status(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	status, err := h.manager.AuthorizationStatus(sc.SessionID, sc.ThreadID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Cancel handles DELETE /sessions/{sessionId}/threads/{threadId}/authorization
// @Summary Cancel the authorization wait
// @Tags Authorization
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Success 200 {object} dto.CancelAuthorizationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/authorization [delete]
func (h *AuthorizationHandler) Cancel(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	cancelled, err := h.manager.CancelAuthorization(sc.SessionID, sc.ThreadID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CancelAuthorizationResponse{Cancelled: cancelled})
}
