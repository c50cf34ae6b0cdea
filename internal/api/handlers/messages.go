package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/chat-bridge/internal/api/dto"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
	"github.com/unifiedui/chat-bridge/internal/services/archive"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
)

// HistoryStore reads and purges archived messages.
type HistoryStore interface {
	History(ctx context.Context, sessionID, threadID string, limit, skip int64) (*archive.HistoryPage, error)
	Purge(ctx context.Context, sessionID, threadID string) (int64, error)
}

// MessagesHandler handles transcript endpoints.
type MessagesHandler struct {
	manager *conversation.Manager
	history HistoryStore
}

// NewMessagesHandler creates a new MessagesHandler. history is nil when the
// archive is disabled.
func NewMessagesHandler(manager *conversation.Manager, history HistoryStore) *MessagesHandler {
	return &MessagesHandler{
		manager: manager,
		history: history,
	}
}

// GetMessages handles GET /sessions/{sessionId}/threads/{threadId}/messages
// @Summary Get the live transcript
// @Description Returns the thread's transcript in order and whether an exchange is in flight
// @Tags Messages
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Success 200 {object} dto.GetMessagesResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/messages [get]
func (h *MessagesHandler) GetMessages(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	messages, loading, err := h.manager.Messages(sc.SessionID, sc.ThreadID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GetMessagesResponse{
		Messages: messages,
		Loading:  loading,
	})
}

// SendMessage handles POST /sessions/{sessionId}/threads/{threadId}/messages
// @Summary Send a message
// @Description Sends user input to the agent and returns the terminal agent message. Agent failures are returned as a failed message, not as an error.
// @Tags Messages
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Param request body dto.SendMessageRequest true "Message content"
// @Success 200 {object} dto.SendMessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Another message is in flight"
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/messages [post]
func (h *MessagesHandler) SendMessage(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	// The exchange outlives a dropped request; subscribers still see the reply.
	ctx := context.WithoutCancel(c.Request.Context())
	msg, err := h.manager.Submit(ctx, sc.SessionID, sc.ThreadID, sc.Token, req.Content)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SendMessageResponse{Message: msg})
}

// GetHistory handles GET /sessions/{sessionId}/threads/{threadId}/history
// @Summary Get archived messages
// @Description Returns archived terminal messages of a thread, newest first
// @Tags Messages
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Param limit query int false "Maximum number of messages" default(50) minimum(1) maximum(200)
// @Param offset query int false "Offset for pagination" default(0) minimum(0)
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Archive disabled"
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/history [get]
func (h *MessagesHandler) GetHistory(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}

	sc := middleware.GetSessionContext(c)

	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid query parameters", err.Error()))
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	page, err := h.history.History(c.Request.Context(), sc.SessionID, sc.ThreadID, query.Limit, query.Offset)
	if err != nil {
		middleware.HandleError(c, domainerrors.NewInternalError("failed to read history", err))
		return
	}
	messages := page.Messages
	if messages == nil {
		messages = []*models.ArchivedMessage{}
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		Messages: messages,
		Total:    page.Total,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
}

// PurgeHistory handles DELETE /sessions/{sessionId}/threads/{threadId}/history
// @Summary Purge archived messages
// @Description Deletes every archived message of a thread
// @Tags Messages
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param threadId path string true "Thread ID"
// @Success 200 {object} dto.PurgeHistoryResponse
// @Failure 503 {object} dto.ErrorResponse "Archive disabled"
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/history [delete]
func (h *MessagesHandler) PurgeHistory(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}

	sc := middleware.GetSessionContext(c)

	deleted, err := h.history.Purge(c.Request.Context(), sc.SessionID, sc.ThreadID)
	if err != nil {
		middleware.HandleError(c, domainerrors.NewInternalError("failed to purge history", err))
		return
	}

	c.JSON(http.StatusOK, dto.PurgeHistoryResponse{Deleted: deleted})
}

func (h *MessagesHandler) archiveEnabled(c *gin.Context) bool {
	if h.history == nil {
		middleware.HandleError(c, domainerrors.NewServiceUnavailableError("archive", fmt.Errorf("archive is disabled")))
		return false
	}
	return true
}
