package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/chat-bridge/internal/api/dto"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
)

// ExplanationHandler handles the shared explanation panel of a session.
type ExplanationHandler struct {
	manager *conversation.Manager
}

// NewExplanationHandler creates a new ExplanationHandler.
func NewExplanationHandler(manager *conversation.Manager) *ExplanationHandler {
	return &ExplanationHandler{manager: manager}
}

// Get handles GET /sessions/{sessionId}/explanation
// @Summary Get the explanation panel
// @Description Returns the shared state snapshot and the scenario resolved from its tags
// @Tags Explanation
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} conversation.Explanation
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/explanation [get]
func (h *ExplanationHandler) Get(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	e, err := h.manager.Explanation(sc.SessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

// Show handles PUT /sessions/{sessionId}/explanation
// @Summary Explain a message
// @Description Points the panel at the state tags of one agent message and shows it
// @Tags Explanation
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body dto.ShowExplanationRequest true "Message to explain"
// @Success 200 {object} conversation.Explanation
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/explanation [put]
func (h *ExplanationHandler) Show(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	var req dto.ShowExplanationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	e, err := h.manager.ShowExplanation(sc.SessionID, req.ThreadID, req.MessageID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

// Toggle handles POST /sessions/{sessionId}/explanation/toggle
// @Summary Toggle the explanation panel
// @Description Sets the panel visibility, or flips it when visible is omitted
// @Tags Explanation
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body dto.ToggleExplanationRequest false "Optional visibility"
// @Success 200 {object} conversation.Explanation
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/explanation/toggle [post]
func (h *ExplanationHandler) Toggle(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	var req dto.ToggleExplanationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	e, err := h.manager.ToggleExplanation(sc.SessionID, req.Visible)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

// Reset handles DELETE /sessions/{sessionId}/explanation
// @Summary Reset the explanation panel
// @Tags Explanation
// @Param sessionId path string true "Session ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/explanation [delete]
func (h *ExplanationHandler) Reset(c *gin.Context) {
	sc := middleware.GetSessionContext(c)

	if err := h.manager.ResetExplanation(sc.SessionID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Scenarios handles GET /scenarios
// @Summary List explanation scenarios
// @Tags Explanation
// @Produce json
// @Success 200 {object} dto.ScenariosResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/scenarios [get]
func (h *ExplanationHandler) Scenarios(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ScenariosResponse{Scenarios: h.manager.Scenarios()})
}
