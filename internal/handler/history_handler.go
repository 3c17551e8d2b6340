package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/internal/service"
	"github.com/campfire-tv/backend/pkg/response"
)

type HistoryHandler struct {
	history service.HistoryService
}

func NewHistoryHandler(history service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// Page handles GET /api/channels/:id/messages?cursor=&limit=&direction=.
// Cursorless backward reads return the newest page.
func (h *HistoryHandler) Page(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	page, err := h.history.Page(
		c.Request.Context(),
		c.Param("id"),
		c.Query("cursor"),
		limit,
		c.DefaultQuery("direction", "backward"),
	)
	if err != nil {
		if errors.Is(err, repository.ErrValidation) {
			response.BadRequest(c, "malformed cursor")
			return
		}
		response.InternalError(c, "failed to load chat history")
		return
	}

	response.Success(c, page)
}
