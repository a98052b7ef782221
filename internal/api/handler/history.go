package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/saifjishan/chatmeme/internal/repository"
)

// HistoryHandler handles sidebar history endpoints.
type HistoryHandler struct {
	repo *repository.HistoryRepository
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(repo *repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// List returns recent turns, newest first. Supports ?limit=N.
func (h *HistoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	turns, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"turns": turns,
		"count": len(turns),
	})
}

// Clear deletes all history entries.
func (h *HistoryHandler) Clear(c *gin.Context) {
	removed, err := h.repo.Clear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to clear history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
	})
}
