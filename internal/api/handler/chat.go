package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/saifjishan/chatmeme/internal/api/middleware"
	"github.com/saifjishan/chatmeme/internal/service"
)

// ChatHandler handles chat turn endpoints.
type ChatHandler struct {
	orchestrator *service.OrchestratorService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(orchestrator *service.OrchestratorService) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator}
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ChatResponse is the response body for POST /api/v1/chat. MemePNG is
// the base64-encoded image when the turn produced one.
type ChatResponse struct {
	Mode    string `json:"mode"`
	Reply   string `json:"reply"`
	MemePNG string `json:"meme_png,omitempty"`
}

// Chat resolves one chat turn.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "prompt is required",
		})
		return
	}

	result, err := h.orchestrator.HandleTurn(c.Request.Context(), req.Prompt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to handle chat turn",
		})
		return
	}

	middleware.SetTurnMode(c, string(result.Mode))

	resp := ChatResponse{
		Mode:  string(result.Mode),
		Reply: result.Reply,
	}
	if result.Meme != nil {
		resp.MemePNG = base64.StdEncoding.EncodeToString(result.Meme)
	}

	c.JSON(http.StatusOK, resp)
}
