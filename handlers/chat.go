package handlers

import (
	"log"
	"net/http"

	"scribe-backend/models"
	"scribe-backend/workflows"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	workflows *workflows.ChatWorkflows
}

// NewChatHandler creates a new chat handler
func NewChatHandler(wf *workflows.ChatWorkflows) *ChatHandler {
	return &ChatHandler{workflows: wf}
}

// ProjectChat answers a chat that references project episodes
func (h *ChatHandler) ProjectChat(c *gin.Context) {
	h.chat(c, "project")
}

// DictionaryChat answers an expression / wording chat
func (h *ChatHandler) DictionaryChat(c *gin.Context) {
	h.chat(c, "dictionary")
}

// MaterialChat answers a chat that references research materials
func (h *ChatHandler) MaterialChat(c *gin.Context) {
	h.chat(c, "material")
}

func (h *ChatHandler) chat(c *gin.Context, chatType string) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が正しくありません"})
		return
	}

	log.Printf("%s chat request with %d messages, sources: %v", chatType, len(req.Messages), req.Sources)

	// SendMessage never fails; upstream errors come back as an
	// apologetic assistant message.
	message := h.workflows.SendMessage(c.Request.Context(), req, chatType)

	c.JSON(http.StatusOK, models.ChatResponse{
		Message: message,
		Success: true,
	})
}
