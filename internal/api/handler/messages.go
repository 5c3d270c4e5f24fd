package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pingme/backend/internal/errs"
)

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage appends a message to the room and triggers fan-out.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("malformed request body"))
		return
	}

	msg, err := h.Chat.SendMessage(currentUserID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessages reads one newest-first page of the room history.
func (h *Handler) GetMessages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	result, err := h.Chat.GetMessages(currentUserID(c), c.Param("id"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkMessageRead flips a single message to READ for a recipient.
func (h *Handler) MarkMessageRead(c *gin.Context) {
	if err := h.Chat.MarkMessageRead(currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MarkAllRead flips every message in the room not sent by the caller.
func (h *Handler) MarkAllRead(c *gin.Context) {
	if err := h.Chat.MarkAllRead(currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
