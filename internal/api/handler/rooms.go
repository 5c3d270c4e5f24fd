package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListRooms returns the caller's rooms, most recently created first.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Chat.ListRooms(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// CreateDirectRoom resolves or creates the direct room with the target
// user. 201 when the room was created by this call, 200 when it already
// existed.
func (h *Handler) CreateDirectRoom(c *gin.Context) {
	room, created, err := h.Chat.GetOrCreateDirectRoom(currentUserID(c), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, room)
}

// GetRoom returns one room the caller is a member of.
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.Chat.GetRoom(currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
