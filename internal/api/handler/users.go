package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me returns the caller's own profile.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Chat.GetUser(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SearchUsers finds users by partial username match, excluding the caller.
func (h *Handler) SearchUsers(c *gin.Context) {
	results, err := h.Chat.SearchUsers(currentUserID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
