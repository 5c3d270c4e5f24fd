package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pingme/backend/internal/chat"
	"pingme/backend/internal/errs"
)

// Register creates an account and returns a fresh token.
func (h *Handler) Register(c *gin.Context) {
	var req chat.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("malformed request body"))
		return
	}

	resp, err := h.Accounts.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login authenticates credentials and returns a token.
func (h *Handler) Login(c *gin.Context) {
	var req chat.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("malformed request body"))
		return
	}

	resp, err := h.Accounts.Login(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
