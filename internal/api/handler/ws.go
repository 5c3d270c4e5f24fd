package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pingme/backend/internal/chathub"
	"pingme/backend/internal/errs"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the handshake and upgrades the connection.
// A missing or invalid credential rejects the connection before any
// subscription is possible.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		respondError(c, errs.Unauthenticated("authorization token missing"))
		return
	}

	claims, err := h.Tokens.Verify(token)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		respondError(c, errs.Internal("failed to upgrade connection", err))
		return
	}

	client := chathub.NewWebSocketClient(claims.UserID, conn, h.Hub)
	h.Hub.Register(client)
	client.Run()
}
