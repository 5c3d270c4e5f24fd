package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pingme/backend/internal/auth"
	"pingme/backend/internal/chat"
	"pingme/backend/internal/chathub"
	"pingme/backend/internal/errs"
)

// Handler exposes the messaging core over HTTP and the WebSocket upgrade
// endpoint.
type Handler struct {
	Accounts *chat.AccountService
	Chat     *chat.Service
	Hub      *chathub.ManagerService
	Tokens   *auth.TokenIssuer
}

func NewHandler(accounts *chat.AccountService, chatSvc *chat.Service, hub *chathub.ManagerService, tokens *auth.TokenIssuer) *Handler {
	return &Handler{Accounts: accounts, Chat: chatSvc, Hub: hub, Tokens: tokens}
}

// RegisterRoutes wires every endpoint onto the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)

	authed := r.Group("/", h.AuthRequired)
	authed.GET("/api/users/me", h.Me)
	authed.GET("/api/users/search", h.SearchUsers)

	authed.GET("/api/chats", h.ListRooms)
	authed.POST("/api/chats/direct/:userId", h.CreateDirectRoom)
	authed.GET("/api/chats/:id", h.GetRoom)
	authed.GET("/api/chats/:id/messages", h.GetMessages)
	authed.POST("/api/chats/:id/messages", h.SendMessage)
	authed.POST("/api/chats/:id/read", h.MarkAllRead)
	authed.POST("/api/messages/:id/read", h.MarkMessageRead)

	r.GET("/ws", h.ServeWebSocket)
}

// AuthRequired validates the bearer token and threads the caller identity
// into the request context. No handler past this point reads credentials.
func (h *Handler) AuthRequired(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		respondError(c, errs.Unauthenticated("authorization token missing"))
		c.Abort()
		return
	}

	claims, err := h.Tokens.Verify(token)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return
	}
	c.Set("userID", claims.UserID)
	c.Next()
}

// currentUserID reads the authenticated identity set by AuthRequired.
func currentUserID(c *gin.Context) string {
	return c.GetString("userID")
}

// bearerToken extracts the credential from the Authorization header, or
// from the token query parameter for WebSocket handshakes where headers
// are awkward for browser clients.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// respondError maps a domain error to an HTTP status and the structured
// error payload shared with the live channel.
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindUnauthenticated:
		status = http.StatusUnauthorized
	case errs.KindForbidden:
		status = http.StatusForbidden
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConflict:
		status = http.StatusConflict
	case errs.KindStorage:
		status = http.StatusServiceUnavailable
	}

	body := gin.H{"kind": kind, "message": errs.MessageOf(err)}
	if field := errs.FieldOf(err); field != "" {
		body["field"] = field
	}
	c.JSON(status, gin.H{"error": body})
}
