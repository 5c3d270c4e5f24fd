package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pingme/backend/internal/api/handler"
	"pingme/backend/internal/auth"
	"pingme/backend/internal/chat"
	"pingme/backend/internal/chathub"
	"pingme/backend/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	store := storage.NewService(db)
	require.NoError(t, store.Migrate())

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	broker := chathub.NewMemoryBroker()
	chatSvc := chat.NewService(store, broker)
	accounts := chat.NewAccountService(store, tokens)
	hub := chathub.NewManagerService(broker, chatSvc, store)
	hub.SetEventHandler(chatSvc)

	r := gin.New()
	handler.NewHandler(accounts, chatSvc, hub, tokens).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// registerUser signs a user up and returns the token and user id.
func registerUser(t *testing.T, r *gin.Engine, username string) (token, userID string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	return body["token"].(string), body["user_id"].(string)
}

func TestRegisterAndLogin(t *testing.T) {
	r := newTestRouter(t)

	token, _ := registerUser(t, r, "alice")
	require.NotEmpty(t, token)

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "alice",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Bearer", body["type"])
	assert.Equal(t, "alice", body["username"])

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_DuplicateUsernameConflicts(t *testing.T) {
	r := newTestRouter(t)

	registerUser(t, r, "alice")
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/chats", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDirectRoomLifecycle(t *testing.T) {
	r := newTestRouter(t)

	aliceToken, _ := registerUser(t, r, "alice")
	bobToken, bobID := registerUser(t, r, "bob")
	carolToken, _ := registerUser(t, r, "carol")

	// first request creates the room
	w := doJSON(t, r, http.MethodPost, "/api/chats/direct/"+bobID, aliceToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	roomID := decodeBody(t, w)["id"].(string)
	require.NotEmpty(t, roomID)

	// repeating it returns the same room without creating another
	w = doJSON(t, r, http.MethodPost, "/api/chats/direct/"+bobID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, roomID, decodeBody(t, w)["id"])

	// either member can send and read
	w = doJSON(t, r, http.MethodPost, "/api/chats/"+roomID+"/messages", aliceToken, gin.H{
		"content": "hello bob",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/chats/"+roomID+"/messages?page=0&size=20", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeBody(t, w)
	content := page["content"].([]any)
	require.Len(t, content, 1)
	first := content[0].(map[string]any)
	assert.Equal(t, "hello bob", first["content"])
	assert.Equal(t, "alice", first["sender_username"])

	// a non-member is refused access to an existing room
	w = doJSON(t, r, http.MethodGet, "/api/chats/"+roomID+"/messages", carolToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// an absent room is not found, not forbidden
	w = doJSON(t, r, http.MethodGet, "/api/chats/00000000-0000-0000-0000-000000000000/messages", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelfChatRejected(t *testing.T) {
	r := newTestRouter(t)

	token, userID := registerUser(t, r, "alice")
	w := doJSON(t, r, http.MethodPost, "/api/chats/direct/"+userID, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "validation_error", errBody["kind"])
	assert.Equal(t, "target_user_id", errBody["field"])
}

func TestUserSearch(t *testing.T) {
	r := newTestRouter(t)

	token, _ := registerUser(t, r, "alice")
	registerUser(t, r, "bob")
	registerUser(t, r, "bobby")

	w := doJSON(t, r, http.MethodGet, "/api/users/search?q=bo", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Len(t, results, 2)

	// queries below the minimum length are rejected
	w = doJSON(t, r, http.MethodGet, "/api/users/search?q=b", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
