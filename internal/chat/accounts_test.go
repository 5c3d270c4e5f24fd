package chat_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pingme/backend/internal/auth"
	"pingme/backend/internal/chat"
	"pingme/backend/internal/errs"
	"pingme/backend/internal/storage"
)

func newAccountService(t *testing.T) *chat.AccountService {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	store := storage.NewService(db)
	require.NoError(t, store.Migrate())

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return chat.NewAccountService(store, tokens)
}

func TestRegister_Success(t *testing.T) {
	svc := newAccountService(t)

	resp, err := svc.Register(chat.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.Type)
	assert.Equal(t, "alice", resp.Username)
	// display name defaults to the username when omitted
	assert.Equal(t, "alice", resp.DisplayName)
}

func TestRegister_Validation(t *testing.T) {
	svc := newAccountService(t)

	cases := []chat.RegisterRequest{
		{Username: "ab", Email: "a@b.c", Password: "secret123"},
		{Username: "alice", Email: "not-an-email", Password: "secret123"},
		{Username: "alice", Email: "a@b.c", Password: "short"},
	}
	for _, req := range cases {
		_, err := svc.Register(req)
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newAccountService(t)

	_, err := svc.Register(chat.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(chat.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestLogin(t *testing.T) {
	svc := newAccountService(t)

	_, err := svc.Register(chat.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	resp, err := svc.Login(chat.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(chat.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))

	// unknown user reads the same as a bad password
	_, err = svc.Login(chat.LoginRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
}
