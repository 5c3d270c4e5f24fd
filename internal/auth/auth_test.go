package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingme/backend/internal/auth"
	"pingme/backend/internal/errs"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("user-123", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "pingme-service", claims.Issuer)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue("user-123", "alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnauthenticated))
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	imposter := auth.NewTokenIssuer("other-secret", time.Hour)

	token, err := imposter.Issue("user-123", "alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnauthenticated))
}

func TestVerify_RejectsGarbage(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(tokenString)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.KindUnauthenticated))
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, auth.CheckPassword("s3cret-pass", hash))
	assert.False(t, auth.CheckPassword("wrong-pass", hash))
	assert.False(t, auth.CheckPassword("s3cret-pass", "not-a-hash"))
}
