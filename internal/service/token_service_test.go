package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/models"
	"github.com/qcom/authapi/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T) (*TokenService, *testutil.TokenStore) {
	t.Helper()
	store := testutil.NewTokenStore()
	s, err := NewTokenService(store, &config.JWTConfig{SecretKey: testSecret, AccessExpiry: time.Hour}, testutil.DiscardLogger())
	require.NoError(t, err)
	return s, store
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService(testutil.NewTokenStore(), &config.JWTConfig{SecretKey: "short"}, testutil.DiscardLogger())
	assert.Error(t, err)
}

func TestTokenService_IssueAndResolve(t *testing.T) {
	s, store := newTestTokenService(t)
	ctx := context.Background()

	resp, err := s.Issue(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 1, store.CountForUser("u1"))

	userID, err := s.Resolve(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestTokenService_RevokeAll(t *testing.T) {
	s, store := newTestTokenService(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, "u1")
	require.NoError(t, err)
	second, err := s.Issue(ctx, "u1")
	require.NoError(t, err)
	other, err := s.Issue(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, s.RevokeAll(ctx, "u1"))
	assert.Equal(t, 0, store.CountForUser("u1"))

	_, err = s.Resolve(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.Resolve(ctx, second.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	userID, err := s.Resolve(ctx, other.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u2", userID)

	require.NoError(t, s.RevokeAll(ctx, "u1"), "revoking with no tokens succeeds")
}

func TestTokenService_ResolveRejects(t *testing.T) {
	s, _ := newTestTokenService(t)
	ctx := context.Background()

	_, err := s.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Signed with another key.
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: tokenIssuer, Subject: "u1", ID: "j1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)
	_, err = s.Resolve(ctx, foreign)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenService_ResolveExpired(t *testing.T) {
	s, _ := newTestTokenService(t)
	ctx := context.Background()

	resp, err := s.Issue(ctx, "u1")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Resolve(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenService_ResolveSubjectMismatch(t *testing.T) {
	s, store := newTestTokenService(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, models.Token{JTI: "j1", UserID: "someone-else", ExpiresAt: time.Now().Add(time.Hour)}))
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: tokenIssuer, Subject: "u1", ID: "j1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = s.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
