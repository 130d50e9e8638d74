package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/shoplite/authcore/internal/storage/redis"
	"github.com/shoplite/authcore/internal/util"
)

func newTestTokenConfig() *util.TokenConfig {
	return &util.TokenConfig{
		AccessSecretKey:  []byte("access-secret-for-tests"),
		RefreshSecretKey: []byte("refresh-secret-for-tests"),
		AccessTTL:        time.Hour,
		RefreshTTL:       7 * 24 * time.Hour,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ts := NewTokenService(newTestTokenConfig(), nil)

	token, err := ts.CreateAccessToken("user-1", "a@x.com", time.Now().UTC())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ts.ValidateAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestAccessTokenTampered(t *testing.T) {
	ts := NewTokenService(newTestTokenConfig(), nil)

	token, err := ts.CreateAccessToken("user-1", "a@x.com", time.Now().UTC())
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = ts.ValidateAccessToken(context.Background(), tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessTokenExpired(t *testing.T) {
	cfg := newTestTokenConfig()
	cfg.AccessTTL = -time.Minute
	ts := NewTokenService(cfg, nil)

	token, err := ts.CreateAccessToken("user-1", "a@x.com", time.Now().UTC())
	require.NoError(t, err)

	_, err = ts.ValidateAccessToken(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshSecretCarriesSessionID(t *testing.T) {
	ts := NewTokenService(newTestTokenConfig(), nil)

	secret, err := ts.CreateRefreshSecret("user-1", "a@x.com", "rid-42", time.Now().UTC())
	require.NoError(t, err)

	claims, err := ts.VerifyRefreshSecret(secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "rid-42", claims.SessionID)
}

func TestRefreshSecretRejectedByAccessKey(t *testing.T) {
	// The two kinds must not be interchangeable when a distinct refresh key
	// is configured.
	ts := NewTokenService(newTestTokenConfig(), nil)

	secret, err := ts.CreateRefreshSecret("user-1", "a@x.com", "rid-42", time.Now().UTC())
	require.NoError(t, err)

	_, err = ts.ValidateAccessToken(context.Background(), secret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshSecretExpired(t *testing.T) {
	cfg := newTestTokenConfig()
	cfg.RefreshTTL = -time.Minute
	ts := NewTokenService(cfg, nil)

	secret, err := ts.CreateRefreshSecret("user-1", "a@x.com", "rid-42", time.Now().UTC())
	require.NoError(t, err)

	_, err = ts.VerifyRefreshSecret(secret)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestInvalidateAccessToken(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ts := NewTokenService(newTestTokenConfig(), redisstore.NewDenylist(client))
	ctx := context.Background()

	token, err := ts.CreateAccessToken("user-1", "a@x.com", time.Now().UTC())
	require.NoError(t, err)

	_, err = ts.ValidateAccessToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, ts.InvalidateAccessToken(ctx, token))

	_, err = ts.ValidateAccessToken(ctx, token)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestSecretHashMatches(t *testing.T) {
	hash := HashSecret("some-refresh-secret")

	assert.True(t, SecretHashMatches("some-refresh-secret", hash))
	assert.False(t, SecretHashMatches("another-secret", hash))
	assert.False(t, SecretHashMatches("some-refresh-secret", "not-hex"))
}
