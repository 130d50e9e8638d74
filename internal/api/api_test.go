package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplite/authcore/internal/controller"
	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/service"
	"github.com/shoplite/authcore/internal/storage/memory"
	redisstore "github.com/shoplite/authcore/internal/storage/redis"
	"github.com/shoplite/authcore/internal/util"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := zap.NewNop().Sugar()
	tokenCfg := &util.TokenConfig{
		AccessSecretKey:  []byte("access-secret-for-tests"),
		RefreshSecretKey: []byte("refresh-secret-for-tests"),
		AccessTTL:        time.Hour,
		RefreshTTL:       7 * 24 * time.Hour,
	}

	store := memory.NewStorage()
	tokens := service.NewTokenService(tokenCfg, redisstore.NewDenylist(client))
	authService := service.NewAuthService(tokens, store, nil, log)
	ctrl := controller.NewController(log, authService, tokenCfg.RefreshTTL, false)

	a := NewAPI(
		ctrl,
		tokens,
		nil,
		&util.ServerConfig{ServerAddr: "localhost:0"},
		&util.RateLimiterConfig{Rate: 100, Burst: 100},
		log,
	)
	a.registerRoutes()
	return a
}

func doJSON(t *testing.T, a *API, method, path string, body interface{}, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echoHeaderContentType, "application/json")
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == controller.RefreshCookieName {
			return c
		}
	}
	t.Fatal("no refresh cookie in response")
	return nil
}

func TestRegisterSetsRefreshCookie(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "a@x.com", Password: "correct-horse-battery", Device: "phoneA",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.AccessTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)

	cookie := refreshCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/auth", cookie.Path)
}

func TestRefreshRotatesCookie(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "a@x.com", Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	r1 := refreshCookie(t, rec)

	rec = doJSON(t, a, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(r1)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	r2 := refreshCookie(t, rec)
	assert.NotEqual(t, r1.Value, r2.Value)

	// Replaying R1 is a reuse event: opaque 401 and the cookie is cleared.
	rec = doJSON(t, a, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(r1)
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"reason":"unauthorized"}`, rec.Body.String())
	cleared := refreshCookie(t, rec)
	assert.Empty(t, cleared.Value)

	// The teardown covered R2's lineage too.
	rec = doJSON(t, a, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(r2)
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"reason":"unauthorized"}`, rec.Body.String())
}

func TestRefreshWithoutCookie(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"reason":"unauthorized"}`, rec.Body.String())
}

func TestLoginBadCredentialsAreOpaque(t *testing.T) {
	a := newTestAPI(t)

	doJSON(t, a, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "a@x.com", Password: "correct-horse-battery",
	})

	wrongPassword := doJSON(t, a, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email: "a@x.com", Password: "wrong",
	})
	unknownEmail := doJSON(t, a, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email: "nobody@x.com", Password: "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLogoutClearsEverything(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "a@x.com", Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.AccessTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cookie := refreshCookie(t, rec)

	bearer := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	}

	rec = doJSON(t, a, http.MethodGet, "/api/auth/me", nil, bearer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodPost, "/api/auth/logout", nil, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := refreshCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The access token went onto the denylist.
	rec = doJSON(t, a, http.MethodGet, "/api/auth/me", nil, bearer)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// And the refresh secret's session family is revoked.
	rec = doJSON(t, a, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(cookie)
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "a@x.com", Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, a, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "a@x.com", Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}
