package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/service"
	"github.com/shoplite/authcore/internal/storage"
)

// RefreshCookieName is the out-of-band channel for refresh secrets. The
// secret never appears in a response body.
const RefreshCookieName = "refresh_token"

type ErrorResponse struct {
	Reason string `json:"reason"`
}

type Controller struct {
	log         *zap.SugaredLogger
	authService *service.AuthService
	refreshTTL  time.Duration
	production  bool
}

func NewController(log *zap.SugaredLogger, authService *service.AuthService, refreshTTL time.Duration, production bool) *Controller {
	return &Controller{
		log:         log,
		authService: authService,
		refreshTTL:  refreshTTL,
		production:  production,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/auth/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	_, pair, err := c.authService.Register(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		return err
	}

	c.setRefreshCookie(ctx, pair.RefreshSecret)
	return ctx.JSON(http.StatusCreated, models.AccessTokenResponse{AccessToken: pair.AccessToken})
}

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	_, pair, err := c.authService.Login(ctx.Request().Context(), req)
	if err != nil {
		return err
	}

	c.setRefreshCookie(ctx, pair.RefreshSecret)
	return ctx.JSON(http.StatusOK, models.AccessTokenResponse{AccessToken: pair.AccessToken})
}

// (POST /api/auth/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	cookie, err := ctx.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return service.ErrUnauthorized
	}

	pair, err := c.authService.Rotate(ctx.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) || errors.Is(err, service.ErrReuseDetected) {
			c.clearRefreshCookie(ctx)
		}
		return err
	}

	c.setRefreshCookie(ctx, pair.RefreshSecret)
	return ctx.JSON(http.StatusOK, models.AccessTokenResponse{AccessToken: pair.AccessToken})
}

// (POST /api/auth/logout). Requires the access-token middleware.
func (c *Controller) Logout(ctx echo.Context) error {
	userID, _ := ctx.Get(models.CtxUserIDKey).(string)
	accessToken, _ := ctx.Get(models.CtxAccessTokenKey).(string)
	if userID == "" {
		return service.ErrUnauthorized
	}

	if err := c.authService.Logout(ctx.Request().Context(), userID, accessToken); err != nil {
		return err
	}

	c.clearRefreshCookie(ctx)
	return ctx.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// (GET /api/auth/me). Requires the access-token middleware.
func (c *Controller) Me(ctx echo.Context) error {
	userID, _ := ctx.Get(models.CtxUserIDKey).(string)
	if userID == "" {
		return service.ErrUnauthorized
	}

	user, err := c.authService.GetUser(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
}

func (c *Controller) setRefreshCookie(ctx echo.Context, secret string) {
	sameSite := http.SameSiteLaxMode
	if c.production {
		sameSite = http.SameSiteStrictMode
	}
	ctx.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    secret,
		Path:     "/api/auth",
		MaxAge:   int(c.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.production,
		SameSite: sameSite,
	})
}

func (c *Controller) clearRefreshCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.production,
	})
}
