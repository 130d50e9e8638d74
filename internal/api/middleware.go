package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/service"
	"github.com/shoplite/authcore/internal/util"
)

const bearerPrefix = "Bearer "

// AccessTokenAuthMiddleware guards endpoints that need an authenticated user.
// The raw token is kept in the request context so logout can denylist it.
func AccessTokenAuthMiddleware(tokens *service.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return service.ErrUnauthorized
			}
			token := strings.TrimPrefix(header, bearerPrefix)

			userID, err := tokens.ValidateAccessToken(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(models.CtxUserIDKey, userID)
			c.Set(models.CtxAccessTokenKey, token)
			return next(c)
		}
	}
}

// RateLimiterMiddleware bounds attempts on the credential-facing endpoints,
// keyed by client IP.
func RateLimiterMiddleware(cfg *util.RateLimiterConfig) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(
			echomiddleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(cfg.Rate),
				Burst: cfg.Burst,
			},
		),
	})
}

func GetLoggerMiddlewareConfig(log *zap.SugaredLogger) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Errorw("Request", fields...)
			} else {
				log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
