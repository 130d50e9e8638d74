package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shoplite/authcore/internal/controller"
	"github.com/shoplite/authcore/internal/service"
	"github.com/shoplite/authcore/internal/util"
)

// ErrorHandler collapses every authentication failure to the same opaque 401.
// Whether a refresh secret was expired, malformed or replayed is logged
// internally and never surfaces to the client.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if isAuthFailure(err) {
			log.Infow("authentication failure", "error", err, "uri", c.Request().RequestURI)
			writeJSON(log, c, http.StatusUnauthorized, controller.ErrorResponse{Reason: "unauthorized"})
			return
		}

		var respErr util.ResponseError
		if errors.As(err, &respErr) {
			writeJSON(log, c, respErr.Status, controller.ErrorResponse{Reason: respErr.Msg})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			if he.Code == http.StatusInternalServerError {
				log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
			}
			reason, ok := he.Message.(string)
			if !ok {
				reason = http.StatusText(he.Code)
			}
			writeJSON(log, c, he.Code, controller.ErrorResponse{Reason: reason})
			return
		}

		log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		writeJSON(log, c, http.StatusInternalServerError, controller.ErrorResponse{Reason: "internal server error"})
	}
}

func isAuthFailure(err error) bool {
	return errors.Is(err, service.ErrUnauthorized) ||
		errors.Is(err, service.ErrReuseDetected) ||
		errors.Is(err, service.ErrInvalidCredentials) ||
		errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenRevoked)
}

func writeJSON(log *zap.SugaredLogger, c echo.Context, status int, body interface{}) {
	if err := c.JSON(status, body); err != nil {
		log.Errorw("failed to write json response", "error", err)
	}
}
