package api

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/shoplite/authcore/internal/controller"
	"github.com/shoplite/authcore/internal/service"
	"github.com/shoplite/authcore/internal/util"
)

const shutdownTimeout = 5 * time.Second

type API struct {
	server          *echo.Echo
	controller      *controller.Controller
	tokens          *service.TokenService
	janitor         *service.Janitor
	rateLimiterCfg  *util.RateLimiterConfig
	log             *zap.SugaredLogger
	gracefulTimeout time.Duration
}

func NewAPI(
	c *controller.Controller,
	tokens *service.TokenService,
	janitor *service.Janitor,
	sc *util.ServerConfig,
	rlc *util.RateLimiterConfig,
	l *zap.SugaredLogger,
) *API {
	e := echo.New()

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(l)

	return &API{
		server:          e,
		controller:      c,
		tokens:          tokens,
		janitor:         janitor,
		rateLimiterCfg:  rlc,
		log:             l,
		gracefulTimeout: sc.GracefulTimeout,
	}
}

func (a *API) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.server.Use(echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a.log)))

	a.registerRoutes()

	if a.janitor != nil {
		go a.janitor.Run(ctx)
	}

	a.ListenGracefulShutdown(ctx)
}

func (a *API) registerRoutes() {
	g := a.server.Group("/api")
	g.GET("/ping", a.controller.CheckServer)

	auth := g.Group("/auth")
	auth.Use(RateLimiterMiddleware(a.rateLimiterCfg))
	auth.POST("/register", a.controller.Register)
	auth.POST("/login", a.controller.Login)
	auth.POST("/refresh", a.controller.Refresh)

	authed := auth.Group("", AccessTokenAuthMiddleware(a.tokens))
	authed.POST("/logout", a.controller.Logout)
	authed.GET("/me", a.controller.Me)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infof("Listening on: %s", a.server.Server.Addr)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Errorf("shutdown: %v", err)
	}

	longShutdown := make(chan struct{}, 1)

	go func() {
		time.Sleep(a.gracefulTimeout)
		longShutdown <- struct{}{}
	}()

	select {
	case <-shutdownCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			a.log.Info("server shutdown completed")
		} else {
			a.log.Errorf("server shutdown: %v", ctx.Err())
		}
	case <-longShutdown:
		a.log.Infof("finished")
	}
}
