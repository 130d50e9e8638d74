package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/shoplite/authcore/internal/api"
	"github.com/shoplite/authcore/internal/controller"
	"github.com/shoplite/authcore/internal/migrations"
	"github.com/shoplite/authcore/internal/service"
	"github.com/shoplite/authcore/internal/storage/postgres"
	redisstore "github.com/shoplite/authcore/internal/storage/redis"
	"github.com/shoplite/authcore/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer dbCleanup()

	if err := migrations.RunMigrations(db, logger, "./internal/migrations"); err != nil {
		logger.Fatal(zap.Error(err))
	}

	redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer redisCleanup()

	store := postgres.NewStorage(db)
	denylist := redisstore.NewDenylist(redisClient)

	serverCfg := util.NewServerConfig()
	tokenCfg := util.NewTokenConfig()

	tokenService := service.NewTokenService(tokenCfg, denylist)
	webhookService := service.NewWebhookService(logger, util.GetWebhookURL())
	authService := service.NewAuthService(tokenService, store, webhookService, logger)
	janitor := service.NewJanitor(store, util.NewRetentionConfig(), logger)

	ctrl := controller.NewController(logger, authService, tokenCfg.RefreshTTL, serverCfg.Production)

	apiServer := api.NewAPI(ctrl, tokenService, janitor, serverCfg, util.NewRateLimiterConfig(), logger)
	apiServer.Run(ctx)
}
