package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"frameworks/herald/internal/api"
	heraldconfig "frameworks/herald/internal/config"
	"frameworks/herald/internal/conversations"
	"frameworks/herald/internal/identity"
	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/internal/tokens"
	"frameworks/herald/pkg/auth"
	"frameworks/herald/pkg/config"
	"frameworks/herald/pkg/database"
	"frameworks/herald/pkg/logging"
	"frameworks/herald/pkg/monitoring"
	heraldredis "frameworks/herald/pkg/redis"
	"frameworks/herald/pkg/server"
	"frameworks/herald/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("herald")
	config.LoadEnv(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := heraldconfig.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	logger.WithField("version", version.String()).Info("Starting Herald API")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := database.Connect(connectCtx, database.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		cancel()
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(connectCtx, db, logger); err != nil {
		cancel()
		logger.WithError(err).Fatal("Failed to apply schema")
	}

	rdb, err := heraldredis.Connect(connectCtx, heraldredis.Config{URL: cfg.RedisURL})
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = rdb.Close() }()

	healthChecker := monitoring.NewHealthChecker("herald", version.Version)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(rdb))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}))
	metricsCollector := monitoring.NewMetricsCollector("herald", version.Version, nil)

	router := server.SetupServiceRouter(logger, healthChecker, metricsCollector)
	api.RegisterRoutes(router, &api.Handler{
		Queue:      taskqueue.NewRedisQueue(rdb, cfg.QueueName, logger),
		Channel:    progress.NewChannel(rdb, logger),
		Identities: identity.NewStore(db),
		Tokens:     tokens.NewStore(database.SharedOpener(db), logger),
		History:    conversations.NewStore(db),
		FreeLimit:  cfg.FreeLimit,
		Logger:     logger,
	}, auth.JWTAuthMiddleware([]byte(cfg.JWTSecret)))

	if err := server.Start(ctx, server.DefaultConfig("herald", cfg.Port), router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
