package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"frameworks/herald/internal/agent"
	heraldconfig "frameworks/herald/internal/config"
	"frameworks/herald/internal/extract"
	"frameworks/herald/internal/jobs"
	"frameworks/herald/internal/platform"
	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/publisher"
	"frameworks/herald/internal/runlog"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/internal/tokens"
	"frameworks/herald/pkg/config"
	"frameworks/herald/pkg/database"
	"frameworks/herald/pkg/kafka"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
	"frameworks/herald/pkg/monitoring"
	heraldredis "frameworks/herald/pkg/redis"
	"frameworks/herald/pkg/search"
	"frameworks/herald/pkg/server"
	"frameworks/herald/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("herald-worker")
	config.LoadEnv(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := heraldconfig.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	logger.WithFields(logging.Fields{
		"version":    version.String(),
		"workers":    cfg.Workers,
		"time_limit": cfg.JobTimeLimit,
	}).Info("Starting Herald worker")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// The schema is applied once here through a short-lived handle; jobs
	// open their own connections.
	migrateDB, err := database.Connect(connectCtx, database.ScopedConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(connectCtx, migrateDB, logger); err != nil {
		logger.WithError(err).Fatal("Failed to apply schema")
	}
	_ = migrateDB.Close()

	rdb, err := heraldredis.Connect(connectCtx, heraldredis.Config{URL: cfg.RedisURL})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = rdb.Close() }()

	cfg.LLM.Logger = logger
	model, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure LLM provider")
	}

	var searcher search.Provider
	if sp, err := search.NewProvider(cfg.Search); err != nil {
		logger.WithError(err).Warn("Search disabled; research step will be skipped")
	} else {
		searcher = sp
	}

	fetcherOpts := []extract.FetcherOption{extract.WithLogger(logger)}
	if cfg.RenderJS {
		renderer, err := extract.NewRodRenderer()
		if err != nil {
			logger.WithError(err).Warn("Headless rendering unavailable; fetching raw HTML only")
		} else {
			defer renderer.Close()
			fetcherOpts = append(fetcherOpts, extract.WithRenderer(renderer))
		}
	}

	tokenStore := tokens.NewStore(database.NewScopedOpener(cfg.DatabaseURL), logger)
	poster := publisher.New(tokenStore, map[platform.Platform]publisher.PlatformClient{
		platform.Facebook:  publisher.NewFacebookClient(publisher.ClientConfig{BaseURL: cfg.FacebookGraphURL, Logger: logger}),
		platform.Instagram: publisher.NewInstagramClient(publisher.ClientConfig{BaseURL: cfg.InstagramGraphURL, Logger: logger}),
		platform.LinkedIn:  publisher.NewLinkedInClient(publisher.ClientConfig{BaseURL: cfg.LinkedInAPIURL, Logger: logger}),
	}, logger)

	healthChecker := monitoring.NewHealthChecker("herald-worker", version.Version)
	healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(rdb))

	var runs *runlog.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "herald-worker", logger)
		if err != nil {
			logger.WithError(err).Warn("Kafka unavailable; run summaries disabled")
		} else {
			defer producer.Close()
			runs = runlog.NewPublisher(producer, cfg.RunsTopic, logger)
			healthChecker.AddCheck("kafka", monitoring.KafkaHealthCheck(producer))
		}
	}

	handler := &jobs.Handler{
		Open:    database.NewScopedOpener(cfg.DatabaseURL),
		Channel: progress.NewChannel(rdb, logger),
		Agent: agent.Deps{
			LLM:             model,
			Search:          searcher,
			Fetcher:         extract.NewFetcher(cfg.FetchTimeout, fetcherOpts...),
			Extractor:       extract.Extractor{Mode: cfg.ExtractMode},
			Poster:          poster,
			ResearchResults: cfg.ResearchResults,
			MediaDir:        cfg.MediaDir,
			Logger:          logger,
		},
		Runs:   runs,
		Logger: logger,
	}
	runner := &taskqueue.Runner{
		Queue:     taskqueue.NewRedisQueue(rdb, cfg.QueueName, logger),
		Handler:   handler.Handle,
		OnFailure: handler.Fail,
		Workers:   cfg.Workers,
		TimeLimit: cfg.JobTimeLimit,
		Logger:    logger,
	}

	metricsCollector := monitoring.NewMetricsCollector("herald-worker", version.Version, nil)
	router := server.SetupServiceRouter(logger, healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error {
		return server.Start(gctx, server.DefaultConfig("herald-worker", "18031"), router, logger)
	})
	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Worker stopped with error")
	}
	logger.Info("Herald worker stopped")
}
