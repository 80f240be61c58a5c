package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"bajeti/internal/amqp"
	"bajeti/internal/auth"
	"bajeti/internal/cache"
	"bajeti/internal/cache/redis"
	"bajeti/internal/cli"
	"bajeti/internal/config"
	apphttp "bajeti/internal/http"
	"bajeti/internal/log"
	"bajeti/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateServer)
	logger := cli.SetupLogger(cfg, log.ComponentHTTP)

	res, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	overviews := cache.NewOverviews(cfg.CacheSize, cfg.CacheTTL)
	var shared *redis.Store
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		shared, err = redis.New(ctx, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		cancel()
		if err != nil {
			logger.Warn("Failed to connect to Redis, using the in-process overview cache", "error", err)
		} else {
			overviews.WithShared(shared)
			logger.Info("Using Redis for the overview cache", "addr", cfg.RedisAddr)
		}
	}
	deps := services.Deps{Store: res.Store, Cache: overviews}

	// Ledger events are optional: the API keeps working without a broker.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			deps.Publisher = publisher
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.New(deps)
	svc.Reports.WithOverviewCache(overviews)
	authSvc := auth.NewService(res.Store, auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL)).WithCost(cfg.BcryptCost)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                   ":" + cfg.Port,
		Services:               svc,
		Auth:                   authSvc,
		Store:                  res.Store,
		Overviews:              overviews,
		Logger:                 logger,
		RateLimitPerMinute:     cfg.RateLimitPerMinute,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		BlockSuspicious:        cfg.BlockSuspicious,
		ReadTimeout:            cfg.ReadTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		IdleTimeout:            cfg.IdleTimeout,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if publisher != nil {
			publisher.Close()
		}
		if shared != nil {
			shared.Close()
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	})

	logger.Info("Starting bajeti API", "port", cfg.Port, "backend", cfg.DataBackend, "ledger_events", deps.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
