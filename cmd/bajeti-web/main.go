package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"bajeti/internal/apiclient"
	"bajeti/internal/cli"
	"bajeti/internal/config"
	"bajeti/internal/log"
	"bajeti/internal/web"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentWeb)

	client := apiclient.New(cfg.APIBaseURL, &http.Client{Timeout: 10 * time.Second})
	srv, err := web.NewServer(web.Options{
		Addr:          ":" + cfg.WebPort,
		API:           client,
		Logger:        logger,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		logger.Error("Failed to build web server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting bajeti web", "port", cfg.WebPort, "api", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.WebPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
