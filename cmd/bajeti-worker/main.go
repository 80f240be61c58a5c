package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bajeti/internal/amqp"
	"bajeti/internal/cli"
	"bajeti/internal/config"
	"bajeti/internal/log"
	"bajeti/internal/sheets"
	gsheet "bajeti/internal/sheets/google"
	"bajeti/internal/sheets/memory"
	"bajeti/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting bajeti-worker")

	var writer sheets.LedgerWriter
	if cfg.LedgerDryRun {
		writer = memory.New()
		logger.Warn("Ledger dry run: events are kept in memory only")
	} else {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ledgerWorker := worker.NewLedgerWorker(writer).WithLogger(logger)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		amqpClient.Close()
		s := ledgerWorker.Stats()
		logger.Info("Worker stats", "exported", s.Exported, "dropped", s.Dropped, "failed", s.Failed)
	})

	err = amqpClient.ConsumeLedgerEvents(ctx, cfg.WorkerPrefetch, ledgerWorker.HandleLedgerMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
