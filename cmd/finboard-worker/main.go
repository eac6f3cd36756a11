package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/auth"
	"finboard/internal/backend"
	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/services"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting finboard-worker")

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	backendCfg, err := backend.FromAppConfig(cfg, auth.LocalScope)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer result.Cleanup()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker only reads, so its ledger has no publisher.
	ledger := services.NewLedgerService(result.Store, nil, logger.WithComponent(log.ComponentLedger))
	mirrorWorker := worker.NewMirrorWorker(ledger, result.Store, sheetsClient, logger)

	// Catch up on anything published while the worker was down.
	logger.Info("Performing startup mirror pass...")
	if err := mirrorWorker.MirrorAll(ctx); err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Startup mirror pass had failures", err, log.ComponentWorker, log.OpStartup, nil)
	}

	go func() {
		if err := amqpClient.ConsumeLedgerChanges(ctx, mirrorWorker.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	go mirrorWorker.RunPeriodic(ctx, cfg.MirrorInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
