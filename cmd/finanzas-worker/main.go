package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/sheets"
	gsheet "finanzas/internal/sheets/google"
	memmirror "finanzas/internal/sheets/memory"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting finanzas-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the worker only reads the store; it must not publish events of its own
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	res := cli.InitStore(ctx, logger, &storeCfg)

	var mirror sheets.Mirror
	if cfg.MirrorEnabled() {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		if err := client.EnsureHeaders(ctx); err != nil {
			logger.Error("Failed to prepare spreadsheet", "error", err, "spreadsheet_id", cfg.GoogleSpreadsheetID)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memmirror.New()
		logger.Info("Google Sheets disabled - mirroring in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(res.Store, mirror, cfg.SyncBatchSize)
	reconciler := services.NewReconciler(syncWorker.StartupSyncCheck, services.ReconcilerConfig{
		Interval:   cfg.SyncInterval,
		RunOnStart: true,
	})
	if err := reconciler.Start(ctx); err != nil {
		logger.Error("Failed to start reconciler", "error", err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		cancel()
		if err := reconciler.Stop(ctx); err != nil {
			logger.Error("Reconciler stop error", "error", err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Store cleanup error", "error", err)
			}
		}
	})

	go func() {
		err := amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleLedgerEvent)
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"mirror", cfg.MirrorEnabled(),
		"sync_interval", cfg.SyncInterval)
	cli.WaitForShutdown(shutdownCtx, done)
}
