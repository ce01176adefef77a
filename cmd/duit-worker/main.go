package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"duit/internal/amqp"
	"duit/internal/backend"
	"duit/internal/config"
	"duit/internal/export"
	applog "duit/internal/log"
	"duit/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig("duit-worker"))
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.Build(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("backend initialization failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("cleanup failed", "error", err)
		}
	}()

	mirror := buildMirror(ctx, cfg, logger)
	syncWorker := worker.NewSyncWorker(result.Store, mirror)

	// Catch up on anything written while the worker was down.
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("startup sync failed", "error", err)
		// Keep running; the message stream still applies future changes.
	}

	scheduler := cron.New()
	archiver := worker.NewArchiver(result.Store)
	if _, err := archiver.Schedule(ctx, scheduler); err != nil {
		logger.Error("failed to schedule archiver", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)

	if result.Publisher != nil {
		client := result.Publisher
		g.Go(func() error {
			logger.Info("consuming sync messages",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			err := client.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
				return syncWorker.HandleMessage(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP not configured, running archive schedule only")
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}

// buildMirror picks the spreadsheet mirror when credentials are
// configured and falls back to the in-memory one, which keeps the
// archive schedule useful on deployments without Sheets.
func buildMirror(ctx context.Context, cfg *config.Config, logger *applog.Logger) export.Mirror {
	if !cfg.SheetsConfigured() {
		logger.Info("Google Sheets not configured, using in-memory mirror")
		return export.NewMemoryMirror()
	}

	creds, err := cfg.SheetsCredentials()
	if err != nil {
		logger.Error("failed to read sheets credentials, using in-memory mirror", "error", err)
		return export.NewMemoryMirror()
	}
	mirror, err := export.NewSheetsMirror(ctx, export.SheetsConfig{
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		SheetName:       cfg.SheetsSheetName,
		CredentialsJSON: creds,
	})
	if err != nil {
		logger.Error("failed to build sheets mirror, using in-memory mirror", "error", err)
		return export.NewMemoryMirror()
	}
	logger.Info("sheets mirror ready", "spreadsheet_id", cfg.SheetsSpreadsheetID, "sheet", cfg.SheetsSheetName)
	return mirror
}
