package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"hucha/internal/amqp"
	"hucha/internal/config"
	applog "hucha/internal/log"
	"hucha/internal/mirror"
	"hucha/internal/mirror/google"
	"hucha/internal/mirror/memory"
	"hucha/internal/storage"
	"hucha/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.Setup("hucha-worker")
	logger.Info("Starting hucha-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("Worker requires AMQP_URL")
		os.Exit(1)
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	var appender mirror.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		appender, err = google.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		// Keeps consuming and marking entries synced; useful for local runs.
		appender = memory.New()
		logger.Info("Google Sheets disabled - using in-memory mirror")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(store, appender, cfg.SyncBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up on anything missed while the worker was down.
	logger.Info("Performing startup sync check")
	if err := syncWorker.ProcessPending(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
			return syncWorker.HandleSyncMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DataBackend == "postgres" {
		return storage.NewPostgresStore(ctx, cfg.PostgresURL)
	}
	return storage.NewSQLiteStore(cfg.SQLiteDBPath)
}
