package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hucha/internal/amqp"
	"hucha/internal/config"
	apphttp "hucha/internal/http"
	applog "hucha/internal/log"
	"hucha/internal/services"
	"hucha/internal/storage"
)

func main() {
	// Load .env for local development; ignore errors in production.
	_ = godotenv.Load()

	logger := applog.Setup("hucha")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	// Sync events are optional: without AMQP the ledger still works and the
	// worker's sweep picks entries up from the database.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	lifecycle := services.NewLifecycleService(store, events)
	ledger := services.NewLedgerService(store, events)
	cash := services.NewCashService(store, events)
	summary := services.NewSummaryService(store, cash)
	piggy := services.NewPiggyBankService(store, events)

	srv := apphttp.NewServer(":"+cfg.Port, lifecycle, ledger, cash, summary, piggy)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting hucha server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DataBackend == "postgres" {
		slog.Info("Using Postgres backend")
		return storage.NewPostgresStore(ctx, cfg.PostgresURL)
	}
	slog.Info("Using SQLite backend", "path", cfg.SQLiteDBPath)
	return storage.NewSQLiteStore(cfg.SQLiteDBPath)
}
