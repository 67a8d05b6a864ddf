// Package main is the entry point for the chart-service HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/config"
	"github.com/fleveque/chart-service/internal/server"
	"github.com/fleveque/chart-service/internal/service"
	"github.com/fleveque/chart-service/internal/storage"
	"github.com/fleveque/chart-service/internal/upstream"
)

func main() {
	// run() is separate so deferred cleanup executes before os.Exit
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CHART_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr; not a real problem.
	defer func() { _ = logger.Sync() }()

	// Relational backend. A missing path or a failed open puts the service
	// into degraded mode: file-backed routes keep working, database-backed
	// ones answer 503. The process does not crash.
	var db *sqlx.DB
	if cfg.Storage.DatabasePath == "" {
		logger.Warn("no database path configured, running in degraded mode")
	} else {
		db, err = storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Warn("database unavailable, running in degraded mode", zap.Error(err))
			db = nil
		}
	}
	if db != nil {
		defer db.Close()
	}

	files, err := storage.NewFileStore(cfg.Storage.ChartDir)
	if err != nil {
		return fmt.Errorf("creating file store: %w", err)
	}

	fetcher, err := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Storage.StagingDir, cfg.Upstream.Timeout(), logger)
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}

	policy := service.FreshnessPolicy{TTL: cfg.Cache.TTL()}

	deps := server.Deps{
		DB:      db,
		Static:  service.NewChartService(files, fetcher, policy, logger),
		Uploads: service.NewUploadValidator(files, logger),
	}
	if db != nil {
		deps.Charts = service.NewChartService(storage.NewChartRepository(db), fetcher, policy, logger)
	}

	srv := server.New(cfg, deps, logger)

	// Graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
