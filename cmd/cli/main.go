// Package main provides the CLI tool for the chart-service: bulk prefetch
// of charts and listing what's cached, without going through the HTTP API.
//
// Run with: go run ./cmd/cli fetch AAPL MSFT GOOG
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/config"
	"github.com/fleveque/chart-service/internal/service"
	"github.com/fleveque/chart-service/internal/storage"
	"github.com/fleveque/chart-service/internal/upstream"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chart-cli",
		Short: "Chart service CLI tools",
	}

	root.AddCommand(fetchCmd())
	root.AddCommand(listCmd())
	return root
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch SYMBOL...",
		Short: "Prefetch charts for one or more symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(args)
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached chart symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

// buildService wires the same stack as cmd/server, minus the HTTP layer.
// The CLI requires the database: prefetching into a degraded service would
// silently cache nothing the API path can see.
func buildService(logger *zap.Logger) (*service.ChartService, func(), error) {
	cfg, err := config.Load(os.Getenv("CHART_CONFIG_PATH"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Storage.DatabasePath == "" {
		return nil, nil, storage.ErrBackendUnavailable
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	fetcher, err := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Storage.StagingDir, cfg.Upstream.Timeout(), logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating upstream client: %w", err)
	}

	policy := service.FreshnessPolicy{TTL: cfg.Cache.TTL()}
	svc := service.NewChartService(storage.NewChartRepository(db), fetcher, policy, logger)
	return svc, func() { db.Close() }, nil
}

func runFetch(symbols []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, cleanup, err := buildService(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Ctrl+C cancels the context: the in-flight fetch is abandoned with
	// its staged file discarded, and the remaining symbols fail fast with
	// their cancellation recorded in the outcome list.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcomes := svc.FetchBatch(ctx, symbols)

	failed := 0
	for _, o := range outcomes {
		if o.OK {
			status := "cached"
			if o.Committed != "" {
				status = string(o.Committed)
			}
			fmt.Printf("%-10s ok (%s)\n", o.Symbol, status)
			continue
		}
		failed++
		fmt.Printf("%-10s FAILED: %s\n", o.Symbol, o.Error)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(outcomes))
	}
	return nil
}

func runList() error {
	logger := zap.NewNop()

	svc, cleanup, err := buildService(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	infos, err := svc.List(context.Background())
	if err != nil {
		return err
	}

	for _, info := range infos {
		fmt.Printf("%-10s updated %s\n", info.Symbol, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("%d charts cached\n", len(infos))
	return nil
}
