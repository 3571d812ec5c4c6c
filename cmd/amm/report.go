package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/config"
	"liquidityPool/internal/report"
	"liquidityPool/internal/storage"
	"liquidityPool/internal/storage/postgres"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate the operation journal into window metrics",
		RunE:  runReport,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	cmd.Flags().String("out", "", "output window metrics JSONL")
	cmd.Flags().Int("batch-size", 1000, "windows per sink write")
	cmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	cmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}
	if cfg.Out == "" && cfg.PGDSN == "" {
		return fmt.Errorf("one of --out or --pg-dsn is required")
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	if windowDuration <= 0 {
		return fmt.Errorf("window must be positive")
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	return runApp(cmd, cfg.Config, func(ctx context.Context, a *app) error {
		var (
			sinks []report.Sink
			pg    *postgres.Store
		)
		if cfg.Out != "" {
			sinks = append(sinks, report.NewFileSink(cfg.Out))
		}
		if cfg.PGDSN != "" {
			store, err := storage.OpenPostgres(ctx, storage.Config{
				DSN:             cfg.PGDSN,
				ConnectAttempts: cfg.ConnectAttempts,
				ConnectDelay:    cfg.ConnectDelay,
			}, a.logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()
			pg = store
			sinks = append(sinks, store)
		}

		var stateStore report.StateStore
		switch {
		case cfg.StateFile != "":
			stateStore = &report.FileStateStore{Path: cfg.StateFile}
		case pg != nil:
			stateStore = &report.DBStateStore{Store: pg, Name: fmt.Sprintf("report:%d", windowSeconds)}
		}

		records, err := a.svc.Pools(ctx)
		if err != nil {
			return err
		}

		agg := report.NewAggregator(report.Config{
			WindowSeconds: windowSeconds,
			BatchSize:     cfg.BatchSize,
			RecomputeFrom: recomputeFrom,
			StateStore:    stateStore,
			Decimals:      cfg.Decimals,
		}, a.logger, sinks...)
		agg.RegisterPools(records)

		a.logger.Info("report start",
			zap.String("journal", cfg.Journal),
			zap.String("out", cfg.Out),
			zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
			zap.Uint64("window_seconds", windowSeconds),
			zap.Int("batch_size", cfg.BatchSize),
			zap.Uint64("recompute_from", recomputeFrom),
		)

		stats, err := agg.Run(ctx, cfg.Journal)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	})
}
