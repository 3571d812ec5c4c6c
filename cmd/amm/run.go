package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/config"
	"liquidityPool/internal/scenario"
	"liquidityPool/internal/storage"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay an operation script against the pools",
		RunE:  runScenario,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("script", "", "operation script JSONL")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().Int("parallelism", 8, "pools replayed concurrently, 0 means unbounded")
	cmd.Flags().String("results", "", "optional JSONL path for step results")
	return cmd
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScenario(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Script == "" {
		return fmt.Errorf("script path is required")
	}

	script, err := scenario.ParseFile(cfg.Script)
	if err != nil {
		return err
	}

	return runApp(cmd, cfg.Config, func(ctx context.Context, a *app) error {
		runner := scenario.NewRunner(scenario.RunConfig{
			Name:              filepath.Base(cfg.Script),
			Decimals:          cfg.Decimals,
			CheckpointPath:    cfg.Checkpoint,
			CheckpointEnabled: cfg.CheckpointEnabled,
			Parallelism:       cfg.Parallelism,
		}, a.svc, a.ledger, a.logger)

		a.logger.Info("scenario start",
			zap.String("script", cfg.Script),
			zap.Int("steps", len(script.Steps)),
			zap.Int("pools", len(script.Pools)),
			zap.String("store", cfg.StoreBackend),
			zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
			zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
			zap.String("checkpoint", cfg.Checkpoint),
			zap.Int("parallelism", cfg.Parallelism),
		)

		summary, runErr := runner.Run(ctx, script)
		if cfg.Results != "" {
			if err := storage.AppendJSONL(cfg.Results, summary.Results); err != nil {
				a.logger.Error("write results", zap.Error(err))
			}
		}
		if runErr != nil {
			return runErr
		}
		return printJSON(cmd, struct {
			Executed int `json:"executed"`
			Skipped  int `json:"skipped"`
		}{summary.Executed, summary.Skipped})
	})
}
