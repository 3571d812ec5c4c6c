package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityPool/internal/config"
	"liquidityPool/internal/custody"
	"liquidityPool/internal/metrics"
	"liquidityPool/internal/pool"
	"liquidityPool/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Two-asset constant product pools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newInitCmd(), newQuoteCmd(), newShowCmd(), newRunCmd(), newReportCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addCommonFlags registers the flags every pool command understands.
func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("store", "file", "pool store backend (memory, file, pebble, postgres)")
	flags.String("store-path", "./data/pools", "directory for the file and pebble stores")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.Int("cache-size", 128, "pool record cache entries, 0 disables the cache")
	flags.Uint("connect-attempts", 5, "Postgres connection attempts")
	flags.Duration("connect-delay", 500*time.Millisecond, "initial delay between connection attempts")
	flags.String("ledger", "./data/ledger.json", "custody ledger snapshot path")
	flags.String("journal", "./data/journal.jsonl", "operation journal JSONL path")
	flags.String("metrics-file", "", "write prometheus metrics to this file on exit")
	flags.String("decimals", "", "asset decimals (comma-separated asset=decimals)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

// app wires the pool service to its collaborators for one command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	ledger   *custody.Ledger
	snapshot *custody.SnapshotFile
	registry *prometheus.Registry
	svc      *pool.Service
}

func openApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := storage.Open(ctx, storage.Config{
		Backend:         cfg.StoreBackend,
		Path:            cfg.StorePath,
		DSN:             cfg.PGDSN,
		CacheSize:       cfg.CacheSize,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectDelay:    cfg.ConnectDelay,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ledger := custody.NewLedger(logger)
	var snapshot *custody.SnapshotFile
	if cfg.LedgerSnapshot != "" {
		snapshot = custody.NewSnapshotFile(cfg.LedgerSnapshot)
		if err := snapshot.LoadInto(ledger); err != nil {
			store.Close()
			return nil, fmt.Errorf("load ledger: %w", err)
		}
	}

	var journal pool.Journal
	if cfg.Journal != "" {
		journal = storage.NewJournal(cfg.Journal)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ledger:   ledger,
		snapshot: snapshot,
		registry: registry,
		svc:      pool.NewService(store, ledger, journal, m, logger),
	}, nil
}

// Close persists the ledger, writes metrics and closes the store.
func (a *app) Close() error {
	var firstErr error
	if a.snapshot != nil {
		if err := a.snapshot.Save(a.ledger.Snapshot()); err != nil {
			firstErr = fmt.Errorf("save ledger: %w", err)
		}
	}
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteFile(a.cfg.MetricsFile, a.registry); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	return firstErr
}

func (a *app) decimals(asset string) uint8 {
	return a.cfg.Decimals[asset]
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
