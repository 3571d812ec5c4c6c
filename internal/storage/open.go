package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"liquidityPool/internal/storage/postgres"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPebble   = "pebble"
	BackendPostgres = "postgres"
)

// Config selects and configures a Store backend.
type Config struct {
	Backend string
	// Path is the directory for the file and pebble backends.
	Path            string
	DSN             string
	CacheSize       int
	ConnectAttempts uint
	ConnectDelay    time.Duration
}

// Open builds the configured Store, wrapped in a CachedStore when CacheSize
// is positive.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		store = NewMemoryStore()
	case BackendFile:
		store, err = NewFileStore(cfg.Path)
	case BackendPebble:
		store, err = NewPebbleStore(cfg.Path)
	case BackendPostgres:
		store, err = OpenPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCachedStore(store, cfg.CacheSize)
		if err != nil {
			store.Close()
			return nil, err
		}
		store = cached
	}

	logger.Info("store opened", zap.String("backend", cfg.Backend), zap.Int("cache_size", cfg.CacheSize))
	return store, nil
}

// OpenPostgres connects to Postgres, retrying while the server is not
// reachable, and makes sure the schema exists.
func OpenPostgres(ctx context.Context, cfg Config, logger *zap.Logger) (*postgres.Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := cfg.ConnectDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var store *postgres.Store
	err := retry.Do(func() error {
		s, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return err
		}
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return err
		}
		store = s
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("postgres connect failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, nil
}
