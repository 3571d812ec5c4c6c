package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityPool/internal/model"
)

// Store provides Postgres persistence for pool records and window metrics.
// Amounts are NUMERIC(20,0) so the full uint64 range round-trips.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id         TEXT PRIMARY KEY,
	asset0          TEXT NOT NULL,
	asset1          TEXT NOT NULL,
	reserve0        NUMERIC(20,0) NOT NULL,
	reserve1        NUMERIC(20,0) NOT NULL,
	claim_supply    NUMERIC(20,0) NOT NULL,
	fee_numerator   NUMERIC(20,0) NOT NULL,
	fee_denominator NUMERIC(20,0) NOT NULL,
	version         BIGINT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_id             TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          BIGINT NOT NULL,
	deposits            BIGINT NOT NULL,
	withdrawals         BIGINT NOT NULL,
	rejected            BIGINT NOT NULL,
	volume0             NUMERIC NOT NULL,
	volume1             NUMERIC NOT NULL,
	fee0                NUMERIC NOT NULL,
	fee1                NUMERIC NOT NULL,
	reserve0            NUMERIC,
	reserve1            NUMERIC,
	claim_supply        NUMERIC,
	fee_yield0          NUMERIC,
	fee_yield1          NUMERIC,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_id, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS report_state (
	name              TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables used by Store when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const selectPool = `
	SELECT pool_id, asset0, asset1,
		reserve0::text, reserve1::text, claim_supply::text,
		fee_numerator::text, fee_denominator::text,
		version, updated_at
	FROM pools`

func (s *Store) Load(ctx context.Context, id model.PoolID) (model.PoolRecord, bool, error) {
	row := s.pool.QueryRow(ctx, selectPool+` WHERE pool_id=$1`, string(id))
	rec, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolRecord{}, false, nil
		}
		return model.PoolRecord{}, false, err
	}
	return rec, true, nil
}

// Save inserts version 1 or replaces the row holding Version-1.
func (s *Store) Save(ctx context.Context, rec model.PoolRecord) error {
	args := []any{
		string(rec.ID),
		rec.Asset0,
		rec.Asset1,
		strconv.FormatUint(rec.State.Reserve0, 10),
		strconv.FormatUint(rec.State.Reserve1, 10),
		strconv.FormatUint(rec.State.ClaimSupply, 10),
		strconv.FormatUint(rec.State.FeeNumerator, 10),
		strconv.FormatUint(rec.State.FeeDenominator, 10),
		int64(rec.Version),
		rec.UpdatedAt,
	}

	var query string
	if rec.Version == 1 {
		query = `
			INSERT INTO pools (
				pool_id, asset0, asset1, reserve0, reserve1, claim_supply,
				fee_numerator, fee_denominator, version, updated_at
			) VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric,
				$7::text::numeric, $8::text::numeric, $9, $10)
			ON CONFLICT (pool_id) DO NOTHING
		`
	} else {
		query = `
			UPDATE pools SET
				asset0 = $2,
				asset1 = $3,
				reserve0 = $4::text::numeric,
				reserve1 = $5::text::numeric,
				claim_supply = $6::text::numeric,
				fee_numerator = $7::text::numeric,
				fee_denominator = $8::text::numeric,
				version = $9,
				updated_at = $10
			WHERE pool_id = $1 AND version = $9 - 1
		`
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save pool %s: %w", rec.ID.Short(), err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: pool %s version %d", model.ErrVersionConflict, rec.ID.Short(), rec.Version)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]model.PoolRecord, error) {
	rows, err := s.pool.Query(ctx, selectPool+` ORDER BY pool_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PoolRecord
	for rows.Next() {
		rec, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanPool(row pgx.Row) (model.PoolRecord, error) {
	var (
		id, asset0, asset1           string
		reserve0, reserve1, supply   string
		feeNumerator, feeDenominator string
		version                      int64
		updatedAt                    time.Time
	)
	if err := row.Scan(&id, &asset0, &asset1, &reserve0, &reserve1, &supply, &feeNumerator, &feeDenominator, &version, &updatedAt); err != nil {
		return model.PoolRecord{}, err
	}

	rec := model.PoolRecord{
		ID:        model.PoolID(id),
		Asset0:    asset0,
		Asset1:    asset1,
		Version:   uint64(version),
		UpdatedAt: updatedAt.UTC(),
	}
	fields := []struct {
		name string
		raw  string
		dst  *uint64
	}{
		{"reserve0", reserve0, &rec.State.Reserve0},
		{"reserve1", reserve1, &rec.State.Reserve1},
		{"claim_supply", supply, &rec.State.ClaimSupply},
		{"fee_numerator", feeNumerator, &rec.State.FeeNumerator},
		{"fee_denominator", feeDenominator, &rec.State.FeeDenominator},
	}
	for _, f := range fields {
		v, err := strconv.ParseUint(f.raw, 10, 64)
		if err != nil {
			return model.PoolRecord{}, fmt.Errorf("pool %s %s: %w", id, f.name, err)
		}
		*f.dst = v
	}
	return rec, nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_id, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposits, withdrawals, rejected,
				volume0, volume1, fee0, fee1,
				reserve0, reserve1, claim_supply, fee_yield0, fee_yield1,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
				$9::text::numeric,$10::text::numeric,$11::text::numeric,$12::text::numeric,
				$13::text::numeric,$14::text::numeric,$15::text::numeric,$16::text::numeric,$17::text::numeric,
				now(),now())
			ON CONFLICT (pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposits = EXCLUDED.deposits,
				withdrawals = EXCLUDED.withdrawals,
				rejected = EXCLUDED.rejected,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				claim_supply = EXCLUDED.claim_supply,
				fee_yield0 = EXCLUDED.fee_yield0,
				fee_yield1 = EXCLUDED.fee_yield1,
				updated_at = now()
		`,
			string(m.PoolID),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.Deposits),
			int64(m.Withdrawals),
			int64(m.Rejected),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.Reserve0,
			m.Reserve1,
			m.ClaimSupply,
			m.FeeYield0,
			m.FeeYield1,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM report_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
