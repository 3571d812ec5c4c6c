// Package report aggregates the operation journal into per-pool window
// metrics.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// Decimals formats volumes and fees per asset; missing assets use 0.
	Decimals map[string]uint8
}

// Sink receives finished windows.
type Sink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Stats summarizes one aggregation run.
type Stats struct {
	Total     int `json:"total"`
	Committed int `json:"committed"`
	Rejected  int `json:"rejected"`
	Skipped   int `json:"skipped"`
	Windows   int `json:"windows"`
}

// Aggregator folds journal entries into pool window metrics.
type Aggregator struct {
	cfg          Config
	sinks        []Sink
	logger       *zap.Logger
	accumulators map[model.PoolID]*Accumulator
	assets       map[model.PoolID][2]string
	lastState    map[model.PoolID]model.PoolState
}

func NewAggregator(cfg Config, logger *zap.Logger, sinks ...Sink) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sinks:        sinks,
		logger:       logger,
		accumulators: make(map[model.PoolID]*Accumulator),
		assets:       make(map[model.PoolID][2]string),
		lastState:    make(map[model.PoolID]model.PoolState),
	}
}

// RegisterPools provides asset names for pools whose create entry may
// predate the journal.
func (a *Aggregator) RegisterPools(records []model.PoolRecord) {
	for _, rec := range records {
		a.assets[rec.ID] = [2]string{rec.Asset0, rec.Asset1}
	}
}

// Run aggregates the journal at journalPath.
func (a *Aggregator) Run(ctx context.Context, journalPath string) (Stats, error) {
	if len(a.sinks) == 0 {
		return Stats{}, fmt.Errorf("no report sink configured")
	}
	if a.cfg.WindowSeconds == 0 {
		return Stats{}, fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs

	err = storage.ReadJournal(journalPath, func(entry model.OperationEntry) error {
		stats.Total++
		a.learn(entry)

		if entry.Timestamp <= startTs {
			stats.Skipped++
			if entry.State != nil {
				a.lastState[entry.PoolID] = *entry.State
			}
			return nil
		}
		if entry.PoolID == "" {
			stats.Skipped++
			return nil
		}

		start := windowStart(entry.Timestamp, a.cfg.WindowSeconds)
		acc := a.accumulators[entry.PoolID]
		if acc != nil && acc.WindowStart != start {
			batch = append(batch, a.flushAccumulator(acc))
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(entry.PoolID, start, start+a.cfg.WindowSeconds)
			a.accumulators[entry.PoolID] = acc
		}

		if err := acc.AddEntry(entry); err != nil {
			a.logger.Warn("aggregate entry", zap.Error(err), zap.String("pool", entry.PoolID.Short()), zap.String("kind", entry.Kind))
			return nil
		}
		if entry.Status == model.StatusCommitted {
			stats.Committed++
		} else {
			stats.Rejected++
		}
		if entry.Timestamp > maxTs {
			maxTs = entry.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flush(ctx, batch); err != nil {
				return err
			}
			stats.Windows += len(batch)
			batch = batch[:0]
			if err := a.saveState(ctx, startTs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(acc))
	}
	if len(batch) > 0 {
		if err := a.flush(ctx, batch); err != nil {
			return stats, err
		}
		stats.Windows += len(batch)
	}

	if err := a.saveState(ctx, maxTs); err != nil {
		return stats, err
	}
	a.accumulators = make(map[model.PoolID]*Accumulator)

	a.logger.Info("report complete",
		zap.Int("total", stats.Total),
		zap.Int("committed", stats.Committed),
		zap.Int("rejected", stats.Rejected),
		zap.Int("skipped", stats.Skipped),
		zap.Int("windows", stats.Windows),
	)
	return stats, nil
}

// learn records pool asset names from create entries.
func (a *Aggregator) learn(entry model.OperationEntry) {
	if entry.Kind != model.OpCreate || entry.Status != model.StatusCommitted {
		return
	}
	var data model.CreatePoolData
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		return
	}
	a.assets[entry.PoolID] = [2]string{data.Asset0, data.Asset1}
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState stores the timestamp up to which every window is final.
// Open windows are recomputed on the next run.
func (a *Aggregator) saveState(ctx context.Context, fallback uint64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	safeTs := fallback
	if open := minOpenWindowStart(a.accumulators); open > 0 {
		safeTs = open - 1
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flush(ctx context.Context, batch []model.PoolWindowMetrics) error {
	for _, sink := range a.sinks {
		if err := sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolWindowMetrics {
	if acc.State != nil {
		a.lastState[acc.PoolID] = *acc.State
	}
	state := a.lastState[acc.PoolID]

	assets := a.assets[acc.PoolID]
	decimals0 := a.cfg.Decimals[assets[0]]
	decimals1 := a.cfg.Decimals[assets[1]]

	return model.PoolWindowMetrics{
		PoolID:         acc.PoolID,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		Volume0:        formatAmount(acc.Volume0, decimals0),
		Volume1:        formatAmount(acc.Volume1, decimals1),
		Fee0:           formatAmount(acc.Fee0, decimals0),
		Fee1:           formatAmount(acc.Fee1, decimals1),
		Deposits:       acc.Deposits,
		Withdrawals:    acc.Withdrawals,
		Rejected:       acc.Rejected,
		Reserve0:       formatAmount(new(big.Int).SetUint64(state.Reserve0), decimals0),
		Reserve1:       formatAmount(new(big.Int).SetUint64(state.Reserve1), decimals1),
		ClaimSupply:    strconv.FormatUint(state.ClaimSupply, 10),
		FeeYield0:      computeFeeYield(acc.Fee0, state.Reserve0),
		FeeYield1:      computeFeeYield(acc.Fee1, state.Reserve1),
	}
}

func minOpenWindowStart(acc map[model.PoolID]*Accumulator) uint64 {
	var lowest uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if lowest == 0 || entry.WindowStart < lowest {
			lowest = entry.WindowStart
		}
	}
	return lowest
}
