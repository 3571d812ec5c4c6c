package pool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/custody"
	"liquidityPool/internal/model"
)

// plan is what an operation wants to do to a pool: the engine delta and the
// custody batch that realizes it.
type plan struct {
	delta   model.OperationDelta
	ops     []custody.Op
	data    interface{}
	swapFee uint64
}

type planner func(ctx context.Context, rec model.PoolRecord) (plan, error)

// execute runs one operation under the pool lock:
// load, plan, apply, custody, save. A failed save reverts the custody batch.
func (s *Service) execute(ctx context.Context, id model.PoolID, kind, account string, build planner) (model.PoolRecord, error) {
	started := s.now()
	if err := ctx.Err(); err != nil {
		return model.PoolRecord{}, err
	}
	if account == "" {
		err := ErrInvalidAccount
		s.reject(model.PoolRecord{ID: id}, kind, account, started, err)
		return model.PoolRecord{}, err
	}

	unlock := s.lock(id)
	defer unlock()

	rec, ok, err := s.store.Load(ctx, id)
	if err != nil {
		err = fmt.Errorf("load pool %s: %w", id.Short(), err)
		s.reject(model.PoolRecord{ID: id}, kind, account, started, err)
		return model.PoolRecord{}, err
	}
	if !ok {
		err := fmt.Errorf("%w: %s", ErrPoolNotFound, id)
		s.reject(model.PoolRecord{ID: id}, kind, account, started, err)
		return model.PoolRecord{}, err
	}

	p, err := build(ctx, rec)
	if err != nil {
		s.reject(rec, kind, account, started, err)
		return model.PoolRecord{}, err
	}

	next, err := amm.Apply(rec.State, p.delta)
	if err != nil {
		s.reject(rec, kind, account, started, err)
		return model.PoolRecord{}, err
	}

	if err := s.custody.Execute(ctx, p.ops); err != nil {
		err = fmt.Errorf("custody: %w", err)
		s.reject(rec, kind, account, started, err)
		return model.PoolRecord{}, err
	}

	updated := rec
	updated.State = next
	updated.Version = rec.Version + 1
	updated.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, updated); err != nil {
		err = fmt.Errorf("save pool %s: %w", id.Short(), err)
		// The pool lock is still held, so nothing else touched these
		// balances. The batch is reverted even if ctx is already done.
		if cerr := s.custody.Execute(context.WithoutCancel(ctx), custody.Compensate(p.ops)); cerr != nil {
			s.logger.Error("custody compensation failed, balances diverge from pool state",
				zap.String("pool", id.Short()),
				zap.String("op", kind),
				zap.Error(cerr),
			)
			err = fmt.Errorf("%w (compensation failed: %v)", err, cerr)
		} else {
			s.metrics.Compensated()
		}
		s.reject(rec, kind, account, started, err)
		return model.PoolRecord{}, err
	}

	s.commit(updated, kind, account, started, &p.delta, p.data)

	switch kind {
	case model.OpAdd:
		s.metrics.RecordLiquidity(id.Short(), rec.Asset0, rec.Asset1, p.delta.Reserve0In, p.delta.Reserve1In, true)
	case model.OpRemove:
		s.metrics.RecordLiquidity(id.Short(), rec.Asset0, rec.Asset1, p.delta.Reserve0Out, p.delta.Reserve1Out, false)
	case model.OpSwap:
		assetIn := model.Asset0
		if p.delta.Reserve1In > 0 {
			assetIn = model.Asset1
		}
		s.metrics.RecordSwap(id.Short(), rec.AssetName(assetIn), p.delta.In(assetIn), p.swapFee)
	}
	return updated, nil
}

func (s *Service) commit(rec model.PoolRecord, kind, account string, started time.Time, delta *model.OperationDelta, data interface{}) {
	state := rec.State
	s.record(model.OperationRecord{
		PoolID:    rec.ID,
		Kind:      kind,
		Account:   account,
		Status:    model.StatusCommitted,
		Delta:     delta,
		State:     &state,
		Version:   rec.Version,
		Timestamp: uint64(s.now().Unix()),
		Data:      data,
	})
	s.metrics.ObserveOperation(kind, model.StatusCommitted, started)
	s.metrics.SetPoolState(rec.ID.Short(), rec.Asset0, rec.Asset1, rec.State.Reserve0, rec.State.Reserve1, rec.State.ClaimSupply)

	s.logger.Debug("operation committed",
		zap.String("pool", rec.ID.Short()),
		zap.String("op", kind),
		zap.String("account", account),
		zap.Uint64("version", rec.Version),
		zap.Uint64("reserve0", rec.State.Reserve0),
		zap.Uint64("reserve1", rec.State.Reserve1),
		zap.Uint64("claim_supply", rec.State.ClaimSupply),
	)
}

func (s *Service) reject(rec model.PoolRecord, kind, account string, started time.Time, err error) {
	class := Classify(err)
	s.record(model.OperationRecord{
		PoolID:     rec.ID,
		Kind:       kind,
		Account:    account,
		Status:     model.StatusRejected,
		ErrorClass: string(class),
		Error:      err.Error(),
		Timestamp:  uint64(s.now().Unix()),
	})
	s.metrics.ObserveOperation(kind, model.StatusRejected, started)

	fields := []zap.Field{
		zap.String("pool", rec.ID.Short()),
		zap.String("op", kind),
		zap.String("account", account),
		zap.String("class", string(class)),
		zap.Error(err),
	}
	switch class {
	case amm.ClassInvariant:
		s.logger.Error("pool invariant violated", fields...)
	case amm.ClassValidation, amm.ClassEconomic:
		s.logger.Info("operation rejected", fields...)
	default:
		s.logger.Warn("operation failed", fields...)
	}
}

func (s *Service) record(rec model.OperationRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(rec); err != nil {
		s.logger.Warn("journal append failed", zap.String("pool", rec.PoolID.Short()), zap.Error(err))
	}
}
