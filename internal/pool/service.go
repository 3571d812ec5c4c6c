// Package pool runs pool operations end to end: it serializes work per pool,
// asks the engine for a delta, moves assets through custody and persists the
// new state.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/custody"
	"liquidityPool/internal/metrics"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

var (
	ErrPoolExists        = errors.New("pool already exists")
	ErrPoolNotFound      = errors.New("pool not found")
	ErrInvalidPoolAssets = errors.New("pool needs two distinct non-empty assets")
	ErrInvalidAccount    = errors.New("account is required")
)

// Classify extends amm.Classify with the service's own validation errors.
func Classify(err error) amm.Class {
	switch {
	case errors.Is(err, ErrPoolExists),
		errors.Is(err, ErrPoolNotFound),
		errors.Is(err, ErrInvalidPoolAssets),
		errors.Is(err, ErrInvalidAccount):
		return amm.ClassValidation
	default:
		return amm.Classify(err)
	}
}

// Journal receives one record per attempted operation.
type Journal interface {
	Append(records ...model.OperationRecord) error
}

// Service executes pool operations. Operations on one pool are serialized;
// different pools proceed in parallel.
type Service struct {
	store   storage.Store
	custody custody.Gateway
	journal Journal
	metrics *metrics.PoolMetrics
	logger  *zap.Logger
	now     func() time.Time

	locks sync.Map // model.PoolID -> *sync.Mutex
}

// NewService builds a Service. journal and m may be nil.
func NewService(store storage.Store, gateway custody.Gateway, journal Journal, m *metrics.PoolMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		custody: gateway,
		journal: journal,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for record timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) lock(id model.PoolID) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// AddResult is the outcome of a deposit. The unmatched part of the offered
// amounts never left the depositor.
type AddResult struct {
	ClaimMinted  uint64 `json:"claim_minted"`
	Reserve0Used uint64 `json:"reserve0_used"`
	Reserve1Used uint64 `json:"reserve1_used"`
}

type RemoveResult struct {
	Amount0Out uint64 `json:"amount0_out"`
	Amount1Out uint64 `json:"amount1_out"`
}

type SwapResult struct {
	AmountOut        uint64 `json:"amount_out"`
	AmountInAfterFee uint64 `json:"amount_in_after_fee"`
}

// CreatePool registers a new pool for the ordered asset pair and fee.
func (s *Service) CreatePool(ctx context.Context, asset0, asset1 string, feeNumerator, feeDenominator uint64) (model.PoolRecord, error) {
	started := s.now()
	if asset0 == "" || asset1 == "" || asset0 == asset1 {
		err := fmt.Errorf("%w: %q/%q", ErrInvalidPoolAssets, asset0, asset1)
		s.reject(model.PoolRecord{}, model.OpCreate, "", started, err)
		return model.PoolRecord{}, err
	}

	id := model.DerivePoolID(asset0, asset1, feeNumerator, feeDenominator)
	rec := model.PoolRecord{ID: id, Asset0: asset0, Asset1: asset1}

	unlock := s.lock(id)
	defer unlock()

	if _, ok, err := s.store.Load(ctx, id); err != nil {
		return model.PoolRecord{}, fmt.Errorf("load pool %s: %w", id.Short(), err)
	} else if ok {
		err := fmt.Errorf("%w: %s", ErrPoolExists, id)
		s.reject(rec, model.OpCreate, "", started, err)
		return model.PoolRecord{}, err
	}

	state, err := amm.InitializePool(feeNumerator, feeDenominator)
	if err != nil {
		s.reject(rec, model.OpCreate, "", started, err)
		return model.PoolRecord{}, err
	}
	rec.State = state
	rec.Version = 1
	rec.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, rec); err != nil {
		return model.PoolRecord{}, fmt.Errorf("save pool %s: %w", id.Short(), err)
	}

	s.commit(rec, model.OpCreate, "", started, nil, model.CreatePoolData{
		Asset0:         asset0,
		Asset1:         asset1,
		FeeNumerator:   feeNumerator,
		FeeDenominator: feeDenominator,
	})
	s.metrics.PoolCreated()
	return rec, nil
}

// AddLiquidity deposits up to amount0In/amount1In from account and mints
// claim tokens to it.
func (s *Service) AddLiquidity(ctx context.Context, id model.PoolID, account string, amount0In, amount1In uint64) (AddResult, error) {
	var result AddResult
	_, err := s.execute(ctx, id, model.OpAdd, account, func(_ context.Context, rec model.PoolRecord) (plan, error) {
		delta, err := amm.AddLiquidity(rec.State, amount0In, amount1In)
		if err != nil {
			return plan{}, err
		}
		result = AddResult{
			ClaimMinted:  delta.ClaimMint,
			Reserve0Used: delta.Reserve0In,
			Reserve1Used: delta.Reserve1In,
		}
		return plan{
			delta: delta,
			ops: []custody.Op{
				custody.TransferOp(rec.Asset0, account, rec.Vault(model.Asset0), delta.Reserve0In),
				custody.TransferOp(rec.Asset1, account, rec.Vault(model.Asset1), delta.Reserve1In),
				custody.MintOp(rec.ClaimToken(), account, delta.ClaimMint),
			},
			data: model.AddLiquidityData{
				Amount0In:    amount0In,
				Amount1In:    amount1In,
				Reserve0Used: delta.Reserve0In,
				Reserve1Used: delta.Reserve1In,
				ClaimMinted:  delta.ClaimMint,
			},
		}, nil
	})
	if err != nil {
		return AddResult{}, err
	}
	return result, nil
}

// RemoveLiquidity burns claimAmountIn of account's claim tokens and pays out
// the proportional share of both reserves.
func (s *Service) RemoveLiquidity(ctx context.Context, id model.PoolID, account string, claimAmountIn uint64) (RemoveResult, error) {
	var result RemoveResult
	_, err := s.execute(ctx, id, model.OpRemove, account, func(ctx context.Context, rec model.PoolRecord) (plan, error) {
		held, err := s.custody.Balance(ctx, rec.ClaimToken(), account)
		if err != nil {
			return plan{}, fmt.Errorf("claim balance: %w", err)
		}
		delta, err := amm.RemoveLiquidity(rec.State, claimAmountIn, held)
		if err != nil {
			return plan{}, err
		}
		result = RemoveResult{Amount0Out: delta.Reserve0Out, Amount1Out: delta.Reserve1Out}
		return plan{
			delta: delta,
			ops: []custody.Op{
				custody.BurnOp(rec.ClaimToken(), account, delta.ClaimBurn),
				custody.TransferOp(rec.Asset0, rec.Vault(model.Asset0), account, delta.Reserve0Out),
				custody.TransferOp(rec.Asset1, rec.Vault(model.Asset1), account, delta.Reserve1Out),
			},
			data: model.RemoveLiquidityData{
				ClaimBurned: delta.ClaimBurn,
				Amount0Out:  delta.Reserve0Out,
				Amount1Out:  delta.Reserve1Out,
			},
		}, nil
	})
	if err != nil {
		return RemoveResult{}, err
	}
	return result, nil
}

// Swap pays amountIn of assetIn from account into the pool and sends back at
// least minAmountOut of the other asset.
func (s *Service) Swap(ctx context.Context, id model.PoolID, account string, assetIn model.Asset, amountIn, minAmountOut uint64) (SwapResult, error) {
	var result SwapResult
	_, err := s.execute(ctx, id, model.OpSwap, account, func(_ context.Context, rec model.PoolRecord) (plan, error) {
		quote, err := amm.Swap(rec.State, assetIn, amountIn, minAmountOut)
		if err != nil {
			return plan{}, err
		}
		assetOut := assetIn.Other()
		result = SwapResult{AmountOut: quote.AmountOut, AmountInAfterFee: quote.AmountInAfterFee}
		return plan{
			delta: quote.Delta,
			ops: []custody.Op{
				custody.TransferOp(rec.AssetName(assetIn), account, rec.Vault(assetIn), quote.AmountIn),
				custody.TransferOp(rec.AssetName(assetOut), rec.Vault(assetOut), account, quote.AmountOut),
			},
			data: model.SwapData{
				AssetIn:          assetIn,
				AmountIn:         quote.AmountIn,
				AmountInAfterFee: quote.AmountInAfterFee,
				AmountOut:        quote.AmountOut,
				MinAmountOut:     minAmountOut,
			},
			swapFee: quote.Fee(),
		}, nil
	})
	if err != nil {
		return SwapResult{}, err
	}
	return result, nil
}

// Quote prices a swap against the current pool state without executing it.
func (s *Service) Quote(ctx context.Context, id model.PoolID, assetIn model.Asset, amountIn uint64) (amm.SwapQuote, error) {
	rec, err := s.Pool(ctx, id)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	return amm.QuoteSwap(rec.State, assetIn, amountIn)
}

// Pool returns the stored record of a pool.
func (s *Service) Pool(ctx context.Context, id model.PoolID) (model.PoolRecord, error) {
	rec, ok, err := s.store.Load(ctx, id)
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("load pool %s: %w", id.Short(), err)
	}
	if !ok {
		return model.PoolRecord{}, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return rec, nil
}

func (s *Service) Pools(ctx context.Context) ([]model.PoolRecord, error) {
	return s.store.List(ctx)
}
