// Package amm implements the constant-product pool engine. Every function is
// pure: it reads a PoolState snapshot and returns an OperationDelta, leaving
// commitment to the caller.
package amm

import (
	"fmt"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/model"
)

// InitializePool returns an empty pool with the given fee rate.
func InitializePool(feeNumerator, feeDenominator uint64) (model.PoolState, error) {
	if feeNumerator >= feeDenominator {
		return model.PoolState{}, fmt.Errorf("%w: %d/%d", ErrInvalidFeeConfig, feeNumerator, feeDenominator)
	}
	return model.PoolState{
		FeeNumerator:   feeNumerator,
		FeeDenominator: feeDenominator,
	}, nil
}

// InitialClaims is the number of claims minted to the first depositor: the
// arithmetic mean of the two deposits, rounded down. Equal deposits mint
// exactly amount0.
func InitialClaims(amount0In, amount1In uint64) uint64 {
	return fixedpoint.Mean(amount0In, amount1In)
}

// AddLiquidity computes a deposit. On an empty pool both amounts are accepted
// and set the price. Otherwise only the largest ratio-matching portion is
// accepted; the excess of the larger side stays with the caller.
func AddLiquidity(state model.PoolState, amount0In, amount1In uint64) (model.OperationDelta, error) {
	if !state.Initialized() {
		return model.OperationDelta{}, ErrPoolUninitialized
	}
	if amount0In == 0 || amount1In == 0 {
		return model.OperationDelta{}, ErrZeroAmount
	}

	if state.Empty() {
		minted := InitialClaims(amount0In, amount1In)
		if minted == 0 {
			return model.OperationDelta{}, ErrInsufficientMintedShare
		}
		return verified(state, model.OperationDelta{
			Reserve0In: amount0In,
			Reserve1In: amount1In,
			ClaimMint:  minted,
		})
	}

	used0, used1, err := MatchRatio(state.Reserve0, state.Reserve1, amount0In, amount1In)
	if err != nil {
		return model.OperationDelta{}, err
	}

	shares0, err := fixedpoint.MulDiv(used0, state.ClaimSupply, state.Reserve0, fixedpoint.RoundDown)
	if err != nil {
		return model.OperationDelta{}, fmt.Errorf("claims for asset0: %w", err)
	}
	shares1, err := fixedpoint.MulDiv(used1, state.ClaimSupply, state.Reserve1, fixedpoint.RoundDown)
	if err != nil {
		return model.OperationDelta{}, fmt.Errorf("claims for asset1: %w", err)
	}

	minted := fixedpoint.Min(shares0, shares1)
	if minted == 0 {
		return model.OperationDelta{}, ErrInsufficientMintedShare
	}

	return verified(state, model.OperationDelta{
		Reserve0In: used0,
		Reserve1In: used1,
		ClaimMint:  minted,
	})
}

// MatchRatio returns the largest (used0, used1) not exceeding the offered
// amounts whose ratio matches reserve0:reserve1. The dependent side is
// rounded up because it is paid in.
func MatchRatio(reserve0, reserve1, amount0In, amount1In uint64) (uint64, uint64, error) {
	if reserve0 == 0 || reserve1 == 0 {
		return 0, 0, fmt.Errorf("%w: reserves %d/%d", ErrPoolEmpty, reserve0, reserve1)
	}

	// amount0In * reserve1 at 256 bits decides the limiting side without
	// narrowing.
	want1 := fixedpoint.MulWide(amount0In, reserve1)
	have1 := fixedpoint.MulWide(amount1In, reserve0)

	if !want1.Gt(have1) {
		used1, err := fixedpoint.MulDiv(amount0In, reserve1, reserve0, fixedpoint.RoundUp)
		if err != nil {
			return 0, 0, fmt.Errorf("match asset1: %w", err)
		}
		return amount0In, used1, nil
	}

	used0, err := fixedpoint.MulDiv(amount1In, reserve0, reserve1, fixedpoint.RoundUp)
	if err != nil {
		return 0, 0, fmt.Errorf("match asset0: %w", err)
	}
	return used0, amount1In, nil
}

// RemoveLiquidity computes a withdrawal of claimAmountIn claims held by a
// caller whose balance is holderBalance. Both payouts round down.
func RemoveLiquidity(state model.PoolState, claimAmountIn, holderBalance uint64) (model.OperationDelta, error) {
	if !state.Initialized() {
		return model.OperationDelta{}, ErrPoolUninitialized
	}
	if claimAmountIn == 0 {
		return model.OperationDelta{}, ErrZeroAmount
	}
	if state.Empty() {
		return model.OperationDelta{}, ErrPoolEmpty
	}
	if claimAmountIn > holderBalance {
		return model.OperationDelta{}, fmt.Errorf("%w: requested %d, held %d", ErrInsufficientClaimBalance, claimAmountIn, holderBalance)
	}
	if claimAmountIn > state.ClaimSupply {
		return model.OperationDelta{}, fmt.Errorf("%w: requested %d, supply %d", ErrInsufficientClaimBalance, claimAmountIn, state.ClaimSupply)
	}

	amount0, err := fixedpoint.MulDiv(state.Reserve0, claimAmountIn, state.ClaimSupply, fixedpoint.RoundDown)
	if err != nil {
		return model.OperationDelta{}, fmt.Errorf("payout asset0: %w", err)
	}
	amount1, err := fixedpoint.MulDiv(state.Reserve1, claimAmountIn, state.ClaimSupply, fixedpoint.RoundDown)
	if err != nil {
		return model.OperationDelta{}, fmt.Errorf("payout asset1: %w", err)
	}

	return verified(state, model.OperationDelta{
		Reserve0Out: amount0,
		Reserve1Out: amount1,
		ClaimBurn:   claimAmountIn,
	})
}
