package amm

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/model"
)

// SwapQuote is the full breakdown of a swap computation.
type SwapQuote struct {
	AssetIn          model.Asset
	AmountIn         uint64
	AmountInAfterFee uint64
	AmountOut        uint64
	Delta            model.OperationDelta
}

// Fee returns the part of the input retained as reserve growth.
func (q SwapQuote) Fee() uint64 {
	return q.AmountIn - q.AmountInAfterFee
}

// AmountInAfterFee applies the pool fee to an input amount, rounding down.
func AmountInAfterFee(state model.PoolState, amountIn uint64) (uint64, error) {
	return fixedpoint.MulDiv(amountIn, state.FeeDenominator-state.FeeNumerator, state.FeeDenominator, fixedpoint.RoundDown)
}

// QuoteSwap computes the output of paying amountIn of assetIn without
// enforcing a minimum output.
func QuoteSwap(state model.PoolState, assetIn model.Asset, amountIn uint64) (SwapQuote, error) {
	if !assetIn.Valid() {
		return SwapQuote{}, fmt.Errorf("%w: %d", ErrInvalidAsset, uint8(assetIn))
	}
	if !state.Initialized() {
		return SwapQuote{}, ErrPoolUninitialized
	}
	if amountIn == 0 {
		return SwapQuote{}, ErrZeroAmount
	}

	reserveIn, reserveOut := state.Reserves(assetIn)
	if reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, fmt.Errorf("%w: reserves %d/%d", ErrInsufficientLiquidity, reserveIn, reserveOut)
	}
	// The full input joins the reserve, so it must fit.
	if _, err := fixedpoint.Add(reserveIn, amountIn); err != nil {
		return SwapQuote{}, fmt.Errorf("reserve in: %w", err)
	}

	afterFee, err := AmountInAfterFee(state, amountIn)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("apply fee: %w", err)
	}

	// The new out-reserve is rounded up, which rounds the output down.
	denom := reserveIn + afterFee
	newReserveOut, err := fixedpoint.MulDiv(reserveIn, reserveOut, denom, fixedpoint.RoundUp)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("new reserve out: %w", err)
	}
	amountOut := reserveOut - newReserveOut
	if amountOut == 0 {
		return SwapQuote{}, fmt.Errorf("%w: input %d yields no output", ErrInsufficientLiquidity, amountIn)
	}

	delta := model.OperationDelta{}
	if assetIn == model.Asset0 {
		delta.Reserve0In = amountIn
		delta.Reserve1Out = amountOut
	} else {
		delta.Reserve1In = amountIn
		delta.Reserve0Out = amountOut
	}

	return SwapQuote{
		AssetIn:          assetIn,
		AmountIn:         amountIn,
		AmountInAfterFee: afterFee,
		AmountOut:        amountOut,
		Delta:            delta,
	}, nil
}

// Swap computes a swap and enforces minAmountOut and the constant-product
// invariant on the would-be post state.
func Swap(state model.PoolState, assetIn model.Asset, amountIn, minAmountOut uint64) (SwapQuote, error) {
	quote, err := QuoteSwap(state, assetIn, amountIn)
	if err != nil {
		return SwapQuote{}, err
	}
	if quote.AmountOut < minAmountOut {
		return SwapQuote{}, fmt.Errorf("%w: got %d, minimum %d", ErrSlippageExceeded, quote.AmountOut, minAmountOut)
	}

	after, err := Apply(state, quote.Delta)
	if err != nil {
		return SwapQuote{}, err
	}
	if err := CheckSwapInvariant(state, after); err != nil {
		return SwapQuote{}, err
	}
	return quote, nil
}

// QuoteAmountIn returns the smallest input of assetIn whose swap yields at
// least amountOut of the other asset.
func QuoteAmountIn(state model.PoolState, assetIn model.Asset, amountOut uint64) (uint64, error) {
	if !assetIn.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAsset, uint8(assetIn))
	}
	if !state.Initialized() {
		return 0, ErrPoolUninitialized
	}
	if amountOut == 0 {
		return 0, ErrZeroAmount
	}
	reserveIn, reserveOut := state.Reserves(assetIn)
	if reserveIn == 0 || reserveOut == 0 || amountOut >= reserveOut {
		return 0, fmt.Errorf("%w: want %d of reserve %d", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	// Smallest afterFee with ceil(rIn*rOut/(rIn+afterFee)) <= rOut-amountOut,
	// i.e. afterFee >= rIn*rOut/(rOut-amountOut) - rIn.
	remaining := reserveOut - amountOut
	denomTarget, err := fixedpoint.MulDiv(reserveIn, reserveOut, remaining, fixedpoint.RoundUp)
	if err != nil {
		return 0, fmt.Errorf("target reserve in: %w", err)
	}
	needAfterFee := denomTarget - reserveIn

	// Smallest amountIn with floor(amountIn*(den-num)/den) >= needAfterFee.
	amountIn, err := fixedpoint.MulDiv(needAfterFee, state.FeeDenominator, state.FeeDenominator-state.FeeNumerator, fixedpoint.RoundUp)
	if err != nil {
		return 0, fmt.Errorf("gross up fee: %w", err)
	}
	return amountIn, nil
}

// CheckSwapInvariant fails with ErrInvariantViolation when reserve0*reserve1
// decreased between two states.
func CheckSwapInvariant(before, after model.PoolState) error {
	kBefore := fixedpoint.MulWide(before.Reserve0, before.Reserve1)
	kAfter := fixedpoint.MulWide(after.Reserve0, after.Reserve1)
	if kAfter.Lt(kBefore) {
		return fmt.Errorf("%w: constant product fell from %s to %s", ErrInvariantViolation, kBefore.Dec(), kAfter.Dec())
	}
	return nil
}

// ConstantProduct returns reserve0*reserve1.
func ConstantProduct(state model.PoolState) *uint256.Int {
	return fixedpoint.MulWide(state.Reserve0, state.Reserve1)
}

// SpotPrice is the marginal price of one unit of the other asset in units
// of assetIn, reserveIn/reserveOut, for display only.
func SpotPrice(state model.PoolState, assetIn model.Asset, precision int32) (string, error) {
	reserveIn, reserveOut := state.Reserves(assetIn)
	if reserveOut == 0 {
		return "", ErrInsufficientLiquidity
	}
	price := decimal.NewFromBigInt(new(big.Int).SetUint64(reserveIn), 0).
		DivRound(decimal.NewFromBigInt(new(big.Int).SetUint64(reserveOut), 0), precision)
	return price.StringFixed(precision), nil
}
