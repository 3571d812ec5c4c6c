package amm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/model"
)

func TestObservedScenario(t *testing.T) {
	state, err := InitializePool(1, 10000)
	require.NoError(t, err)

	claims := map[string]uint64{}
	deposits := []struct {
		lp     string
		a0, a1 uint64
		minted uint64
		used   [2]uint64
	}{
		{lp: "lp1", a0: 50, a1: 50, minted: 50, used: [2]uint64{50, 50}},
		{lp: "lp2", a0: 50, a1: 50, minted: 50, used: [2]uint64{50, 50}},
		{lp: "lp3", a0: 25, a1: 100, minted: 25, used: [2]uint64{25, 25}},
	}
	for _, d := range deposits {
		delta, err := AddLiquidity(state, d.a0, d.a1)
		require.NoError(t, err, d.lp)
		assert.Equal(t, d.minted, delta.ClaimMint, d.lp)
		assert.Equal(t, d.used, [2]uint64{delta.Reserve0In, delta.Reserve1In}, d.lp)
		state = commit(t, state, delta)
		claims[d.lp] += delta.ClaimMint
	}
	assert.Equal(t, uint64(125), state.Reserve0)
	assert.Equal(t, uint64(125), state.Reserve1)
	assert.Equal(t, uint64(125), state.ClaimSupply)

	quote, err := Swap(state, model.Asset0, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), quote.AmountInAfterFee)
	assert.Equal(t, uint64(8), quote.AmountOut)
	assert.Equal(t, uint64(1), quote.Fee())
	state = commit(t, state, quote.Delta)
	assert.Equal(t, uint64(135), state.Reserve0)
	assert.Equal(t, uint64(117), state.Reserve1)

	delta, err := RemoveLiquidity(state, 50, claims["lp1"])
	require.NoError(t, err)
	assert.Equal(t, uint64(54), delta.Reserve0Out)
	assert.Equal(t, uint64(46), delta.Reserve1Out)
	state = commit(t, state, delta)
	assert.Equal(t, uint64(75), state.ClaimSupply)
}

func TestSwapDirections(t *testing.T) {
	state := model.PoolState{Reserve0: 125, Reserve1: 125, ClaimSupply: 125, FeeNumerator: 1, FeeDenominator: 10000}

	quote, err := Swap(state, model.Asset1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, model.OperationDelta{Reserve1In: 10, Reserve0Out: 8}, quote.Delta)

	next := commit(t, state, quote.Delta)
	assert.Equal(t, uint64(117), next.Reserve0)
	assert.Equal(t, uint64(135), next.Reserve1)

	free := model.PoolState{Reserve0: 1000, Reserve1: 1000, ClaimSupply: 1000, FeeNumerator: 0, FeeDenominator: 1}
	quote, err = Swap(free, model.Asset0, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), quote.AmountInAfterFee)
	assert.Equal(t, uint64(500), quote.AmountOut)
}

func TestSwapErrors(t *testing.T) {
	state := model.PoolState{Reserve0: 125, Reserve1: 125, ClaimSupply: 125, FeeNumerator: 1, FeeDenominator: 10000}

	tests := []struct {
		name     string
		state    model.PoolState
		assetIn  model.Asset
		amountIn uint64
		minOut   uint64
		want     error
		class    Class
	}{
		{name: "uninitialized", state: model.PoolState{}, assetIn: model.Asset0, amountIn: 10, want: ErrPoolUninitialized, class: ClassValidation},
		{name: "invalid asset", state: state, assetIn: model.Asset(2), amountIn: 10, want: ErrInvalidAsset, class: ClassValidation},
		{name: "zero amount", state: state, assetIn: model.Asset0, amountIn: 0, want: ErrZeroAmount, class: ClassValidation},
		{name: "empty pool", state: model.PoolState{FeeNumerator: 1, FeeDenominator: 10000}, assetIn: model.Asset0, amountIn: 10, want: ErrInsufficientLiquidity, class: ClassEconomic},
		{name: "output rounds to zero", state: state, assetIn: model.Asset0, amountIn: 1, want: ErrInsufficientLiquidity, class: ClassEconomic},
		{name: "slippage", state: state, assetIn: model.Asset0, amountIn: 10, minOut: 9, want: ErrSlippageExceeded, class: ClassEconomic},
		{
			name:     "reserve overflow",
			state:    model.PoolState{Reserve0: math.MaxUint64 - 5, Reserve1: 100, ClaimSupply: 100, FeeNumerator: 1, FeeDenominator: 10000},
			assetIn:  model.Asset0,
			amountIn: 10,
			want:     ErrArithmeticOverflow,
			class:    ClassArithmetic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state
			_, err := Swap(tt.state, tt.assetIn, tt.amountIn, tt.minOut)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.class, Classify(err))
			assert.Equal(t, before, tt.state)
		})
	}
}

func TestQuoteAmountIn(t *testing.T) {
	state := model.PoolState{Reserve0: 125, Reserve1: 125, ClaimSupply: 125, FeeNumerator: 1, FeeDenominator: 10000}

	in, err := QuoteAmountIn(state, model.Asset0, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), in)

	quote, err := QuoteSwap(state, model.Asset0, in-1)
	require.NoError(t, err)
	assert.Less(t, quote.AmountOut, uint64(8))

	_, err = QuoteAmountIn(state, model.Asset0, 125)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	_, err = QuoteAmountIn(state, model.Asset0, 0)
	require.ErrorIs(t, err, ErrZeroAmount)
}

func TestSpotPrice(t *testing.T) {
	state := model.PoolState{Reserve0: 135, Reserve1: 117, ClaimSupply: 125, FeeNumerator: 1, FeeDenominator: 10000}

	price, err := SpotPrice(state, model.Asset0, 4)
	require.NoError(t, err)
	assert.Equal(t, "1.1538", price)

	price, err = SpotPrice(state, model.Asset1, 4)
	require.NoError(t, err)
	assert.Equal(t, "0.8667", price)

	_, err = SpotPrice(model.PoolState{FeeDenominator: 1}, model.Asset0, 4)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestConstantProduct(t *testing.T) {
	state := model.PoolState{Reserve0: math.MaxUint64, Reserve1: 2}
	assert.Equal(t, "36893488147419103230", ConstantProduct(state).Dec())

	require.NoError(t, CheckSwapInvariant(state, state))
	smaller := state
	smaller.Reserve1 = 1
	require.ErrorIs(t, CheckSwapInvariant(state, smaller), ErrInvariantViolation)
}
