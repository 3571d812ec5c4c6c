package model

// CreatePoolData is the journal payload of a pool creation.
type CreatePoolData struct {
	Asset0         string `json:"asset0"`
	Asset1         string `json:"asset1"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
}

// AddLiquidityData is the journal payload of a deposit.
type AddLiquidityData struct {
	Amount0In    uint64 `json:"amount0_in"`
	Amount1In    uint64 `json:"amount1_in"`
	Reserve0Used uint64 `json:"reserve0_used"`
	Reserve1Used uint64 `json:"reserve1_used"`
	ClaimMinted  uint64 `json:"claim_minted"`
}

// RemoveLiquidityData is the journal payload of a withdrawal.
type RemoveLiquidityData struct {
	ClaimBurned uint64 `json:"claim_burned"`
	Amount0Out  uint64 `json:"amount0_out"`
	Amount1Out  uint64 `json:"amount1_out"`
}

// SwapData is the journal payload of a swap.
type SwapData struct {
	AssetIn          Asset  `json:"asset_in"`
	AmountIn         uint64 `json:"amount_in"`
	AmountInAfterFee uint64 `json:"amount_in_after_fee"`
	AmountOut        uint64 `json:"amount_out"`
	MinAmountOut     uint64 `json:"min_amount_out"`
}
