package model

import "time"

// PoolWindowMetrics stores aggregated activity for a pool window. Volumes,
// fees and reserves are scaled by the asset decimals; ClaimSupply is in
// whole claim tokens.
type PoolWindowMetrics struct {
	PoolID         PoolID    `json:"pool_id"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	Volume0        string    `json:"volume0"`
	Volume1        string    `json:"volume1"`
	Fee0           string    `json:"fee0"`
	Fee1           string    `json:"fee1"`
	Deposits       uint64    `json:"deposits"`
	Withdrawals    uint64    `json:"withdrawals"`
	Rejected       uint64    `json:"rejected"`
	Reserve0       string    `json:"reserve0"`
	Reserve1       string    `json:"reserve1"`
	ClaimSupply    string    `json:"claim_supply"`
	FeeYield0      *string   `json:"fee_yield0,omitempty"`
	FeeYield1      *string   `json:"fee_yield1,omitempty"`
}
