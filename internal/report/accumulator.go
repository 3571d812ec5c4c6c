package report

import (
	"encoding/json"
	"fmt"
	"math/big"

	"liquidityPool/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolID      model.PoolID
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	Deposits    uint64
	Withdrawals uint64
	Rejected    uint64
	// Volumes and fees can exceed 64 bits once summed.
	Volume0 *big.Int
	Volume1 *big.Int
	Fee0    *big.Int
	Fee1    *big.Int
	// State is the last committed pool state seen in the window.
	State  *model.PoolState
	LastTS uint64
}

func NewAccumulator(poolID model.PoolID, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:      poolID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
	}
}

func (a *Accumulator) AddEntry(entry model.OperationEntry) error {
	if entry.Timestamp > a.LastTS {
		a.LastTS = entry.Timestamp
	}
	if entry.Status != model.StatusCommitted {
		a.Rejected++
		return nil
	}
	if entry.State != nil {
		state := *entry.State
		a.State = &state
	}

	switch entry.Kind {
	case model.OpSwap:
		var swap model.SwapData
		if err := json.Unmarshal(entry.Data, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case model.OpAdd:
		a.Deposits++
	case model.OpRemove:
		a.Withdrawals++
	}
	return nil
}

func (a *Accumulator) applySwap(swap model.SwapData) error {
	if swap.AmountInAfterFee > swap.AmountIn {
		return fmt.Errorf("swap after-fee input %d exceeds input %d", swap.AmountInAfterFee, swap.AmountIn)
	}
	in := new(big.Int).SetUint64(swap.AmountIn)
	out := new(big.Int).SetUint64(swap.AmountOut)
	fee := new(big.Int).SetUint64(swap.AmountIn - swap.AmountInAfterFee)

	switch swap.AssetIn {
	case model.Asset0:
		a.Volume0.Add(a.Volume0, in)
		a.Volume1.Add(a.Volume1, out)
		a.Fee0.Add(a.Fee0, fee)
	case model.Asset1:
		a.Volume1.Add(a.Volume1, in)
		a.Volume0.Add(a.Volume0, out)
		a.Fee1.Add(a.Fee1, fee)
	default:
		return fmt.Errorf("swap with invalid asset %d", swap.AssetIn)
	}
	a.SwapCount++
	return nil
}
