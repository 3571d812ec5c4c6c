package amm

import (
	"fmt"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/model"
)

// Apply returns state with delta committed. The input is never modified, so
// a failed Apply leaves nothing to roll back.
func Apply(state model.PoolState, delta model.OperationDelta) (model.PoolState, error) {
	next := state

	var err error
	if next.Reserve0, err = applyChange(state.Reserve0, delta.Reserve0In, delta.Reserve0Out); err != nil {
		return state, fmt.Errorf("reserve0: %w", err)
	}
	if next.Reserve1, err = applyChange(state.Reserve1, delta.Reserve1In, delta.Reserve1Out); err != nil {
		return state, fmt.Errorf("reserve1: %w", err)
	}
	if next.ClaimSupply, err = applyChange(state.ClaimSupply, delta.ClaimMint, delta.ClaimBurn); err != nil {
		return state, fmt.Errorf("claim supply: %w", err)
	}

	if err := next.Validate(); err != nil {
		return state, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	return next, nil
}

func applyChange(value, in, out uint64) (uint64, error) {
	v, err := fixedpoint.Add(value, in)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Sub(v, out)
}

// verified returns delta only if it can be committed to state.
func verified(state model.PoolState, delta model.OperationDelta) (model.OperationDelta, error) {
	if _, err := Apply(state, delta); err != nil {
		return model.OperationDelta{}, err
	}
	return delta, nil
}
