package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInconsistentState is returned by PoolState.Validate.
	ErrInconsistentState = errors.New("inconsistent pool state")
	// ErrVersionConflict is returned when a PoolRecord is saved over a
	// version other than the one it was loaded from.
	ErrVersionConflict = errors.New("pool record version conflict")
)

// Asset selects one side of the pair.
type Asset uint8

const (
	Asset0 Asset = 0
	Asset1 Asset = 1
)

// Valid reports whether a names one of the two pool assets.
func (a Asset) Valid() bool {
	return a == Asset0 || a == Asset1
}

// Other returns the opposite side of the pair.
func (a Asset) Other() Asset {
	if a == Asset0 {
		return Asset1
	}
	return Asset0
}

func (a Asset) String() string {
	switch a {
	case Asset0:
		return "asset0"
	case Asset1:
		return "asset1"
	default:
		return fmt.Sprintf("asset(%d)", uint8(a))
	}
}

// PoolState is the persistent record of a two-asset pool.
// A zero FeeDenominator marks a pool that was never initialized.
type PoolState struct {
	Reserve0       uint64 `json:"reserve0"`
	Reserve1       uint64 `json:"reserve1"`
	ClaimSupply    uint64 `json:"claim_supply"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
}

// Initialized reports whether the fee parameters were set.
func (s PoolState) Initialized() bool {
	return s.FeeDenominator != 0
}

// Empty reports whether no claims are outstanding.
func (s PoolState) Empty() bool {
	return s.ClaimSupply == 0
}

// Reserves returns (reserveIn, reserveOut) for a swap paying in asset in.
func (s PoolState) Reserves(in Asset) (uint64, uint64) {
	if in == Asset1 {
		return s.Reserve1, s.Reserve0
	}
	return s.Reserve0, s.Reserve1
}

// Reserve returns the reserve of one asset.
func (s PoolState) Reserve(a Asset) uint64 {
	if a == Asset1 {
		return s.Reserve1
	}
	return s.Reserve0
}

// Validate checks the structural invariants of an initialized pool.
func (s PoolState) Validate() error {
	if s.FeeNumerator >= s.FeeDenominator {
		return fmt.Errorf("%w: fee %d/%d", ErrInconsistentState, s.FeeNumerator, s.FeeDenominator)
	}
	if s.ClaimSupply == 0 {
		if s.Reserve0 != 0 || s.Reserve1 != 0 {
			return fmt.Errorf("%w: reserves %d/%d with no claims outstanding", ErrInconsistentState, s.Reserve0, s.Reserve1)
		}
		return nil
	}
	if s.Reserve0 == 0 || s.Reserve1 == 0 {
		return fmt.Errorf("%w: %d claims backed by reserves %d/%d", ErrInconsistentState, s.ClaimSupply, s.Reserve0, s.Reserve1)
	}
	return nil
}

// PoolRecord is the persisted form of a pool.
type PoolRecord struct {
	ID        PoolID    `json:"id"`
	Asset0    string    `json:"asset0"`
	Asset1    string    `json:"asset1"`
	State     PoolState `json:"state"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetName returns the external asset identifier for one side.
func (r PoolRecord) AssetName(a Asset) string {
	if a == Asset1 {
		return r.Asset1
	}
	return r.Asset0
}

// ClaimToken is the identifier of the pool's claim token.
func (r PoolRecord) ClaimToken() string {
	return "lp/" + string(r.ID)
}

// Vault is the custody account holding the reserve of one asset.
func (r PoolRecord) Vault(a Asset) string {
	return fmt.Sprintf("vault%d/%s", uint8(a), r.ID)
}
