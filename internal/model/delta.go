package model

import "math/big"

// OperationDelta describes the effect of one engine call on a PoolState.
// Each quantity is split into its inbound and outbound parts so the full
// uint64 range stays representable; at most one side is non-zero per field
// for a well-formed delta.
type OperationDelta struct {
	Reserve0In  uint64 `json:"reserve0_in,omitempty"`
	Reserve0Out uint64 `json:"reserve0_out,omitempty"`
	Reserve1In  uint64 `json:"reserve1_in,omitempty"`
	Reserve1Out uint64 `json:"reserve1_out,omitempty"`
	ClaimMint   uint64 `json:"claim_mint,omitempty"`
	ClaimBurn   uint64 `json:"claim_burn,omitempty"`
}

// Reserve0Delta returns the signed change of reserve0.
func (d OperationDelta) Reserve0Delta() *big.Int {
	return signed(d.Reserve0In, d.Reserve0Out)
}

// Reserve1Delta returns the signed change of reserve1.
func (d OperationDelta) Reserve1Delta() *big.Int {
	return signed(d.Reserve1In, d.Reserve1Out)
}

// ClaimDelta returns the signed change of the claim supply.
func (d OperationDelta) ClaimDelta() *big.Int {
	return signed(d.ClaimMint, d.ClaimBurn)
}

// In returns the amount added to the reserve of a.
func (d OperationDelta) In(a Asset) uint64 {
	if a == Asset1 {
		return d.Reserve1In
	}
	return d.Reserve0In
}

// Out returns the amount removed from the reserve of a.
func (d OperationDelta) Out(a Asset) uint64 {
	if a == Asset1 {
		return d.Reserve1Out
	}
	return d.Reserve0Out
}

// IsZero reports whether the delta changes nothing.
func (d OperationDelta) IsZero() bool {
	return d == OperationDelta{}
}

func signed(in, out uint64) *big.Int {
	v := new(big.Int).SetUint64(in)
	return v.Sub(v, new(big.Int).SetUint64(out))
}
