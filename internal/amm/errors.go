package amm

import (
	"errors"

	"liquidityPool/internal/fixedpoint"
)

// Validation errors: caller mistakes, nothing is mutated.
var (
	ErrZeroAmount        = errors.New("amount cannot be zero")
	ErrInvalidFeeConfig  = errors.New("fee numerator must be less than fee denominator")
	ErrPoolUninitialized = errors.New("pool is not initialized")
	ErrPoolEmpty         = errors.New("pool has no outstanding claims")
	ErrInvalidAsset      = errors.New("invalid asset index")
)

// Economic errors: legal requests rejected by pool policy.
var (
	ErrSlippageExceeded         = errors.New("output amount less than minimum required")
	ErrInsufficientClaimBalance = errors.New("insufficient claim token balance")
	ErrInsufficientMintedShare  = errors.New("deposit too small to mint claim tokens")
	ErrInsufficientLiquidity    = errors.New("insufficient liquidity")
)

// Arithmetic errors, shared with the fixedpoint package.
var (
	ErrArithmeticOverflow = fixedpoint.ErrArithmeticOverflow
	ErrDivisionByZero     = fixedpoint.ErrDivisionByZero
)

// ErrInvariantViolation signals an engine bug. It must never be tolerated.
var ErrInvariantViolation = errors.New("pool invariant violated")

// Class groups errors by how a caller is expected to react.
type Class string

const (
	ClassNone       Class = ""
	ClassValidation Class = "validation"
	ClassEconomic   Class = "economic"
	ClassArithmetic Class = "arithmetic"
	ClassInvariant  Class = "invariant"
	ClassUnknown    Class = "unknown"
)

// Classify maps an error to its class. Errors from collaborators such as
// custody or storage are ClassUnknown.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrInvariantViolation):
		return ClassInvariant
	case errors.Is(err, ErrArithmeticOverflow), errors.Is(err, ErrDivisionByZero):
		return ClassArithmetic
	case errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrInvalidFeeConfig),
		errors.Is(err, ErrPoolUninitialized),
		errors.Is(err, ErrPoolEmpty),
		errors.Is(err, ErrInvalidAsset):
		return ClassValidation
	case errors.Is(err, ErrSlippageExceeded),
		errors.Is(err, ErrInsufficientClaimBalance),
		errors.Is(err, ErrInsufficientMintedShare),
		errors.Is(err, ErrInsufficientLiquidity):
		return ClassEconomic
	default:
		return ClassUnknown
	}
}
