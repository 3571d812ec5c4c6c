// Package fixedpoint provides overflow-checked integer primitives shared by the
// pool engines. Every quotient states its rounding direction explicitly.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrArithmeticOverflow is returned when a result does not fit in 64 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrDivisionByZero is returned when a denominator is zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// Rounding selects the direction a quotient is rounded to.
type Rounding uint8

const (
	// RoundDown truncates toward zero. Used for amounts the pool pays out.
	RoundDown Rounding = iota
	// RoundUp rounds away from zero. Used for amounts a caller pays in.
	RoundUp
)

func (r Rounding) String() string {
	switch r {
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	default:
		return fmt.Sprintf("rounding(%d)", uint8(r))
	}
}

// MulDiv returns a*b/denom rounded in the given direction. The product is
// formed at 256 bits so it cannot overflow; only the final quotient must fit.
func MulDiv(a, b, denom uint64, mode Rounding) (uint64, error) {
	if denom == 0 {
		return 0, ErrDivisionByZero
	}
	product := MulWide(a, b)
	return DivWide(product, denom, mode)
}

// DivWide divides a wide value by denom and narrows the quotient to 64 bits.
func DivWide(value *uint256.Int, denom uint64, mode Rounding) (uint64, error) {
	if denom == 0 {
		return 0, ErrDivisionByZero
	}
	d := uint256.NewInt(denom)
	quo, rem := new(uint256.Int).DivMod(value, d, new(uint256.Int))
	if mode == RoundUp && !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	if !quo.IsUint64() {
		return 0, fmt.Errorf("%w: quotient %s exceeds 64 bits", ErrArithmeticOverflow, quo.Dec())
	}
	return quo.Uint64(), nil
}

// MulWide returns a*b without truncation.
func MulWide(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// Add returns a+b or ErrArithmeticOverflow.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}

// Sub returns a-b. Underflow is reported as ErrArithmeticOverflow so callers
// only need one arithmetic sentinel.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d underflows", ErrArithmeticOverflow, a, b)
	}
	return a - b, nil
}

// Mul returns a*b or ErrArithmeticOverflow.
func Mul(a, b uint64) (uint64, error) {
	product := MulWide(a, b)
	if !product.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d", ErrArithmeticOverflow, a, b)
	}
	return product.Uint64(), nil
}

// Mean returns floor((a+b)/2) without overflowing.
func Mean(a, b uint64) uint64 {
	return a/2 + b/2 + (a & b & 1)
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
