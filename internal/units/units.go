// Package units converts between user-facing decimal amounts and the integer
// base units the pool engine operates on.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the supported token precision.
const MaxDecimals = 18

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrPrecision     = errors.New("amount has more fractional digits than the asset supports")
	ErrOutOfRange    = errors.New("amount out of range")
)

// ToBaseUnits parses a decimal amount such as "12.5" and scales it by
// 10^decimals. Fractional digits beyond the asset precision are rejected
// rather than rounded.
func ToBaseUnits(amount string, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d decimals", ErrOutOfRange, decimals)
	}
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if value.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrOutOfRange, amount)
	}

	scaled := value.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q with %d decimals", ErrPrecision, amount, decimals)
	}

	base := scaled.BigInt()
	if !base.IsUint64() {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, amount)
	}
	return base.Uint64(), nil
}

// FromBaseUnits renders base units as a fixed-point decimal string.
func FromBaseUnits(amount uint64, decimals uint8) string {
	value := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return value.StringFixed(int32(decimals))
}
