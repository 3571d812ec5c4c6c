package report

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const ratioScale = 18

func formatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// computeFeeYield returns fee/reserve, the share of the reserve earned as
// fees during the window.
func computeFeeYield(fee *big.Int, reserve uint64) *string {
	if fee == nil || fee.Sign() == 0 || reserve == 0 {
		return nil
	}
	rat := new(big.Rat).SetFrac(fee, new(big.Int).SetUint64(reserve))
	val := rat.FloatString(ratioScale)
	return &val
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
