package aggregate

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// computeFeeRates returns fee / reserve per side, or nil where undefined.
func computeFeeRates(feeA, feeB, reserveA, reserveB *big.Int) (*string, *string) {
	var rateA, rateB *string
	if rate := computeRateFromInt(feeA, reserveA); rate != "" {
		rateA = &rate
	}
	if rate := computeRateFromInt(feeB, reserveB); rate != "" {
		rateB = &rate
	}
	return rateA, rateB
}

func computeRateFromInt(fee, reserve *big.Int) string {
	if fee == nil || fee.Sign() == 0 || reserve == nil || reserve.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, reserve)
	return rat.FloatString(ratioScale)
}
