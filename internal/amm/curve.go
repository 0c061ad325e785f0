package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// Quote is the outcome of pricing one swap against live reserves.
type Quote struct {
	AmountIn  uint64 `json:"amount_in"`
	Fee       uint64 `json:"fee"`
	NetInput  uint64 `json:"net_input"`
	AmountOut uint64 `json:"amount_out"`

	ReserveInBefore  uint64 `json:"reserve_in_before"`
	ReserveOutBefore uint64 `json:"reserve_out_before"`
	ReserveInAfter   uint64 `json:"reserve_in_after"`
	ReserveOutAfter  uint64 `json:"reserve_out_after"`
}

// QuoteSwap prices amountIn against (reserveIn, reserveOut) on the
// constant-product curve. The fee is taken from the input before the curve
// is evaluated and every division truncates toward zero.
func QuoteSwap(reserveIn, reserveOut, amountIn uint64, rate FeeRate) (Quote, error) {
	if amountIn == 0 {
		return Quote{}, ErrInsufficientInput
	}
	if err := rate.Validate(); err != nil {
		return Quote{}, err
	}
	if reserveIn == 0 || reserveOut == 0 {
		return Quote{}, ErrZeroReserve
	}

	fee := rate.Fee(amountIn)
	netInput, underflow := math.SafeSub(amountIn, fee)
	if underflow {
		return Quote{}, fmt.Errorf("%w: fee %d exceeds input %d", ErrArithmeticOverflow, fee, amountIn)
	}

	newReserveIn, overflow := math.SafeAdd(reserveIn, netInput)
	if overflow {
		return Quote{}, fmt.Errorf("%w: reserve %d + input %d", ErrArithmeticOverflow, reserveIn, netInput)
	}

	numerator, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(reserveOut), uint256.NewInt(netInput))
	if overflow {
		return Quote{}, fmt.Errorf("%w: reserve %d * input %d", ErrArithmeticOverflow, reserveOut, netInput)
	}
	out := numerator.Div(numerator, uint256.NewInt(newReserveIn))
	if !out.IsUint64() {
		return Quote{}, fmt.Errorf("%w: output exceeds 64 bits", ErrArithmeticOverflow)
	}
	amountOut := out.Uint64()

	if amountOut == 0 {
		return Quote{}, fmt.Errorf("%w: input %d against reserves (%d, %d)", ErrInsufficientOutput, amountIn, reserveIn, reserveOut)
	}
	if amountOut >= reserveOut {
		return Quote{}, fmt.Errorf("%w: output %d, reserve %d", ErrReserveExhausted, amountOut, reserveOut)
	}

	q := Quote{
		AmountIn:         amountIn,
		Fee:              fee,
		NetInput:         netInput,
		AmountOut:        amountOut,
		ReserveInBefore:  reserveIn,
		ReserveOutBefore: reserveOut,
		ReserveInAfter:   newReserveIn,
		ReserveOutAfter:  reserveOut - amountOut,
	}
	if err := CheckInvariant(q.ReserveInBefore, q.ReserveOutBefore, q.ReserveInAfter, q.ReserveOutAfter); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// CheckInvariant fails when after.in*after.out < before.in*before.out.
func CheckInvariant(inBefore, outBefore, inAfter, outAfter uint64) error {
	before := new(uint256.Int).Mul(uint256.NewInt(inBefore), uint256.NewInt(outBefore))
	after := new(uint256.Int).Mul(uint256.NewInt(inAfter), uint256.NewInt(outAfter))
	if after.Lt(before) {
		return fmt.Errorf("%w: %s < %s", ErrInvariantViolated, after.Dec(), before.Dec())
	}
	return nil
}
