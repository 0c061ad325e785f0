package aggregate

import (
	"fmt"
	"math/big"
	"time"

	"solarpool/internal/model"
)

const (
	directionAToB = "a_to_b"
	directionBToA = "b_to_a"
)

// Accumulator holds running totals for one pool.
type Accumulator struct {
	Pool      string
	MintA     string
	MintB     string
	SwapCount uint64
	VolumeA   *big.Int
	VolumeB   *big.Int
	FeeA      *big.Int
	FeeB      *big.Int
	OutputA   *big.Int
	OutputB   *big.Int
	ReserveA  *big.Int
	ReserveB  *big.Int
	FirstStep int
	LastStep  int
	LastRunID string

	firstAt time.Time
	lastAt  time.Time
}

func NewAccumulator(receipt model.SwapReceipt) *Accumulator {
	acc := &Accumulator{
		Pool:      receipt.Pool,
		VolumeA:   big.NewInt(0),
		VolumeB:   big.NewInt(0),
		FeeA:      big.NewInt(0),
		FeeB:      big.NewInt(0),
		OutputA:   big.NewInt(0),
		OutputB:   big.NewInt(0),
		ReserveA:  big.NewInt(0),
		ReserveB:  big.NewInt(0),
		FirstStep: receipt.Step,
		LastStep:  receipt.Step,
	}
	if receipt.Direction == directionBToA {
		acc.MintA, acc.MintB = receipt.OutputMint, receipt.InputMint
	} else {
		acc.MintA, acc.MintB = receipt.InputMint, receipt.OutputMint
	}
	return acc
}

// AddReceipt folds one swap into the totals. Reserves track the most
// recently executed receipt.
func (a *Accumulator) AddReceipt(receipt model.SwapReceipt) error {
	if receipt.Pool != a.Pool {
		return fmt.Errorf("receipt for %s added to %s", receipt.Pool, a.Pool)
	}

	var reserveA, reserveB uint64
	switch receipt.Direction {
	case directionAToB:
		if receipt.InputMint != a.MintA || receipt.OutputMint != a.MintB {
			return fmt.Errorf("receipt mints do not match pool %s", a.Pool)
		}
		addUint(a.VolumeA, receipt.AmountIn)
		addUint(a.FeeA, receipt.Fee)
		addUint(a.OutputB, receipt.AmountOut)
		reserveA, reserveB = receipt.ReserveInAfter, receipt.ReserveOutAfter
	case directionBToA:
		if receipt.InputMint != a.MintB || receipt.OutputMint != a.MintA {
			return fmt.Errorf("receipt mints do not match pool %s", a.Pool)
		}
		addUint(a.VolumeB, receipt.AmountIn)
		addUint(a.FeeB, receipt.Fee)
		addUint(a.OutputA, receipt.AmountOut)
		reserveA, reserveB = receipt.ReserveOutAfter, receipt.ReserveInAfter
	default:
		return fmt.Errorf("unknown direction %q", receipt.Direction)
	}

	// Receipts are ordered by execution time, then by step within a run,
	// since step numbers restart with every run.
	at := executedAt(receipt)
	if a.SwapCount == 0 || before(at, receipt.Step, a.firstAt, a.FirstStep) {
		a.firstAt = at
		a.FirstStep = receipt.Step
	}
	if a.SwapCount == 0 || !before(at, receipt.Step, a.lastAt, a.LastStep) {
		a.lastAt = at
		a.LastStep = receipt.Step
		a.LastRunID = receipt.RunID
		a.ReserveA.SetUint64(reserveA)
		a.ReserveB.SetUint64(reserveB)
	}
	a.SwapCount++
	return nil
}

func addUint(target *big.Int, value uint64) {
	target.Add(target, new(big.Int).SetUint64(value))
}

// LastSeen returns the execution time of the latest receipt, or "" when
// receipts carried no timestamp.
func (a *Accumulator) LastSeen() string {
	if a.lastAt.IsZero() {
		return ""
	}
	return a.lastAt.UTC().Format(time.RFC3339Nano)
}

func executedAt(receipt model.SwapReceipt) time.Time {
	at, err := time.Parse(time.RFC3339Nano, receipt.ExecutedAt)
	if err != nil {
		return time.Time{}
	}
	return at
}

func before(at time.Time, step int, refAt time.Time, refStep int) bool {
	if !at.Equal(refAt) {
		return at.Before(refAt)
	}
	return step < refStep
}
