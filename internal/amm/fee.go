package amm

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// FeeRate is an exact fraction charged on every swap's input amount.
type FeeRate struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

// ZeroFee charges nothing.
var ZeroFee = FeeRate{Numerator: 0, Denominator: 1}

func NewFeeRate(numerator, denominator uint32) (FeeRate, error) {
	rate := FeeRate{Numerator: numerator, Denominator: denominator}
	if err := rate.Validate(); err != nil {
		return FeeRate{}, err
	}
	return rate, nil
}

// Validate checks 0 <= n/d < 1.
func (f FeeRate) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("%w: zero denominator", ErrInvalidFeeRate)
	}
	if f.Numerator >= f.Denominator {
		return fmt.Errorf("%w: %s", ErrInvalidFeeRate, f)
	}
	return nil
}

func (f FeeRate) IsZero() bool {
	return f.Numerator == 0
}

// Fee returns floor(amount * n / d). The caller must have validated f.
func (f FeeRate) Fee(amount uint64) uint64 {
	if f.Numerator == 0 || amount == 0 {
		return 0
	}
	fee := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(f.Numerator)))
	fee.Div(fee, uint256.NewInt(uint64(f.Denominator)))
	// n < d, so fee < amount and fits.
	return fee.Uint64()
}

func (f FeeRate) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// ParseFeeRate accepts an exact fraction ("1/100") or an exact decimal
// ("0.003"). The result is reduced and must fit in 32-bit terms.
func ParseFeeRate(input string) (FeeRate, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return ZeroFee, nil
	}

	var num, den *big.Int
	if parts := strings.SplitN(input, "/", 2); len(parts) == 2 {
		n, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return FeeRate{}, fmt.Errorf("%w: numerator %q", ErrInvalidFeeRate, parts[0])
		}
		d, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return FeeRate{}, fmt.Errorf("%w: denominator %q", ErrInvalidFeeRate, parts[1])
		}
		if d == 0 {
			return FeeRate{}, fmt.Errorf("%w: zero denominator", ErrInvalidFeeRate)
		}
		num = new(big.Int).SetUint64(n)
		den = new(big.Int).SetUint64(d)
	} else {
		d, err := decimal.NewFromString(input)
		if err != nil {
			return FeeRate{}, fmt.Errorf("%w: %q", ErrInvalidFeeRate, input)
		}
		if d.IsNegative() {
			return FeeRate{}, fmt.Errorf("%w: negative rate %q", ErrInvalidFeeRate, input)
		}
		num = new(big.Int).Set(d.Coefficient())
		den = big.NewInt(1)
		if exp := d.Exponent(); exp < 0 {
			den.Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
		} else if exp > 0 {
			num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
		}
	}

	if num.Sign() == 0 {
		return ZeroFee, nil
	}
	gcd := new(big.Int).GCD(nil, nil, num, den)
	num.Quo(num, gcd)
	den.Quo(den, gcd)

	if !num.IsUint64() || !den.IsUint64() || num.Uint64() > math.MaxUint32 || den.Uint64() > math.MaxUint32 {
		return FeeRate{}, fmt.Errorf("%w: %q is not representable as a 32-bit fraction", ErrInvalidFeeRate, input)
	}
	return NewFeeRate(uint32(num.Uint64()), uint32(den.Uint64()))
}
