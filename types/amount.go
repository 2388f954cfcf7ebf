package types

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the display precision used when a ledger does not set one.
const DefaultDecimals uint8 = 18

// Arithmetic errors. Amount never wraps.
var (
	ErrOverflow  = errors.New("token: amount overflow")
	ErrUnderflow = errors.New("token: amount underflow")
)

// Amount is a token quantity in the smallest denomination.
// All arithmetic is checked integer arithmetic; an Amount is never negative.
//
// Examples with 2 decimals:
//   - Amount(4900).Format(2) = "49"
//   - Amount(4950).Format(2) = "49.5"
type Amount uint64

// Add returns a+b, or ErrOverflow if the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if sum < a {
		return a, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrUnderflow if b is larger than a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return a, ErrUnderflow
	}
	return a - b, nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Uint64 returns the raw unit count.
func (a Amount) Uint64() uint64 { return uint64(a) }

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Decimal returns the amount as a decimal scaled down by decimals places.
func (a Amount) Decimal(decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -int32(decimals))
}

// Format renders the amount in whole-token units without trailing zeros.
func (a Amount) Format(decimals uint8) string {
	return a.Decimal(decimals).String()
}

// String returns the raw unit count.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAmount parses a whole-token decimal string ("12.5") into smallest units.
// It rejects negative values and values with more fractional digits than
// decimals allows.
func ParseAmount(s string, decimals uint8) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("types: parse amount %q: negative", s)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("types: parse amount %q: more than %d decimal places", s, decimals)
	}

	units := scaled.BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("types: parse amount %q: %w", s, ErrOverflow)
	}
	return Amount(units.Uint64()), nil
}

// Sum adds all values, failing with ErrOverflow if the total does not fit.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return total, err
		}
		total = next
	}
	return total, nil
}
