// Package fixedpoint converts between external decimal strings and the
// six-decimal fixed-point integers the matching engine and ledger operate on.
package fixedpoint

import (
	"errors"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional decimal digits carried by every
// internal price/quantity unit (10^-6).
const Scale = 6

var scaleFactor = decimal.New(1, Scale)

var (
	ErrNegative   = errors.New("fixedpoint: value must be non-negative")
	ErrTooPrecise = errors.New("fixedpoint: more than six fractional digits")
	ErrOverflow   = errors.New("fixedpoint: value overflows uint64")
	ErrZeroOrNeg  = errors.New("fixedpoint: value must be strictly positive")
)

// FromDecimalString parses an external decimal string ("123.456789") into
// an internal fixed-point u64. Returns ErrTooPrecise if the string carries
// more than six fractional digits, since that precision would be lost.
func FromDecimalString(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.Sign() < 0 {
		return 0, ErrNegative
	}
	scaled := d.Mul(scaleFactor)
	if !scaled.IsInteger() {
		return 0, ErrTooPrecise
	}
	big := scaled.BigInt()
	if !big.IsUint64() {
		return 0, ErrOverflow
	}
	return big.Uint64(), nil
}

// ToDecimalString renders an internal fixed-point u64 back to a canonical
// decimal string without loss of precision; trailing fractional zeros are
// dropped (100_000_000 renders as "100").
func ToDecimalString(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0).DivRound(scaleFactor, Scale).String()
}

// MulDiv computes (a * b) / divisor using a 128-bit-safe intermediate,
// returning ErrOverflow if the product cannot be represented after division.
func MulDiv(a, b, divisor uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if divisor == 0 {
		return 0, ErrOverflow
	}
	if hi >= divisor {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, divisor)
	return q, nil
}

// Notional computes price * quantity / 10^Scale as an overflow-checked u64,
// the fixed-point equivalent of a floating-point multiply followed by
// rescaling back down to six decimals.
func Notional(price, quantity uint64) (uint64, error) {
	return MulDiv(price, quantity, pow10(Scale))
}

// CheckedAdd adds two u64 values, returning ErrOverflow on wraparound.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub subtracts b from a, returning ErrOverflow if the result would
// be negative.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

func pow10(n int) uint64 {
	v := uint64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
