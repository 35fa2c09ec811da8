// Package safemath provides overflow-aware integer arithmetic.
//
// Checked operations return ErrOverflow instead of wrapping; saturating
// operations clamp to the bounds of the type.
package safemath

import (
	"errors"
	"math"
	"math/bits"

	"github.com/ryanavella/wide"
)

var ErrOverflow = errors.New("arithmetic overflow")

func CheckedAddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func CheckedSubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

func CheckedMulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

func SaturatingAddU64(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func SaturatingSubU64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingMulU64(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// CheckedMulU128 multiplies two 128-bit values, detecting wraparound by
// dividing the product back out.
func CheckedMulU128(a, b wide.Uint128) (wide.Uint128, error) {
	var zero wide.Uint128
	if a == zero || b == zero {
		return zero, nil
	}
	product := a.Mul(b)
	if product.Div(a) != b {
		return zero, ErrOverflow
	}
	return product, nil
}

// MulDivU64 computes floor(a*b/c) with a 128-bit intermediate product.
// The quotient must fit in 64 bits.
func MulDivU64(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrOverflow
	}
	product, err := CheckedMulU128(wide.Uint128FromUint64(a), wide.Uint128FromUint64(b))
	if err != nil {
		return 0, err
	}
	quotient := product.Div(wide.Uint128FromUint64(c))
	if !quotient.IsUint64() {
		return 0, ErrOverflow
	}
	return quotient.Uint64(), nil
}

// MulDivRemU64 is MulDivU64 that also returns the remainder of the division.
func MulDivRemU64(a, b, c uint64) (uint64, uint64, error) {
	if c == 0 {
		return 0, 0, ErrOverflow
	}
	product, err := CheckedMulU128(wide.Uint128FromUint64(a), wide.Uint128FromUint64(b))
	if err != nil {
		return 0, 0, err
	}
	divisor := wide.Uint128FromUint64(c)
	quotient := product.Div(divisor)
	if !quotient.IsUint64() {
		return 0, 0, ErrOverflow
	}
	// rem < c fits in 64 bits, so computing it modulo 2^64 is exact.
	q := quotient.Uint64()
	rem := a*b - q*c
	return q, rem, nil
}
