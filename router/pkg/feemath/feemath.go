// Package feemath implements the fixed-point arithmetic of the fee
// distribution algorithm. All operations are integer-only: products of
// 64-bit operands are computed in 128 bits and every division floors.
package feemath

import (
	"errors"
	"math/bits"
)

const (
	// MaxBps is the basis-points denominator (10000 = 100%).
	MaxBps = 10_000

	// SecondsPerDay anchors the 24-hour distribution gate.
	SecondsPerDay = 86_400
)

var (
	ErrDivideByZero = errors.New("division by zero")
	ErrOverflow     = errors.New("arithmetic overflow")
)

// MulDiv returns floor(a * b / d). The product is computed in 128 bits,
// so it never wraps; the call fails only if d is zero or the quotient
// itself exceeds 64 bits.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// BpsOf returns floor(amount * bps / 10000).
func BpsOf(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, MaxBps)
}

// LockedFractionBps returns floor(lockedTotal * 10000 / y0) clamped to
// 10000. A zero y0 yields zero rather than an error; policy validation
// keeps y0 positive, so this only guards adversarial state.
func LockedFractionBps(lockedTotal, y0 uint64) uint64 {
	if y0 == 0 {
		return 0
	}
	f, err := MulDiv(lockedTotal, MaxBps, y0)
	if err != nil || f > MaxBps {
		return MaxBps
	}
	return f
}

// DayIndex returns the integer day identifier for a Unix timestamp.
func DayIndex(unixTime int64) int64 {
	return unixTime / SecondsPerDay
}
