package math

import (
	"errors"
	"math"
	"math/bits"
)

var ErrOverflowUint32 = errors.New("uint32 overflow")
var ErrOverflowUint64 = errors.New("uint64 overflow")
var ErrOverflowInt64 = errors.New("int64 overflow")

// SafeAddUint64 adds two uint64 integers.
// If there is an overflow it returns an error.
func SafeAddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflowUint64
	}
	return a + b, nil
}

// SafeMulUint64 multiplies two uint64 integers.
// If there is an overflow it returns an error.
func SafeMulUint64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrOverflowUint64
	}
	return a * b, nil
}

// SaturatingSubUint64 returns a-b, or 0 if b > a.
func SaturatingSubUint64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SafeConvertUint32 takes an uint64 and checks if it overflows.
// If there is an overflow it returns an error.
func SafeConvertUint32(a uint64) (uint32, error) {
	if a > math.MaxUint32 {
		return 0, ErrOverflowUint32
	}
	return uint32(a), nil
}

// SafeConvertUint64 takes an int64 and checks if it is negative.
func SafeConvertUint64(a int64) (uint64, error) {
	if a < 0 {
		return 0, ErrOverflowUint64
	}
	return uint64(a), nil
}

// SafeConvertInt64 takes an uint64 and checks if it overflows int64.
func SafeConvertInt64(a uint64) (int64, error) {
	if a > math.MaxInt64 {
		return 0, ErrOverflowInt64
	}
	return int64(a), nil
}

// MulDivUint64 returns floor(a*b/c) computed with a 128-bit intermediate.
// It returns an error if c is zero or the result does not fit in uint64.
func MulDivUint64(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, errors.New("division by zero")
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflowUint64
	}
	quo, _ := bits.Div64(hi, lo, c)
	return quo, nil
}
