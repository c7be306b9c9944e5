package math

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Fraction defined in terms of a numerator divided by a denominator in uint64
// format.
type Fraction struct {
	// The portion of the denominator in the faction, e.g. 2 in 2/3.
	Numerator uint64 `json:"numerator"`
	// The value by which the numerator is divided, e.g. 3 in 2/3. Must be
	// positive.
	Denominator uint64 `json:"denominator"`
}

func (fr Fraction) String() string {
	return fmt.Sprintf("%d/%d", fr.Numerator, fr.Denominator)
}

// ValidateTrustLevel checks fr lies within [1/3, 1].
func (fr Fraction) ValidateTrustLevel() error {
	if fr.Denominator == 0 {
		return errors.New("denominator must be positive")
	}
	// fr*3 >= 1 and fr <= 1
	if !GreaterOrEqualRatio(fr.Numerator, fr.Denominator, 1, 3) || fr.Numerator > fr.Denominator {
		return fmt.Errorf("trust level must be within [1/3, 1], given %v", fr)
	}
	return nil
}

// ParseFraction parses a fraction in the "n/d" form.
func ParseFraction(s string) (Fraction, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Fraction{}, fmt.Errorf("incorrect formating: should have a single slash i.e. \"1/3\", got %q", s)
	}
	num, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("incorrect formatting, err: %w", err)
	}
	denom, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("incorrect formatting, err: %w", err)
	}
	if denom == 0 {
		return Fraction{}, errors.New("denominator can't be 0")
	}
	return Fraction{Numerator: num, Denominator: denom}, nil
}

// GreaterRatio reports whether a/b > c/d, i.e. a*d > c*b, compared in 128 bits.
func GreaterRatio(a, b, c, d uint64) bool {
	return cmp128(a, d, c, b) > 0
}

// GreaterOrEqualRatio reports whether a/b >= c/d.
func GreaterOrEqualRatio(a, b, c, d uint64) bool {
	return cmp128(a, d, c, b) >= 0
}

// cmp128 compares x1*y1 with x2*y2 without overflow.
func cmp128(x1, y1, x2, y2 uint64) int {
	hi1, lo1 := bits.Mul64(x1, y1)
	hi2, lo2 := bits.Mul64(x2, y2)
	switch {
	case hi1 > hi2:
		return 1
	case hi1 < hi2:
		return -1
	case lo1 > lo2:
		return 1
	case lo1 < lo2:
		return -1
	}
	return 0
}
