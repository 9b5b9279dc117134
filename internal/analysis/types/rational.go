package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rational represents a rational number (numerator/denominator).
// Frame rates are kept in this form so 30000/1001 survives without rounding.
type Rational struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// NewRational creates a new rational number
func NewRational(num, den int) Rational {
	if den == 0 {
		den = 1
	}
	return Rational{Num: num, Den: den}
}

// Float64 returns the floating point representation
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational carries no usable value.
func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

// Reduce returns r in lowest terms with a positive denominator.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	g := gcd(abs(r.Num), abs(r.Den))
	if g == 0 {
		g = 1
	}
	num, den := r.Num/g, r.Den/g
	if den < 0 {
		num, den = -num, -den
	}
	return Rational{Num: num, Den: den}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational parses "num/den" or a decimal such as "29.97" or "25".
// Decimals are converted exactly to a reduced fraction.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rational{}, fmt.Errorf("empty rational")
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return Rational{}, fmt.Errorf("invalid numerator %q: %w", num, err)
		}
		d, err := strconv.Atoi(strings.TrimSpace(den))
		if err != nil {
			return Rational{}, fmt.Errorf("invalid denominator %q: %w", den, err)
		}
		if d == 0 {
			return Rational{}, fmt.Errorf("zero denominator in %q", s)
		}
		return Rational{Num: n, Den: d}, nil
	}

	return parseDecimal(s)
}

// RationalFromFloat converts a float to a fraction using its shortest
// decimal representation.
func RationalFromFloat(f float64) (Rational, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rational{}, fmt.Errorf("non-finite value %v", f)
	}
	return parseDecimal(strconv.FormatFloat(f, 'f', -1, 64))
}

func parseDecimal(s string) (Rational, error) {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return Rational{}, fmt.Errorf("invalid rational %q: %w", s, err)
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > 9 {
		fracPart = fracPart[:9]
	}

	den := 1
	for range fracPart {
		den *= 10
	}
	num, err := strconv.Atoi(intPart + fracPart)
	if err != nil {
		return Rational{}, fmt.Errorf("invalid rational %q: %w", s, err)
	}
	return Rational{Num: num, Den: den}.Reduce(), nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Common frame rates
var (
	FrameRate24 = Rational{Num: 24, Den: 1}
	FrameRate25 = Rational{Num: 25, Den: 1} // PAL
	FrameRate30 = Rational{Num: 30, Den: 1}
	FrameRate50 = Rational{Num: 50, Den: 1}
	FrameRate60 = Rational{Num: 60, Den: 1}

	// NTSC frame rates
	FrameRate23_976 = Rational{Num: 24000, Den: 1001}
	FrameRate29_97  = Rational{Num: 30000, Den: 1001}
	FrameRate59_94  = Rational{Num: 60000, Den: 1001}
)
