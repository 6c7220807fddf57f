// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
)

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// WithinRelative checks if two values agree to the given relative tolerance.
func WithinRelative(val1, val2, tolerance float64) bool {
	scale := math.Max(math.Abs(val1), math.Abs(val2))
	if scale == 0 {
		return true
	}
	return math.Abs(val1-val2)/scale <= tolerance
}

// SafeDiv divides a by b, returning 0 when b is zero or either operand is not
// a finite number. A transient bad quote must never poison a series.
func SafeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(a) || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0
	}
	return a / b
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// PercentChange returns (to - from) / from as a percentage, or 0 when from is zero.
func PercentChange(from, to float64) float64 {
	return CalculatePercentage(to-from, from)
}

// CompoundFactor returns (1 + rate)^periods.
func CompoundFactor(rate, periods float64) float64 {
	return math.Pow(1+rate, periods)
}
