// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/tmr-formulator/pkg/constants"
)

// WithinRelative checks if two values agree to a relative tolerance, with
// the scale floored at one so values near zero compare absolutely.
func WithinRelative(val1, val2, tolerance float64) bool {
	scale := math.Max(1, math.Max(math.Abs(val1), math.Abs(val2)))
	return math.Abs(val1-val2) <= tolerance*scale
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}
