// Package format renders quantities for presentation.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		return "-$" + group(d.Abs().StringFixed(2))
	}
	return "$" + group(d.StringFixed(2))
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		return "-" + group(d.Abs().StringFixed(2))
	}
	return group(d.StringFixed(2))
}

// Percent returns a value with two decimals and a percent sign (e.g., "26.00%").
func Percent(value float64) string {
	return Fixed(value, 2) + "%"
}

// Fixed rounds value half away from zero to places decimals.
func Fixed(value float64, places int32) string {
	d := decimal.NewFromFloat(value).Round(places)
	if d.IsZero() {
		// avoid "-0.00"
		d = decimal.Zero
	}
	return d.StringFixed(places)
}

func group(formatted string) string {
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
