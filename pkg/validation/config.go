// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"math"
	"strings"
)

// FeedLimits is the part of a feed definition the pre-solve checks need.
// MaxKg is +Inf when the feed has no upper limit.
type FeedLimits struct {
	Name   string
	Forage bool
	MinKg  float64
	MaxKg  float64
}

// RationValidator runs cheap sanity checks on a ration configuration before
// it reaches the solver. None of the checks are fatal; they explain why a
// solve is likely to come back infeasible.
type RationValidator struct {
	DMIKg             float64
	ForageMinFraction float64
	Feeds             []FeedLimits
}

// ValidateMassBalance checks that the inclusion limits leave room for the
// target dry matter intake.
func ValidateMassBalance(dmi float64, feeds []FeedLimits) []string {
	var warnings []string
	minTotal, maxTotal := 0.0, 0.0
	for _, f := range feeds {
		minTotal += f.MinKg
		maxTotal += f.MaxKg
	}
	if minTotal > dmi {
		warnings = append(warnings, fmt.Sprintf("minimum inclusions total %.2f kg DM, above the %.2f kg DMI target", minTotal, dmi))
	}
	if !math.IsInf(maxTotal, 1) && maxTotal < dmi {
		warnings = append(warnings, fmt.Sprintf("maximum inclusions total %.2f kg DM, below the %.2f kg DMI target", maxTotal, dmi))
	}
	return warnings
}

// ValidateForageSupply checks that the forage feeds can cover the forage
// floor.
func ValidateForageSupply(dmi, fraction float64, feeds []FeedLimits) []string {
	if fraction <= 0 {
		return nil
	}
	var forages []string
	capacity := 0.0
	for _, f := range feeds {
		if f.Forage {
			forages = append(forages, f.Name)
			capacity += f.MaxKg
		}
	}
	floor := fraction * dmi
	if len(forages) == 0 {
		return []string{fmt.Sprintf("no forage feeds in catalog, but %.0f%% of DMI must be forage", fraction*100)}
	}
	if capacity < floor {
		return []string{fmt.Sprintf("forage feeds (%s) supply at most %.2f kg DM, below the %.2f kg forage floor",
			strings.Join(forages, ", "), capacity, floor)}
	}
	return nil
}

// ValidateAll validates the entire configuration and returns warnings
func (rv *RationValidator) ValidateAll() []string {
	var warnings []string
	warnings = append(warnings, ValidateMassBalance(rv.DMIKg, rv.Feeds)...)
	warnings = append(warnings, ValidateForageSupply(rv.DMIKg, rv.ForageMinFraction, rv.Feeds)...)
	return warnings
}
