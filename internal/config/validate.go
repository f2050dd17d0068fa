package config

import (
	"fmt"

	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/pkg/validation"
)

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	ingredients, warnings, err := c.Ingredients()
	if err != nil {
		// hard errors surface when the formulation runs
		return warnings
	}

	if c.Solver.Timeout <= 0 {
		warnings = append(warnings, "solver timeout is not set, solves are not time-limited")
	}

	feeds := make([]validation.FeedLimits, len(ingredients))
	for i, ingredient := range ingredients {
		feeds[i] = feedLimits(ingredient)
	}
	validator := validation.RationValidator{
		DMIKg:             c.Animal.TargetDMIKg,
		ForageMinFraction: c.ForageMinFraction(),
		Feeds:             feeds,
	}
	warnings = append(warnings, validator.ValidateAll()...)

	policy := c.Policy()
	if policy.NDFMinPct > policy.NDFMaxPct {
		warnings = append(warnings, fmt.Sprintf("ndfMinPct %.1f is above ndfMaxPct %.1f", policy.NDFMinPct, policy.NDFMaxPct))
	}
	return warnings
}

func feedLimits(i feed.Ingredient) validation.FeedLimits {
	return validation.FeedLimits{
		Name:   i.Name,
		Forage: i.IsForage(),
		MinKg:  i.MinKgDM,
		MaxKg:  i.MaxKgDM.Limit(),
	}
}
