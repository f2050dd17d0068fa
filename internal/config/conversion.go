package config

import (
	"fmt"

	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
)

// FeedConfig is one feed as written in the configuration file. A missing
// maxKgDM means the feed has no upper inclusion limit.
type FeedConfig struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Category string   `yaml:"category,omitempty" mapstructure:"category"`
	Price    float64  `yaml:"price" mapstructure:"price"`
	NEL      float64  `yaml:"nel" mapstructure:"nel"`
	CP       float64  `yaml:"cp" mapstructure:"cp"`
	NDF      float64  `yaml:"ndf" mapstructure:"ndf"`
	Starch   float64  `yaml:"starch" mapstructure:"starch"`
	Fat      float64  `yaml:"fat" mapstructure:"fat"`
	MinKgDM  float64  `yaml:"minKgDM,omitempty" mapstructure:"minKgDM"`
	MaxKgDM  *float64 `yaml:"maxKgDM,omitempty" mapstructure:"maxKgDM"`
}

// ToIngredient converts the config entry to a catalog ingredient.
func (f FeedConfig) ToIngredient() feed.Ingredient {
	return feed.Ingredient{
		Name:               f.Name,
		Category:           feed.Category(f.Category),
		PricePerKgDM:       f.Price,
		NetEnergyLactation: f.NEL,
		CrudeProteinPct:    f.CP,
		NDFPct:             f.NDF,
		StarchPct:          f.Starch,
		FatPct:             f.Fat,
		MinKgDM:            f.MinKgDM,
		MaxKgDM:            feed.BoundFromPtr(f.MaxKgDM),
	}
}

// FromIngredient converts a catalog ingredient back to its config form.
func FromIngredient(i feed.Ingredient) FeedConfig {
	return FeedConfig{
		Name:     i.Name,
		Category: string(i.Category),
		Price:    i.PricePerKgDM,
		NEL:      i.NetEnergyLactation,
		CP:       i.CrudeProteinPct,
		NDF:      i.NDFPct,
		Starch:   i.StarchPct,
		Fat:      i.FatPct,
		MinKgDM:  i.MinKgDM,
		MaxKgDM:  i.MaxKgDM.Ptr(),
	}
}

// FromIngredients converts a whole catalog to config form.
func FromIngredients(ingredients []feed.Ingredient) []FeedConfig {
	feeds := make([]FeedConfig, len(ingredients))
	for i, ingredient := range ingredients {
		feeds[i] = FromIngredient(ingredient)
	}
	return feeds
}

// Ingredients returns the configured feed catalog, or the default library
// when no feeds are configured. The returned warnings name every feed whose
// category had to be inferred from its name.
func (c *Configuration) Ingredients() ([]feed.Ingredient, []string, error) {
	if len(c.Feeds) == 0 {
		return feed.DefaultLibrary(), nil, nil
	}

	var warnings []string
	ingredients := make([]feed.Ingredient, len(c.Feeds))
	for i, f := range c.Feeds {
		ingredient := f.ToIngredient()
		if ingredient.Normalize() {
			warnings = append(warnings, fmt.Sprintf("feed '%s' has no category, classified as %s from its name",
				ingredient.Name, ingredient.Category))
		}
		ingredients[i] = ingredient
	}
	if err := feed.ValidateAll(ingredients); err != nil {
		return nil, warnings, err
	}
	return ingredients, warnings, nil
}

// AnimalInput returns the configured animal.
func (c *Configuration) AnimalInput() requirement.Animal {
	return requirement.Animal{
		BodyWeightKg: c.Animal.BodyWeightKg,
		MilkYieldKg:  c.Animal.MilkYieldKg,
		DaysInMilk:   c.Animal.DaysInMilk,
		TargetDMIKg:  c.Animal.TargetDMIKg,
	}
}

// Policy returns the placeholder requirement policy with any configured
// density overrides applied.
func (c *Configuration) Policy() requirement.Placeholder {
	policy := requirement.NewPlaceholder()
	r := c.Requirements
	if r.CrudeProteinPct != nil {
		policy.CrudeProteinPct = *r.CrudeProteinPct
	}
	if r.NELPerKgDM != nil {
		policy.NELPerKgDM = *r.NELPerKgDM
	}
	if r.NDFMinPct != nil {
		policy.NDFMinPct = *r.NDFMinPct
	}
	if r.NDFMaxPct != nil {
		policy.NDFMaxPct = *r.NDFMaxPct
	}
	if r.StarchMaxPct != nil {
		policy.StarchMaxPct = *r.StarchMaxPct
	}
	return policy
}

// ForageMinFraction returns the configured forage floor, or the default.
func (c *Configuration) ForageMinFraction() float64 {
	if c.Ration.ForageMinFraction == nil {
		return ration.DefaultForageMinFraction
	}
	return *c.Ration.ForageMinFraction
}

// OptimizerOptions returns the optimizer settings described by the config.
// An explicit forageMinFraction of zero disables the forage floor.
func (c *Configuration) OptimizerOptions() (ration.Options, error) {
	fraction, err := ration.ParseForageFraction(c.ForageMinFraction())
	if err != nil {
		return ration.Options{}, fmt.Errorf("ration.forageMinFraction: %w", err)
	}
	return ration.Options{
		ForageMinFraction: fraction,
		Timeout:           c.Solver.Timeout,
		SkipDiagnosis:     c.Ration.SkipDiagnosis,
	}, nil
}
