// Package requirement estimates the nutrient requirements a ration must
// meet from the state of the animal being fed.
package requirement

import (
	"math"

	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
)

// Animal describes the cow the ration is formulated for.
type Animal struct {
	BodyWeightKg float64 `json:"bodyWeightKg"`
	MilkYieldKg  float64 `json:"milkYieldKg"`
	DaysInMilk   int     `json:"daysInMilk"`
	TargetDMIKg  float64 `json:"targetDMIKg"`
}

// Validate checks the animal inputs. Days in milk may be zero on the day of
// calving; every other input must be a positive finite number.
func (a Animal) Validate() error {
	if err := positive("body weight", a.BodyWeightKg); err != nil {
		return err
	}
	if err := positive("milk yield", a.MilkYieldKg); err != nil {
		return err
	}
	if a.DaysInMilk < 0 {
		return domain.InvalidInputf("days in milk must be >= 0, got %d", a.DaysInMilk)
	}
	return positive("target DMI", a.TargetDMIKg)
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return domain.InvalidInputf("%s must be a positive finite number, got %g", name, v)
	}
	return nil
}

// Set is the nutrient targets a ration must satisfy.
type Set struct {
	DMIKg        float64 `json:"dmiKg"`
	NELMcal      float64 `json:"nelMcal"`
	CrudeProtein float64 `json:"cpG"`
	NDFMinPct    float64 `json:"ndfMinPct"`
	NDFMaxPct    float64 `json:"ndfMaxPct"`
	StarchMaxPct float64 `json:"starchMaxPct"`
}

// Validate checks the invariants the optimizer relies on.
func (s Set) Validate() error {
	if err := positive("dry matter intake", s.DMIKg); err != nil {
		return err
	}
	for _, field := range []struct {
		name  string
		value float64
		limit float64
	}{
		{"NEL requirement", s.NELMcal, math.Inf(1)},
		{"crude protein requirement", s.CrudeProtein, math.Inf(1)},
		{"NDF minimum", s.NDFMinPct, 100},
		{"NDF maximum", s.NDFMaxPct, 100},
		{"starch maximum", s.StarchMaxPct, 100},
	} {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) || field.value < 0 || field.value > field.limit {
			return domain.InvalidInputf("%s out of range: %g", field.name, field.value)
		}
	}
	if s.NDFMinPct > s.NDFMaxPct {
		return domain.InvalidInputf("NDF minimum %.2f%% exceeds maximum %.2f%%", s.NDFMinPct, s.NDFMaxPct)
	}
	return nil
}

// NDFMinKg is the lower edge of the fiber band in kg.
func (s Set) NDFMinKg() float64 { return s.NDFMinPct / 100 * s.DMIKg }

// NDFMaxKg is the upper edge of the fiber band in kg.
func (s Set) NDFMaxKg() float64 { return s.NDFMaxPct / 100 * s.DMIKg }

// StarchMaxKg is the starch ceiling in kg.
func (s Set) StarchMaxKg() float64 { return s.StarchMaxPct / 100 * s.DMIKg }

// Policy maps an animal to its requirements.
type Policy interface {
	Estimate(animal Animal) (Set, error)
}

// Placeholder policy defaults.
const (
	DefaultCrudeProteinPct = 17.0
	DefaultNELPerKgDM      = 1.6
	DefaultNDFMinPct       = 26.0
	DefaultNDFMaxPct       = 34.0
	DefaultStarchMaxPct    = 30.0
)

// Placeholder scales fixed nutrient densities by the target intake. Body
// weight, milk yield and days in milk are validated but do not yet change
// the result; a calibrated model can be dropped in behind Policy.
type Placeholder struct {
	CrudeProteinPct float64
	NELPerKgDM      float64
	NDFMinPct       float64
	NDFMaxPct       float64
	StarchMaxPct    float64
}

// NewPlaceholder returns the placeholder policy with its default densities.
func NewPlaceholder() Placeholder {
	return Placeholder{
		CrudeProteinPct: DefaultCrudeProteinPct,
		NELPerKgDM:      DefaultNELPerKgDM,
		NDFMinPct:       DefaultNDFMinPct,
		NDFMaxPct:       DefaultNDFMaxPct,
		StarchMaxPct:    DefaultStarchMaxPct,
	}
}

// Estimate returns the requirement set for animal.
func (p Placeholder) Estimate(animal Animal) (Set, error) {
	if err := animal.Validate(); err != nil {
		return Set{}, err
	}
	dmi := animal.TargetDMIKg
	set := Set{
		DMIKg:        dmi,
		NELMcal:      dmi * p.NELPerKgDM,
		CrudeProtein: dmi * p.CrudeProteinPct / 100 * constants.GramsPerKg,
		NDFMinPct:    p.NDFMinPct,
		NDFMaxPct:    p.NDFMaxPct,
		StarchMaxPct: p.StarchMaxPct,
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Estimate applies the default placeholder policy.
func Estimate(bodyWeightKg, milkYieldKg float64, daysInMilk int, targetDMIKg float64) (Set, error) {
	return NewPlaceholder().Estimate(Animal{
		BodyWeightKg: bodyWeightKg,
		MilkYieldKg:  milkYieldKg,
		DaysInMilk:   daysInMilk,
		TargetDMIKg:  targetDMIKg,
	})
}
