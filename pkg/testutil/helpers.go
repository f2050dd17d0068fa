// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"
	"testing"

	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/mathutil"
)

// RelativeTolerance is the constraint tolerance used by CheckRation.
const RelativeTolerance = 1e-6

// ReferenceAnimal is the 650 kg cow producing 45 kg of milk at 75 DIM with
// a 31 kg DMI target.
func ReferenceAnimal() requirement.Animal {
	return requirement.Animal{BodyWeightKg: 650, MilkYieldKg: 45, DaysInMilk: 75, TargetDMIKg: 31}
}

// ReferenceRequirements returns the placeholder requirements for
// ReferenceAnimal.
func ReferenceRequirements(t testing.TB) requirement.Set {
	t.Helper()
	set, err := requirement.NewPlaceholder().Estimate(ReferenceAnimal())
	if err != nil {
		t.Fatalf("reference requirements: %v", err)
	}
	return set
}

// FindIngredient returns a pointer to the named ingredient in ingredients,
// or nil when it is absent.
func FindIngredient(ingredients []feed.Ingredient, name string) *feed.Ingredient {
	for i := range ingredients {
		if ingredients[i].Name == name {
			return &ingredients[i]
		}
	}
	return nil
}

func slack(target float64) float64 {
	return RelativeTolerance * math.Max(1, math.Abs(target))
}

// CheckRation fails t unless solution respects every ingredient bound and
// all six constraint classes of req.
func CheckRation(t testing.TB, ingredients []feed.Ingredient, req requirement.Set, forageFraction float64, solution *ration.Solution) {
	t.Helper()
	if !solution.Feasible() {
		t.Fatalf("expected a feasible solution, got %+v", solution)
	}
	if len(solution.Amounts) != len(ingredients) {
		t.Fatalf("expected %d amounts, got %d", len(ingredients), len(solution.Amounts))
	}

	var dm, nel, cp, ndf, starch, forage, cost float64
	for i, ingredient := range ingredients {
		amount := solution.Amounts[i]
		if solution.Names[i] != ingredient.Name {
			t.Errorf("amount %d belongs to %s, expected %s", i, solution.Names[i], ingredient.Name)
		}
		if amount < ingredient.MinKgDM-slack(ingredient.MinKgDM) {
			t.Errorf("%s: %.6f kg below minimum %.6f", ingredient.Name, amount, ingredient.MinKgDM)
		}
		if limit := ingredient.MaxKgDM.Limit(); amount > limit+slack(limit) {
			t.Errorf("%s: %.6f kg above maximum %.6f", ingredient.Name, amount, limit)
		}
		dm += amount
		nel += amount * ingredient.NetEnergyLactation
		cp += amount * ingredient.CrudeProteinPct / 100 * constants.GramsPerKg
		ndf += amount * ingredient.NDFPct / 100
		starch += amount * ingredient.StarchPct / 100
		cost += amount * ingredient.PricePerKgDM
		if ingredient.IsForage() {
			forage += amount
		}
	}

	if !mathutil.WithinRelative(dm, req.DMIKg, RelativeTolerance) {
		t.Errorf("mass: total %.6f kg, expected %.6f", dm, req.DMIKg)
	}
	if nel < req.NELMcal-slack(req.NELMcal) {
		t.Errorf("energy: %.6f Mcal below %.6f", nel, req.NELMcal)
	}
	if cp < req.CrudeProtein-slack(req.CrudeProtein) {
		t.Errorf("protein: %.3f g below %.3f", cp, req.CrudeProtein)
	}
	if ndf < req.NDFMinKg()-slack(req.NDFMinKg()) || ndf > req.NDFMaxKg()+slack(req.NDFMaxKg()) {
		t.Errorf("fiber: %.6f kg outside [%.6f, %.6f]", ndf, req.NDFMinKg(), req.NDFMaxKg())
	}
	if starch > req.StarchMaxKg()+slack(req.StarchMaxKg()) {
		t.Errorf("starch: %.6f kg above %.6f", starch, req.StarchMaxKg())
	}
	if minForage := forageFraction * req.DMIKg; forage < minForage-slack(minForage) {
		t.Errorf("forage: %.6f kg below %.6f", forage, minForage)
	}
	if !mathutil.WithinRelative(cost, solution.Cost, RelativeTolerance) {
		t.Errorf("cost: reported %.6f, recomputed %.6f", solution.Cost, cost)
	}
}
