package ration

import (
	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/lp"
)

// DefaultForageMinFraction is the minimum share of dry matter that must
// come from forage.
const DefaultForageMinFraction = 0.20

type row struct {
	class domain.ConstraintClass
	lp.Constraint
}

// buildRows returns every constraint of the ration problem tagged with its
// class, in domain.ConstraintClasses order.
func buildRows(ingredients []feed.Ingredient, req requirement.Set, forageFraction float64) []row {
	n := len(ingredients)
	ones := make([]float64, n)
	nel := make([]float64, n)
	cp := make([]float64, n)
	ndf := make([]float64, n)
	starch := make([]float64, n)
	forage := make([]float64, n)
	for i, ingredient := range ingredients {
		ones[i] = 1
		nel[i] = ingredient.NetEnergyLactation
		cp[i] = ingredient.CrudeProteinPct / 100 * constants.GramsPerKg
		ndf[i] = ingredient.NDFPct / 100
		starch[i] = ingredient.StarchPct / 100
		if ingredient.IsForage() {
			forage[i] = 1
		}
	}

	return []row{
		{domain.ConstraintMass, lp.Constraint{Name: "dry_matter", Coefficients: ones, Sense: lp.Equal, RHS: req.DMIKg}},
		{domain.ConstraintEnergy, lp.Constraint{Name: "nel_min", Coefficients: nel, Sense: lp.GreaterEqual, RHS: req.NELMcal}},
		{domain.ConstraintProtein, lp.Constraint{Name: "cp_min", Coefficients: cp, Sense: lp.GreaterEqual, RHS: req.CrudeProtein}},
		{domain.ConstraintFiber, lp.Constraint{Name: "ndf_min", Coefficients: ndf, Sense: lp.GreaterEqual, RHS: req.NDFMinKg()}},
		{domain.ConstraintFiber, lp.Constraint{Name: "ndf_max", Coefficients: append([]float64(nil), ndf...), Sense: lp.LessEqual, RHS: req.NDFMaxKg()}},
		{domain.ConstraintStarch, lp.Constraint{Name: "starch_max", Coefficients: starch, Sense: lp.LessEqual, RHS: req.StarchMaxKg()}},
		{domain.ConstraintForage, lp.Constraint{Name: "forage_min", Coefficients: forage, Sense: lp.GreaterEqual, RHS: forageFraction * req.DMIKg}},
	}
}

// buildProblem formulates the least-cost ration with one variable per
// ingredient, leaving out any constraint class listed in skip.
func buildProblem(ingredients []feed.Ingredient, req requirement.Set, forageFraction float64, skip ...domain.ConstraintClass) *lp.Problem {
	problem := &lp.Problem{Name: "tmr_formulation"}
	for _, ingredient := range ingredients {
		problem.AddVariable(lp.Variable{
			Name:  "x_" + ingredient.Name,
			Cost:  ingredient.PricePerKgDM,
			Lower: ingredient.MinKgDM,
			Upper: ingredient.MaxKgDM.Limit(),
		})
	}

rows:
	for _, r := range buildRows(ingredients, req, forageFraction) {
		for _, class := range skip {
			if r.class == class {
				continue rows
			}
		}
		problem.AddConstraint(r.Constraint)
	}
	return problem
}
