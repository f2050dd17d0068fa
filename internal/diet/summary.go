// Package diet aggregates a ration solution into diet-level composition
// metrics and cost.
package diet

import (
	"fmt"

	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/mathutil"
)

// Line is one ingredient's contribution to the diet.
type Line struct {
	Name     string        `json:"name"`
	Category feed.Category `json:"category"`
	AmountKg float64       `json:"amountKgDM"`
	SharePct float64       `json:"sharePct"`
	Cost     float64       `json:"cost"`
}

// Summary is a read-only aggregation of a ration. Absolute totals are per
// cow per day; percentages are of total dry matter.
type Summary struct {
	Lines []Line `json:"lines"`

	TotalDMKg     float64 `json:"totalDMKg"`
	TotalNELMcal  float64 `json:"totalNELMcal"`
	TotalCPG      float64 `json:"totalCPG"`
	TotalNDFKg    float64 `json:"totalNDFKg"`
	TotalStarchKg float64 `json:"totalStarchKg"`
	TotalFatKg    float64 `json:"totalFatKg"`
	TotalForageKg float64 `json:"totalForageKg"`
	TotalCost     float64 `json:"totalCost"`

	NELDensity float64 `json:"nelMcalPerKgDM"`
	CPPct      float64 `json:"cpPct"`
	NDFPct     float64 `json:"ndfPct"`
	StarchPct  float64 `json:"starchPct"`
	FatPct     float64 `json:"fatPct"`
	ForagePct  float64 `json:"foragePct"`
}

// Summarize aggregates solution over ingredients, which must be the list
// the solution was computed from. A solution with no dry matter fails with
// domain.ErrDivisionUndefined rather than reporting percentages of zero.
func Summarize(ingredients []feed.Ingredient, solution *ration.Solution) (*Summary, error) {
	if solution == nil {
		return nil, domain.InvalidInputf("solution cannot be nil")
	}
	if len(solution.Amounts) != len(ingredients) {
		return nil, domain.InvalidInputf("solution has %d amounts for %d ingredients", len(solution.Amounts), len(ingredients))
	}
	for i, ingredient := range ingredients {
		if i < len(solution.Names) && solution.Names[i] != ingredient.Name {
			return nil, domain.InvalidInputf("solution entry %d is %q, expected %q", i, solution.Names[i], ingredient.Name)
		}
	}

	summary := &Summary{Lines: make([]Line, len(ingredients))}
	for i, ingredient := range ingredients {
		amount := solution.Amounts[i]
		cost := amount * ingredient.PricePerKgDM
		summary.Lines[i] = Line{
			Name:     ingredient.Name,
			Category: ingredient.Category,
			AmountKg: amount,
			Cost:     cost,
		}
		summary.TotalDMKg += amount
		summary.TotalNELMcal += amount * ingredient.NetEnergyLactation
		summary.TotalCPG += mathutil.ApplyPercentage(amount, ingredient.CrudeProteinPct) * constants.GramsPerKg
		summary.TotalNDFKg += mathutil.ApplyPercentage(amount, ingredient.NDFPct)
		summary.TotalStarchKg += mathutil.ApplyPercentage(amount, ingredient.StarchPct)
		summary.TotalFatKg += mathutil.ApplyPercentage(amount, ingredient.FatPct)
		summary.TotalCost += cost
		if ingredient.IsForage() {
			summary.TotalForageKg += amount
		}
	}

	if summary.TotalDMKg <= 0 {
		return nil, fmt.Errorf("%w: total %.6f kg", domain.ErrDivisionUndefined, summary.TotalDMKg)
	}

	dm := summary.TotalDMKg
	summary.NELDensity = summary.TotalNELMcal / dm
	summary.CPPct = mathutil.CalculatePercentage(summary.TotalCPG/constants.GramsPerKg, dm)
	summary.NDFPct = mathutil.CalculatePercentage(summary.TotalNDFKg, dm)
	summary.StarchPct = mathutil.CalculatePercentage(summary.TotalStarchKg, dm)
	summary.FatPct = mathutil.CalculatePercentage(summary.TotalFatKg, dm)
	summary.ForagePct = mathutil.CalculatePercentage(summary.TotalForageKg, dm)
	for i := range summary.Lines {
		summary.Lines[i].SharePct = mathutil.CalculatePercentage(summary.Lines[i].AmountKg, dm)
	}
	return summary, nil
}
