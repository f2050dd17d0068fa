// Package output provides utilities for formatting and displaying formulation results.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/formulation"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/format"
	"github.com/iwvelando/tmr-formulator/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// inclusionFloor hides ingredients the solver left at zero.
const inclusionFloor = 1e-9

// Write renders report in the named output format.
func Write(w io.Writer, outputFormat string, report *formulation.Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		PrettyFormat(w, report)
	case constants.OutputFormatCSV:
		CsvFormat(w, report)
	case constants.OutputFormatJSON:
		return JSONFormat(w, report)
	default:
		return fmt.Errorf("unsupported output format %s", outputFormat)
	}
	return nil
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, report *formulation.Report) {
	p := message.NewPrinter(language.English)
	a := report.Animal
	_, _ = p.Fprintf(w, "--- Least-cost ration for %.0f kg cow, %.1f kg milk, %d DIM, %.1f kg DMI ---\n",
		a.BodyWeightKg, a.MilkYieldKg, a.DaysInMilk, a.TargetDMIKg)
	fmt.Fprintf(w, "%-22s | %-11s | %9s | %7s | %9s\n", "Ingredient", "Category", "kg DM/day", "% DM", "Cost/day")
	fmt.Fprintf(w, "%-22s | %-11s | %9s | %7s | %9s\n",
		strings.Repeat("_", 22), strings.Repeat("_", 11), strings.Repeat("_", 9), strings.Repeat("_", 7), strings.Repeat("_", 9))

	s := report.Summary
	for _, line := range s.Lines {
		if line.AmountKg <= inclusionFloor {
			continue
		}
		fmt.Fprintf(w, "%-22s | %-11s | %9s | %7s | %9s\n",
			line.Name, line.Category, format.Fixed(line.AmountKg, 2), format.Fixed(line.SharePct, 1)+"%", format.Currency(line.Cost))
	}
	fmt.Fprintf(w, "%-22s | %-11s | %9s | %7s | %9s\n",
		"Total", "", format.Fixed(s.TotalDMKg, 2), "100.0%", format.Currency(s.TotalCost))

	fmt.Fprintf(w, "\n%-12s | %12s | %12s | %s\n", "Constraint", "Target", "Supplied", "Status")
	fmt.Fprintf(w, "%-12s | %12s | %12s | %s\n", strings.Repeat("_", 12), strings.Repeat("_", 12), strings.Repeat("_", 12), "______")
	for _, c := range report.Constraints {
		status := "ok"
		if c.Binding {
			status = "binding"
		}
		_, _ = p.Fprintf(w, "%-12s | %2s %6.2f %-4s | %7.2f %-4s | %s\n",
			c.Name, c.Sense, c.Target, c.Unit, c.Achieved, c.Unit, status)
	}
	if binding := optimization.Binding(report.Constraints); len(binding) > 0 {
		fmt.Fprintf(w, "Binding: %s\n", strings.Join(binding, ", "))
	}

	fmt.Fprintf(w, "\nDiet: NEL %s Mcal/kg DM, CP %s, NDF %s, starch %s, fat %s, forage %s\n",
		format.Fixed(s.NELDensity, 2), format.Percent(s.CPPct), format.Percent(s.NDFPct),
		format.Percent(s.StarchPct), format.Percent(s.FatPct), format.Percent(s.ForagePct))
	fmt.Fprintf(w, "Cost: %s per cow per day\n", format.Currency(s.TotalCost))
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(w io.Writer, report *formulation.Report) {
	fmt.Fprintf(w, `"ingredient","category","amount_kg_dm","share_pct","cost"`)
	fmt.Fprintf(w, "\n")
	for _, line := range report.Summary.Lines {
		fmt.Fprintf(w, `"%s","%s","%s","%s","%s"`,
			line.Name, line.Category, format.Fixed(line.AmountKg, 2), format.Fixed(line.SharePct, 2), format.NumericCurrency(line.Cost))
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, `"total","","%s","100.00","%s"`, format.Fixed(report.Summary.TotalDMKg, 2), format.NumericCurrency(report.Summary.TotalCost))
	fmt.Fprintf(w, "\n")
}

// JSONFormat outputs the full report as indented JSON.
func JSONFormat(w io.Writer, report *formulation.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// Failure writes a human-readable explanation of a formulation error. An
// infeasible ration prints the fixed no-solution message followed by the
// constraint classes worth relaxing.
func Failure(w io.Writer, err error) {
	var infeasible *domain.InfeasibleError
	switch {
	case errors.As(err, &infeasible):
		fmt.Fprintln(w, constants.NoFeasibleRationMessage)
		for _, class := range infeasible.Relaxable {
			fmt.Fprintf(w, "  relaxing the %s constraint would restore feasibility\n", class)
		}
	case errors.Is(err, domain.ErrInfeasible):
		fmt.Fprintln(w, constants.NoFeasibleRationMessage)
	default:
		fmt.Fprintf(w, "formulation failed: %v\n", err)
	}
}
