package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/iwvelando/tmr-formulator/internal/diet"
	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/formulation"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
	"github.com/iwvelando/tmr-formulator/pkg/optimization"
)

func sampleReport() *formulation.Report {
	return &formulation.Report{
		Animal: requirement.Animal{BodyWeightKg: 650, MilkYieldKg: 45, DaysInMilk: 75, TargetDMIKg: 31},
		Requirements: requirement.Set{
			DMIKg: 31, NELMcal: 49.6, CrudeProtein: 5270, NDFMinPct: 26, NDFMaxPct: 34, StarchMaxPct: 30,
		},
		Solution: &ration.Solution{
			Status:  ration.StatusOptimal,
			Names:   []string{"corn_silage", "sbm48", "rumen_protected_fat"},
			Amounts: []float64{20, 11, 0},
			Cost:    5.45,
		},
		Summary: &diet.Summary{
			Lines: []diet.Line{
				{Name: "corn_silage", Category: feed.CategoryForage, AmountKg: 20, SharePct: 64.516129, Cost: 1.6},
				{Name: "sbm48", Category: feed.CategoryConcentrate, AmountKg: 11, SharePct: 35.483871, Cost: 3.85},
				{Name: "rumen_protected_fat", Category: feed.CategorySupplement, AmountKg: 0, SharePct: 0, Cost: 0},
			},
			TotalDMKg:  31,
			TotalCost:  5.45,
			NELDensity: 1.575,
			CPPct:      22.5,
			NDFPct:     29.58,
			StarchPct:  19.7,
			FatPct:     2.6,
			ForagePct:  64.52,
		},
		Constraints: []optimization.ConstraintStatus{
			optimization.NewConstraintStatus("dry_matter", "mass", "=", "kg", 31, 31),
			optimization.NewConstraintStatus("nel_min", "energy", ">=", "Mcal", 49.6, 52),
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, sampleReport())
	output := buf.String()

	expected := []string{
		"--- Least-cost ration for 650 kg cow, 45.0 kg milk, 75 DIM, 31.0 kg DMI ---",
		"Ingredient",
		"corn_silage",
		"20.00",
		"64.5%",
		"$1.60",
		"$3.85",
		"Total",
		"31.00",
		"$5.45",
		"dry_matter",
		"binding",
		"nel_min",
		"Binding: dry_matter\n",
		"CP 22.50%",
		"NEL 1.58 Mcal/kg DM",
		"Cost: $5.45 per cow per day",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "rumen_protected_fat") {
		t.Errorf("PrettyFormat should hide zero inclusions:\n%s", output)
	}
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	CsvFormat(&buf, sampleReport())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	want := []string{
		`"ingredient","category","amount_kg_dm","share_pct","cost"`,
		`"corn_silage","forage","20.00","64.52","1.60"`,
		`"sbm48","concentrate","11.00","35.48","3.85"`,
		`"rumen_protected_fat","supplement","0.00","0.00","0.00"`,
		`"total","","31.00","100.00","5.45"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %s, want %s", i, lines[i], want[i])
		}
	}
}

func TestCsvFormatGroupsThousands(t *testing.T) {
	report := sampleReport()
	report.Summary.Lines = report.Summary.Lines[:1]
	report.Summary.Lines[0].Cost = 1234.5
	report.Summary.TotalCost = 1234.5

	var buf bytes.Buffer
	CsvFormat(&buf, report)
	output := buf.String()
	for _, want := range []string{`"corn_silage","forage","20.00","64.52","1,234.50"`, `"total","","31.00","100.00","1,234.50"`} {
		if !strings.Contains(output, want) {
			t.Errorf("CsvFormat output missing %s:\n%s", want, output)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, sampleReport()); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}

	var decoded struct {
		Requirements struct {
			DMIKg float64 `json:"dmiKg"`
		} `json:"requirements"`
		Summary struct {
			TotalCost float64 `json:"totalCost"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Requirements.DMIKg != 31 || decoded.Summary.TotalCost != 5.45 {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}

func TestWrite(t *testing.T) {
	for _, outputFormat := range []string{"pretty", "csv", "json"} {
		var buf bytes.Buffer
		if err := Write(&buf, outputFormat, sampleReport()); err != nil {
			t.Errorf("Write(%s) error = %v", outputFormat, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Write(%s) produced no output", outputFormat)
		}
	}
	if err := Write(&bytes.Buffer{}, "xml", sampleReport()); err == nil {
		t.Error("Write(xml) expected error")
	}
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "infeasible with hints",
			err:      &domain.InfeasibleError{Relaxable: []domain.ConstraintClass{domain.ConstraintEnergy}},
			contains: []string{"no feasible ration found", "relaxing the energy constraint"},
		},
		{
			name:     "wrapped infeasible",
			err:      fmt.Errorf("formulate: %w", domain.ErrInfeasible),
			contains: []string{"no feasible ration found"},
		},
		{
			name:     "other failure",
			err:      errors.New("boom"),
			contains: []string{"formulation failed: boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Failure(&buf, tt.err)
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Failure output missing %q: %s", want, buf.String())
				}
			}
		})
	}
}
