// Package formulation runs the full pipeline from animal description to a
// summarized least-cost ration.
package formulation

import (
	"context"
	"time"

	"github.com/iwvelando/tmr-formulator/internal/diet"
	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
	"github.com/iwvelando/tmr-formulator/pkg/optimization"
	"go.uber.org/zap"
)

// Input is one formulation request.
type Input struct {
	Animal      requirement.Animal `json:"animal"`
	Ingredients []feed.Ingredient  `json:"feeds"`
}

// Report is the outcome of a successful formulation.
type Report struct {
	Animal       requirement.Animal              `json:"animal"`
	Requirements requirement.Set                 `json:"requirements"`
	Solution     *ration.Solution                `json:"solution"`
	Summary      *diet.Summary                   `json:"summary"`
	Constraints  []optimization.ConstraintStatus `json:"constraints"`
	Duration     time.Duration                   `json:"duration"`
}

// Runner ties a requirement policy to a ration optimizer.
type Runner struct {
	logger    *zap.Logger
	policy    requirement.Policy
	optimizer *ration.Optimizer
}

// NewRunner builds a Runner. A nil policy selects the placeholder policy and
// a nil optimizer selects one with default options.
func NewRunner(logger *zap.Logger, policy requirement.Policy, optimizer *ration.Optimizer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = requirement.NewPlaceholder()
	}
	if optimizer == nil {
		optimizer = ration.New(logger, nil, ration.Options{})
	}
	return &Runner{logger: logger, policy: policy, optimizer: optimizer}
}

// Run estimates the requirements for in.Animal, solves for the least-cost
// ration over in.Ingredients and summarizes it.
func (r *Runner) Run(ctx context.Context, in Input) (*Report, error) {
	start := time.Now()
	if len(in.Ingredients) == 0 {
		return nil, domain.InvalidInputf("feed catalog is empty")
	}
	ingredients := append([]feed.Ingredient(nil), in.Ingredients...)

	req, err := r.policy.Estimate(in.Animal)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("requirements estimated",
		zap.String("op", "formulation.Run"),
		zap.Float64("dmiKg", req.DMIKg),
		zap.Float64("nelMcal", req.NELMcal),
		zap.Float64("cpG", req.CrudeProtein),
	)

	solution, err := r.optimizer.Optimize(ctx, ingredients, req)
	if err != nil {
		return nil, err
	}

	summary, err := diet.Summarize(ingredients, solution)
	if err != nil {
		return nil, err
	}

	return &Report{
		Animal:       in.Animal,
		Requirements: req,
		Solution:     solution,
		Summary:      summary,
		Constraints:  ConstraintStatuses(summary, req, r.optimizer.Options().EffectiveForageFraction()),
		Duration:     time.Since(start),
	}, nil
}

// ConstraintStatuses reports how summary sits against each ration
// constraint of req.
func ConstraintStatuses(summary *diet.Summary, req requirement.Set, forageFraction float64) []optimization.ConstraintStatus {
	statuses := []optimization.ConstraintStatus{
		optimization.NewConstraintStatus("dry_matter", string(domain.ConstraintMass), "=", "kg", req.DMIKg, summary.TotalDMKg),
		optimization.NewConstraintStatus("nel_min", string(domain.ConstraintEnergy), ">=", "Mcal", req.NELMcal, summary.TotalNELMcal),
		optimization.NewConstraintStatus("cp_min", string(domain.ConstraintProtein), ">=", "g", req.CrudeProtein, summary.TotalCPG),
		optimization.NewConstraintStatus("ndf_min", string(domain.ConstraintFiber), ">=", "kg", req.NDFMinKg(), summary.TotalNDFKg),
		optimization.NewConstraintStatus("ndf_max", string(domain.ConstraintFiber), "<=", "kg", req.NDFMaxKg(), summary.TotalNDFKg),
		optimization.NewConstraintStatus("starch_max", string(domain.ConstraintStarch), "<=", "kg", req.StarchMaxKg(), summary.TotalStarchKg),
	}
	if forageFraction > 0 {
		statuses = append(statuses, optimization.NewConstraintStatus("forage_min", string(domain.ConstraintForage), ">=", "kg",
			forageFraction*req.DMIKg, summary.TotalForageKg))
	}
	return statuses
}
