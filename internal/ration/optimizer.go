// Package ration formulates and solves the least-cost ration linear program.
package ration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
	"github.com/iwvelando/tmr-formulator/pkg/lp"
	"go.uber.org/zap"
)

// Status describes the outcome of a solve. Only optimal solutions are ever
// returned; every other outcome is an error.
type Status string

const StatusOptimal Status = "optimal"

// Solution holds one inclusion amount, in kg DM per day, per ingredient in
// the order the ingredients were supplied.
type Solution struct {
	Status    Status        `json:"status"`
	Names     []string      `json:"names"`
	Amounts   []float64     `json:"amounts"`
	Cost      float64       `json:"cost"`
	SolveTime time.Duration `json:"solveTime"`
}

// Feasible reports whether the solution satisfies every ration constraint.
func (s *Solution) Feasible() bool {
	return s != nil && s.Status == StatusOptimal
}

// Amount returns the inclusion of the named ingredient.
func (s *Solution) Amount(name string) (float64, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Amounts[i], true
		}
	}
	return 0, false
}

// Options tune the optimizer.
type Options struct {
	// ForageMinFraction is the share of DMI that must come from forage.
	// Zero selects DefaultForageMinFraction and NoForageFloor drops the
	// floor entirely. Any other negative value is invalid.
	ForageMinFraction float64
	// Timeout bounds one Optimize call, including the diagnosis re-solves
	// run on infeasibility. Zero means no limit beyond the context.
	Timeout time.Duration
	// SkipDiagnosis disables the relaxation search run on infeasibility.
	SkipDiagnosis bool
}

// NoForageFloor is the ForageMinFraction value that removes the forage
// floor.
const NoForageFloor = -1.0

// ParseForageFraction converts a user-supplied forage fraction into the
// option value: zero disables the floor, values in (0, 1] are kept and
// anything else is InvalidInput.
func ParseForageFraction(value float64) (float64, error) {
	switch {
	case math.IsNaN(value) || value < 0 || value > 1:
		return 0, domain.InvalidInputf("forage minimum fraction must be between 0 and 1, got %g", value)
	case value == 0:
		return NoForageFloor, nil
	default:
		return value, nil
	}
}

// EffectiveForageFraction returns the forage floor these options impose.
func (o Options) EffectiveForageFraction() float64 {
	switch {
	case o.ForageMinFraction < 0:
		return 0
	case o.ForageMinFraction == 0:
		return DefaultForageMinFraction
	default:
		return o.ForageMinFraction
	}
}

// Optimizer builds and solves ration problems.
type Optimizer struct {
	logger *zap.Logger
	solver lp.Solver
	opts   Options
}

// New constructs an Optimizer. A nil solver selects the gonum simplex.
func New(logger *zap.Logger, solver lp.Solver, opts Options) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if solver == nil {
		solver = lp.NewSimplex(lp.DefaultTolerance)
	}
	return &Optimizer{logger: logger, solver: solver, opts: opts}
}

// Options returns the options the optimizer was built with.
func (o *Optimizer) Options() Options {
	return o.opts
}

// Optimize returns the least-cost ration meeting req. The ingredients are
// copied before the problem is built, so callers may keep editing their
// catalog while the solve runs.
func (o *Optimizer) Optimize(ctx context.Context, ingredients []feed.Ingredient, req requirement.Set) (*Solution, error) {
	snapshot := append([]feed.Ingredient(nil), ingredients...)
	if err := feed.ValidateAll(snapshot); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f := o.opts.ForageMinFraction; math.IsNaN(f) || f > 1 || (f < 0 && f != NoForageFloor) {
		return nil, domain.InvalidInputf("forage minimum fraction must be between 0 and 1, got %g", f)
	}

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	problem := buildProblem(snapshot, req, o.opts.EffectiveForageFraction())
	result, err := o.solve(ctx, problem)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			infeasible := &domain.InfeasibleError{}
			if !o.opts.SkipDiagnosis {
				infeasible.Relaxable = o.Diagnose(ctx, snapshot, req)
			}
			o.logger.Warn("no feasible ration",
				zap.String("op", "ration.Optimize"),
				zap.Int("ingredients", len(snapshot)),
				zap.Strings("relaxable", classNames(infeasible.Relaxable)),
				zap.Duration("duration", elapsed),
			)
			return nil, infeasible
		}
		return nil, translate(err)
	}
	if len(result.Values) != len(snapshot) {
		return nil, fmt.Errorf("solver returned %d values for %d ingredients", len(result.Values), len(snapshot))
	}

	solution := &Solution{
		Status:    StatusOptimal,
		Names:     make([]string, len(snapshot)),
		Amounts:   make([]float64, len(snapshot)),
		SolveTime: elapsed,
	}
	for i, ingredient := range snapshot {
		solution.Names[i] = ingredient.Name
		solution.Amounts[i] = result.Values[i]
		solution.Cost += result.Values[i] * ingredient.PricePerKgDM
	}

	o.logger.Info("ration optimized",
		zap.String("op", "ration.Optimize"),
		zap.Int("ingredients", len(snapshot)),
		zap.Float64("dmiKg", req.DMIKg),
		zap.Float64("cost", solution.Cost),
		zap.Duration("duration", elapsed),
	)
	return solution, nil
}

// Diagnose re-solves the problem once per constraint class with that class
// removed and returns the classes whose removal alone restores feasibility.
// Solver failures other than infeasibility end the search early. When
// called from Optimize the re-solves share its deadline.
func (o *Optimizer) Diagnose(ctx context.Context, ingredients []feed.Ingredient, req requirement.Set) []domain.ConstraintClass {
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	var relaxable []domain.ConstraintClass
	for _, class := range domain.ConstraintClasses {
		_, err := o.solve(ctx, buildProblem(ingredients, req, o.opts.EffectiveForageFraction(), class))
		if err == nil {
			relaxable = append(relaxable, class)
			continue
		}
		if !errors.Is(err, lp.ErrInfeasible) {
			o.logger.Debug("diagnosis stopped",
				zap.String("op", "ration.Diagnose"),
				zap.String("class", string(class)),
				zap.Error(err),
			)
			break
		}
	}
	return relaxable
}

func (o *Optimizer) solve(ctx context.Context, problem *lp.Problem) (*lp.Result, error) {
	return o.solver.Solve(ctx, problem)
}

func translate(err error) error {
	switch {
	case errors.Is(err, lp.ErrUnbounded):
		return fmt.Errorf("%w: %w", domain.ErrUnbounded, err)
	case errors.Is(err, lp.ErrTimeout):
		return fmt.Errorf("%w: %w", domain.ErrSolverTimeout, err)
	case errors.Is(err, lp.ErrMalformed):
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	default:
		return fmt.Errorf("solve ration: %w", err)
	}
}

func classNames(classes []domain.ConstraintClass) []string {
	names := make([]string, len(classes))
	for i, class := range classes {
		names[i] = string(class)
	}
	return names
}
