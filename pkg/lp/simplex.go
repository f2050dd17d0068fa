package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTolerance is the zero tolerance handed to the simplex routine.
const DefaultTolerance = 1e-10

// Solver solves a Problem. Any outcome other than an optimal assignment is
// returned as an error.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Result, error)
}

// Simplex solves problems with gonum's dense simplex implementation.
type Simplex struct {
	Tolerance float64
}

// NewSimplex returns a Simplex solver using tol, or DefaultTolerance when
// tol is not positive.
func NewSimplex(tol float64) *Simplex {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &Simplex{Tolerance: tol}
}

type outcome struct {
	result *Result
	err    error
}

// Solve runs the simplex method on a private copy of p. The gonum routine
// cannot be interrupted, so when ctx expires Solve returns immediately and
// the abandoned solve finishes in the background.
func (s *Simplex) Solve(ctx context.Context, p *Problem) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}

	problem := p.Clone()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrSolver, r)}
			}
		}()
		result, err := s.solve(problem)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func (s *Simplex) tolerance() float64 {
	if s == nil || s.Tolerance <= 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}

// standardForm is minimize c'y subject to Ay = b, y >= 0, where
// x[j] = lower[j] + y[column[j]] for every active variable j.
type standardForm struct {
	c      []float64
	a      *mat.Dense
	b      []float64
	column []int
}

// standardize shifts every variable by its lower bound, turns finite upper
// bounds into rows with their own slack, and gives every inequality a slack
// column. Variables that appear nowhere are fixed at their lower bound.
func (s *Simplex) standardize(p *Problem) (*standardForm, error) {
	n := len(p.Variables)
	column := make([]int, n)
	structural := 0
	for j, v := range p.Variables {
		if v.Upper < v.Lower {
			return nil, fmt.Errorf("%w: variable %s has upper bound %g below lower bound %g",
				ErrInfeasible, v.Name, v.Upper, v.Lower)
		}
		active := v.Bounded()
		for _, c := range p.Constraints {
			if c.Coefficients[j] != 0 {
				active = true
				break
			}
		}
		if !active {
			if v.Cost < 0 {
				return nil, fmt.Errorf("%w: variable %s decreases cost without limit", ErrUnbounded, v.Name)
			}
			column[j] = -1
			continue
		}
		column[j] = structural
		structural++
	}

	type row struct {
		coef  map[int]float64
		slack float64
		rhs   float64
	}
	var rows []row
	slacks := 0

	for _, c := range p.Constraints {
		r := row{coef: make(map[int]float64), rhs: c.RHS}
		for j, a := range c.Coefficients {
			if a == 0 {
				continue
			}
			r.rhs -= a * p.Variables[j].Lower
			if column[j] >= 0 {
				r.coef[column[j]] = a
			}
		}
		switch c.Sense {
		case LessEqual:
			r.slack = 1
		case GreaterEqual:
			r.slack = -1
		case Equal:
			if len(r.coef) == 0 {
				if math.Abs(r.rhs) > s.tolerance()*(1+math.Abs(c.RHS)) {
					return nil, fmt.Errorf("%w: constraint %s cannot be met", ErrInfeasible, c.Name)
				}
				continue
			}
		}
		if r.slack != 0 {
			slacks++
		}
		rows = append(rows, r)
	}
	for j, v := range p.Variables {
		if column[j] < 0 || !v.Bounded() {
			continue
		}
		rows = append(rows, row{coef: map[int]float64{column[j]: 1}, slack: 1, rhs: v.Upper - v.Lower})
		slacks++
	}

	if len(rows) == 0 {
		return &standardForm{column: column}, nil
	}
	cols := structural + slacks
	if len(rows) > cols {
		return nil, fmt.Errorf("%w: %d rows exceed %d columns", ErrMalformed, len(rows), cols)
	}

	c := make([]float64, cols)
	for j, v := range p.Variables {
		if column[j] >= 0 {
			c[column[j]] = v.Cost
		}
	}
	a := mat.NewDense(len(rows), cols, nil)
	b := make([]float64, len(rows))
	next := structural
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for col, v := range r.coef {
			a.Set(i, col, sign*v)
		}
		if r.slack != 0 {
			a.Set(i, next, sign*r.slack)
			next++
		}
		b[i] = sign * r.rhs
	}

	return &standardForm{c: c, a: a, b: b, column: column}, nil
}

func (s *Simplex) solve(p *Problem) (*Result, error) {
	form, err := s.standardize(p)
	if err != nil {
		return nil, err
	}

	var y []float64
	if form.a != nil {
		_, y, err = gonumlp.Simplex(form.c, form.a, form.b, s.tolerance(), nil)
		switch {
		case err == nil:
		case errors.Is(err, gonumlp.ErrInfeasible):
			return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
		case errors.Is(err, gonumlp.ErrUnbounded):
			return nil, fmt.Errorf("%w: %v", ErrUnbounded, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrSolver, err)
		}
	}

	result := &Result{Values: make([]float64, len(p.Variables))}
	for j, v := range p.Variables {
		value := v.Lower
		if col := form.column[j]; col >= 0 {
			value += y[col]
		}
		// simplex output can drift past a bound by rounding error
		value = math.Max(value, v.Lower)
		value = math.Min(value, v.Upper)
		result.Values[j] = value
		result.Objective += v.Cost * value
	}
	return result, nil
}
