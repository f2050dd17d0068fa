// Package lp models general-form linear programs and solves them with the
// gonum simplex implementation.
//
// A Problem is expressed in the natural form used by callers: every variable
// carries its own lower and upper bound and every row is a <=, >= or =
// constraint. Solvers convert to the standard form required by the
// underlying algorithm.
package lp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint row to its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Variable is one continuous decision variable.
type Variable struct {
	Name  string
	Cost  float64
	Lower float64
	// Upper is math.Inf(1) when the variable is unbounded above.
	Upper float64
}

// Bounded reports whether the variable has a finite upper bound.
func (v Variable) Bounded() bool {
	return !math.IsInf(v.Upper, 1)
}

// Constraint is one row: sum(Coefficients[j] * x[j]) Sense RHS.
type Constraint struct {
	Name         string
	Coefficients []float64
	Sense        Sense
	RHS          float64
}

// Problem is a minimization problem over bounded continuous variables.
type Problem struct {
	Name        string
	Variables   []Variable
	Constraints []Constraint
}

// AddVariable appends a variable and returns its column index.
func (p *Problem) AddVariable(v Variable) int {
	p.Variables = append(p.Variables, v)
	return len(p.Variables) - 1
}

// AddConstraint appends a constraint row.
func (p *Problem) AddConstraint(c Constraint) {
	p.Constraints = append(p.Constraints, c)
}

// Clone returns a deep copy of the problem.
func (p *Problem) Clone() *Problem {
	clone := &Problem{
		Name:        p.Name,
		Variables:   append([]Variable(nil), p.Variables...),
		Constraints: make([]Constraint, len(p.Constraints)),
	}
	for i, c := range p.Constraints {
		c.Coefficients = append([]float64(nil), c.Coefficients...)
		clone.Constraints[i] = c
	}
	return clone
}

// Validate checks the problem for structural errors.
func (p *Problem) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: problem cannot be nil", ErrMalformed)
	}
	if len(p.Variables) == 0 {
		return fmt.Errorf("%w: problem has no variables", ErrMalformed)
	}
	for j, v := range p.Variables {
		if !isFinite(v.Cost) {
			return fmt.Errorf("%w: variable %d (%s) has non-finite cost", ErrMalformed, j, v.Name)
		}
		if !isFinite(v.Lower) {
			return fmt.Errorf("%w: variable %d (%s) needs a finite lower bound", ErrMalformed, j, v.Name)
		}
		if math.IsNaN(v.Upper) || math.IsInf(v.Upper, -1) {
			return fmt.Errorf("%w: variable %d (%s) has invalid upper bound", ErrMalformed, j, v.Name)
		}
	}
	for i, c := range p.Constraints {
		if len(c.Coefficients) != len(p.Variables) {
			return fmt.Errorf("%w: constraint %d (%s) has %d coefficients for %d variables",
				ErrMalformed, i, c.Name, len(c.Coefficients), len(p.Variables))
		}
		for _, a := range c.Coefficients {
			if !isFinite(a) {
				return fmt.Errorf("%w: constraint %d (%s) has non-finite coefficient", ErrMalformed, i, c.Name)
			}
		}
		if !isFinite(c.RHS) {
			return fmt.Errorf("%w: constraint %d (%s) has non-finite right-hand side", ErrMalformed, i, c.Name)
		}
		switch c.Sense {
		case LessEqual, GreaterEqual, Equal:
		default:
			return fmt.Errorf("%w: constraint %d (%s) has unknown sense %v", ErrMalformed, i, c.Name, c.Sense)
		}
	}
	return nil
}

// Result is an optimal assignment.
type Result struct {
	Objective float64
	Values    []float64
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
