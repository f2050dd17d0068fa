// Package domain holds the error taxonomy shared by every layer of the
// formulation pipeline.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced to callers of the formulation API.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInfeasible        = errors.New("no feasible ration found")
	ErrUnbounded         = errors.New("ration problem is unbounded")
	ErrSolverTimeout     = errors.New("solver exceeded time budget")
	ErrDivisionUndefined = errors.New("diet has zero dry matter")
)

// ConstraintClass names one family of ration constraints.
type ConstraintClass string

const (
	ConstraintMass    ConstraintClass = "mass"
	ConstraintEnergy  ConstraintClass = "energy"
	ConstraintProtein ConstraintClass = "protein"
	ConstraintFiber   ConstraintClass = "fiber"
	ConstraintStarch  ConstraintClass = "starch"
	ConstraintForage  ConstraintClass = "forage"
)

// ConstraintClasses lists every class in reporting order.
var ConstraintClasses = []ConstraintClass{
	ConstraintMass,
	ConstraintEnergy,
	ConstraintProtein,
	ConstraintFiber,
	ConstraintStarch,
	ConstraintForage,
}

// InfeasibleError reports an infeasible ration. Relaxable lists the
// constraint classes whose removal alone makes the problem feasible; it is
// empty when no single class is responsible.
type InfeasibleError struct {
	Relaxable []ConstraintClass
}

func (e *InfeasibleError) Error() string {
	if len(e.Relaxable) == 0 {
		return ErrInfeasible.Error()
	}
	names := make([]string, len(e.Relaxable))
	for i, class := range e.Relaxable {
		names[i] = string(class)
	}
	return fmt.Sprintf("%s (relaxing any of %s would restore feasibility)",
		ErrInfeasible.Error(), strings.Join(names, ", "))
}

// Is lets errors.Is match ErrInfeasible.
func (e *InfeasibleError) Is(target error) bool {
	return target == ErrInfeasible
}

// InvalidInputf wraps ErrInvalidInput with a formatted message.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
