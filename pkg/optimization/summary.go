// Package optimization provides shared data structures for optimization results.
package optimization

import (
	"math"

	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/mathutil"
)

// BindingTolerance is the slack below which a constraint counts as binding.
const BindingTolerance = constants.ConstraintTolerance

// ConstraintStatus captures how a solved ration sits against one constraint.
type ConstraintStatus struct {
	Name     string  `json:"name"`
	Class    string  `json:"class"`
	Sense    string  `json:"sense"`
	Unit     string  `json:"unit"`
	Target   float64 `json:"target"`
	Achieved float64 `json:"achieved"`
	Slack    float64 `json:"slack"`
	Binding  bool    `json:"binding"`
}

// NewConstraintStatus fills in Slack and Binding for a constraint. Slack is
// the distance to the limit in the feasible direction and is never negative
// for a satisfied constraint; equality rows report the absolute deviation.
func NewConstraintStatus(name, class, sense, unit string, target, achieved float64) ConstraintStatus {
	var slack float64
	switch sense {
	case ">=":
		slack = achieved - target
	case "<=":
		slack = target - achieved
	default:
		slack = math.Abs(achieved - target)
	}
	return ConstraintStatus{
		Name:     name,
		Class:    class,
		Sense:    sense,
		Unit:     unit,
		Target:   target,
		Achieved: achieved,
		Slack:    slack,
		Binding:  mathutil.WithinRelative(achieved, target, BindingTolerance),
	}
}

// Binding returns the names of the binding constraints in statuses.
func Binding(statuses []ConstraintStatus) []string {
	var names []string
	for _, s := range statuses {
		if s.Binding {
			names = append(names, s.Name)
		}
	}
	return names
}
