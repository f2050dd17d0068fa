package lp

import "errors"

var (
	ErrInfeasible = errors.New("lp: problem is infeasible")
	ErrUnbounded  = errors.New("lp: problem is unbounded")
	ErrTimeout    = errors.New("lp: solve timed out")
	ErrMalformed  = errors.New("lp: malformed problem")
	ErrSolver     = errors.New("lp: solver failure")
)
