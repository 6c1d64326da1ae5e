package milp

import (
	"context"
	"time"
)

// Status is the termination condition reported by a solver.
type Status int

const (
	// Optimal means the incumbent is proven optimal within the requested gap.
	Optimal Status = iota
	// Feasible means a solution exists but a limit stopped the search first.
	Feasible
	Infeasible
	Unbounded
	// LimitNoSolution means a limit was hit before any solution was found.
	LimitNoSolution
	NumericalFailure
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case LimitNoSolution:
		return "limit-no-solution"
	case NumericalFailure:
		return "numerical-failure"
	default:
		return "unknown"
	}
}

// HasSolution reports whether the result carries variable values.
func (s Status) HasSolution() bool { return s == Optimal || s == Feasible }

// Progress is reported whenever the solver improves its incumbent.
type Progress struct {
	Nodes     int
	Incumbent float64
	BestBound float64
	Gap       float64
	Elapsed   time.Duration
}

// Options tune a single solve.
type Options struct {
	TimeLimit time.Duration // zero means no limit
	MIPGap    float64       // relative gap at which the search stops
	Threads   int           // hint, solvers may ignore it
	NodeLimit int           // zero means no limit
	Progress  func(Progress)
}

// Result is the outcome of a solve. Values only holds the variables the
// solver actually assigned; callers must not assume every model variable is
// present.
type Result struct {
	Status    Status
	Objective float64
	BestBound float64
	Gap       float64
	Nodes     int
	Elapsed   time.Duration
	Values    map[Var]float64
}

// Value returns the assigned value of v.
func (r *Result) Value(v Var) (float64, bool) {
	if r == nil || r.Values == nil {
		return 0, false
	}
	x, ok := r.Values[v]
	return x, ok
}

// Solver solves a Model.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *Model, opts Options) (*Result, error)
}
