package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/freshplan/core/factory"
	"github.com/kilianp07/freshplan/core/milp"
)

// Result is the outcome of solving a Problem. Success is false when the
// solver returned no usable solution; Termination then carries the raw status
// and Solution is nil.
type Result struct {
	Success     bool
	Termination milp.Status
	Objective   float64
	Gap         float64
	Solution    *Solution
	Raw         *milp.Result
}

// FormulationError reports properties a solved plan failed to satisfy.
type FormulationError struct {
	Violations []Violation
}

func (e *FormulationError) Error() string {
	parts := make([]string, 0, 3)
	for i, v := range e.Violations {
		if i == 3 {
			break
		}
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %d violations: %s", ErrFormulation, len(e.Violations), strings.Join(parts, "; "))
}

func (e *FormulationError) Unwrap() error { return ErrFormulation }

// Solve solves the problem with a registered solver.
func (p *Problem) Solve(ctx context.Context, solverName string, timeLimit time.Duration, gap float64) (*Result, error) {
	s, err := milp.NewSolver(factory.ModuleConfig{Type: solverName})
	if err != nil {
		return nil, err
	}
	return p.SolveWith(ctx, s, milp.Options{TimeLimit: timeLimit, MIPGap: gap})
}

// SolveWith solves the problem with s, extracts the plan and verifies it.
// A plan that breaks a verified property is returned together with a
// *FormulationError.
func (p *Problem) SolveWith(ctx context.Context, s milp.Solver, opts milp.Options) (*Result, error) {
	raw, err := s.Solve(ctx, p.Model, opts)
	if err != nil {
		return nil, fmt.Errorf("solver %s: %w", s.Name(), err)
	}
	res := &Result{Termination: raw.Status, Raw: raw}
	if !raw.Status.HasSolution() {
		p.log.Warnf("solver %s finished %s after %d nodes", s.Name(), raw.Status, raw.Nodes)
		return res, nil
	}
	sol, err := ExtractSolution(p, raw.Values)
	if err != nil {
		return nil, err
	}
	res.Success = true
	res.Objective = raw.Objective
	res.Gap = raw.Gap
	res.Solution = sol
	p.log.Infof("solver %s finished %s: objective %.2f gap %.4f nodes %d in %s",
		s.Name(), raw.Status, raw.Objective, raw.Gap, raw.Nodes, raw.Elapsed)
	if viol := Verify(p, sol); len(viol) > 0 {
		return res, &FormulationError{Violations: viol}
	}
	return res, nil
}
