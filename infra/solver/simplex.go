// Package solver implements milp.Solver on top of gonum's dense simplex.
package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kilianp07/freshplan/core/factory"
	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/infra/logger"
)

// Config tunes the simplex branch and bound solver.
type Config struct {
	// FeasibilityTol bounds row and bound violations of LP solutions.
	FeasibilityTol float64 `json:"feasibility_tolerance"`
	// IntegralityTol is the distance to the nearest integer accepted as integral.
	IntegralityTol float64 `json:"integrality_tolerance"`
	// VerifyTol is the relative tolerance of the final check against the model.
	VerifyTol float64 `json:"verify_tolerance"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.FeasibilityTol <= 0 {
		c.FeasibilityTol = 1e-7
	}
	if c.IntegralityTol <= 0 {
		c.IntegralityTol = 1e-6
	}
	if c.VerifyTol <= 0 {
		c.VerifyTol = 1e-6
	}
}

// Simplex solves MILPs by depth-first branch and bound over LP relaxations.
type Simplex struct {
	cfg Config
	log logger.Logger
}

// NewSimplex returns a solver with the given configuration.
func NewSimplex(cfg Config, log logger.Logger) *Simplex {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Simplex{cfg: cfg, log: log}
}

// Factory builds a Simplex from raw module configuration.
func Factory(log logger.Logger) factory.Factory[milp.Solver] {
	return func(conf map[string]any) (milp.Solver, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSimplex(c, log), nil
	}
}

// Name implements milp.Solver.
func (s *Simplex) Name() string { return "simplex" }

type node struct {
	lo, hi []float64
	bound  float64
	depth  int
	lp     *lpResult
}

// Solve implements milp.Solver.
func (s *Simplex) Solve(ctx context.Context, m *milp.Model, opts milp.Options) (*milp.Result, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	start := time.Now()
	if opts.Threads > 1 {
		s.log.Debugf("simplex runs single-threaded, ignoring %d threads", opts.Threads)
	}
	vars := m.Variables()
	isInt := make([]bool, len(vars))
	lo := make([]float64, len(vars))
	hi := make([]float64, len(vars))
	for i, v := range vars {
		isInt[i] = v.IsInteger()
		lo[i], hi[i] = v.Lower, v.Upper
		if isInt[i] {
			lo[i] = math.Ceil(lo[i] - s.cfg.IntegralityTol)
			hi[i] = math.Floor(hi[i] + s.cfg.IntegralityTol)
		}
	}
	rel := newRelaxation(m, s.cfg.FeasibilityTol)

	root := rel.solve(lo, hi)
	if root.warn != nil {
		s.log.Warnf("root relaxation: %v", root.warn)
	}
	res := &milp.Result{BestBound: math.Inf(-1)}
	finish := func() (*milp.Result, error) {
		res.Elapsed = time.Since(start)
		return res, nil
	}
	switch root.status {
	case lpInfeasible:
		res.Status = milp.Infeasible
		return finish()
	case lpUnbounded:
		res.Status = milp.Unbounded
		return finish()
	case lpNumerical:
		res.Status = milp.NumericalFailure
		return finish()
	}
	res.Nodes = 1
	res.BestBound = root.obj
	if m.NumIntegers() == 0 {
		return s.accept(m, res, root.x, milp.Optimal, start)
	}

	var (
		incumbent  []float64
		incObj     = math.Inf(1)
		prunedMin  = math.Inf(1)
		numerical  int
		limited    bool
		stack      = []node{{lo: lo, hi: hi, bound: root.obj, lp: &root}}
		nodes      int
		deadline   time.Time
		gapReached bool
	)
	if opts.TimeLimit > 0 {
		deadline = start.Add(opts.TimeLimit)
	}
	tolFor := func(obj float64) float64 {
		return math.Max(1e-9, opts.MIPGap*math.Max(1, math.Abs(obj)))
	}
	openBound := func() float64 {
		b := math.Min(incObj, prunedMin)
		for _, n := range stack {
			b = math.Min(b, n.bound)
		}
		return b
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			limited = true
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			limited = true
			break
		}
		if opts.NodeLimit > 0 && nodes >= opts.NodeLimit {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if incumbent != nil && nd.bound >= incObj-tolFor(incObj) {
			prunedMin = math.Min(prunedMin, nd.bound)
			continue
		}
		var lpRes lpResult
		if nd.lp != nil {
			lpRes = *nd.lp
		} else {
			lpRes = rel.solve(nd.lo, nd.hi)
		}
		nodes++
		switch lpRes.status {
		case lpInfeasible:
			continue
		case lpUnbounded, lpNumerical:
			numerical++
			s.log.Debugf("node at depth %d dropped: %s %v", nd.depth, lpRes.status, lpRes.warn)
			continue
		}
		if incumbent != nil && lpRes.obj >= incObj-tolFor(incObj) {
			prunedMin = math.Min(prunedMin, lpRes.obj)
			continue
		}
		j := mostFractional(lpRes.x, isInt, s.cfg.IntegralityTol)
		if j < 0 {
			x := append([]float64(nil), lpRes.x...)
			for i := range x {
				if isInt[i] {
					x[i] = math.Round(x[i])
				}
			}
			obj := m.Objective().Eval(toValues(x))
			if obj < incObj {
				incumbent, incObj = x, obj
				bound := openBound()
				if opts.Progress != nil {
					opts.Progress(milp.Progress{
						Nodes:     nodes,
						Incumbent: incObj,
						BestBound: bound,
						Gap:       relGap(incObj, bound),
						Elapsed:   time.Since(start),
					})
				}
				if opts.MIPGap > 0 && relGap(incObj, bound) <= opts.MIPGap {
					gapReached = true
					break
				}
			}
			continue
		}
		v := lpRes.x[j]
		down := child(nd, lpRes.obj)
		down.hi[j] = math.Floor(v)
		up := child(nd, lpRes.obj)
		up.lo[j] = math.Ceil(v)
		if v-math.Floor(v) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	res.Nodes = nodes
	if incumbent == nil {
		switch {
		case limited:
			res.Status = milp.LimitNoSolution
		case numerical > 0:
			res.Status = milp.NumericalFailure
		default:
			res.Status = milp.Infeasible
		}
		return finish()
	}
	res.BestBound = openBound()
	status := milp.Optimal
	if limited && !gapReached && relGap(incObj, res.BestBound) > opts.MIPGap {
		status = milp.Feasible
	}
	if numerical > 0 {
		s.log.Warnf("%d nodes dropped on numerical trouble, optimality not proven", numerical)
		status = milp.Feasible
	}
	return s.accept(m, res, incumbent, status, start)
}

// accept verifies x against the model and fills the result.
func (s *Simplex) accept(m *milp.Model, res *milp.Result, x []float64, status milp.Status, start time.Time) (*milp.Result, error) {
	values := toValues(x)
	if viol := m.Check(values, s.cfg.VerifyTol); len(viol) > 0 {
		s.log.Errorf("solution rejected: %d violations, first %s", len(viol), viol[0])
		res.Status = milp.NumericalFailure
		res.Elapsed = time.Since(start)
		return res, nil
	}
	res.Status = status
	res.Values = values
	res.Objective = m.Objective().Eval(values)
	if math.IsInf(res.BestBound, -1) || res.BestBound > res.Objective {
		res.BestBound = res.Objective
	}
	res.Gap = relGap(res.Objective, res.BestBound)
	res.Elapsed = time.Since(start)
	return res, nil
}

func child(parent node, bound float64) node {
	return node{
		lo:    append([]float64(nil), parent.lo...),
		hi:    append([]float64(nil), parent.hi...),
		bound: bound,
		depth: parent.depth + 1,
	}
}

// mostFractional returns the integer variable farthest from integrality, or
// -1 when all are integral.
func mostFractional(x []float64, isInt []bool, tol float64) int {
	best, bestDist := -1, tol
	for i, v := range x {
		if !isInt[i] {
			continue
		}
		d := math.Abs(v - math.Round(v))
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func relGap(incumbent, bound float64) float64 {
	if math.IsInf(bound, 0) || math.IsInf(incumbent, 0) {
		return math.Inf(1)
	}
	g := (incumbent - bound) / math.Max(1, math.Abs(incumbent))
	if g < 0 {
		return 0
	}
	return g
}

func toValues(x []float64) map[milp.Var]float64 {
	values := make(map[milp.Var]float64, len(x))
	for i, v := range x {
		values[milp.Var(i)] = v
	}
	return values
}
