// Package planning builds and solves the sliding-window production and
// distribution model: multi-state inventory balances, shelf-life windows,
// truck timing, labour tiers and the waste versus shortage objective.
package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/logger"
	"github.com/kilianp07/freshplan/core/milp"
)

// Engine builds planning problems. It holds no state between runs, so one
// engine may build several problems concurrently.
type Engine struct {
	params Params
	log    logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used during model construction and solving.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine validates params and returns an Engine.
func NewEngine(p Params, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{params: p, log: nopLogger{}}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Params returns the engine parameters.
func (e *Engine) Params() Params { return e.params }

// Problem is an assembled model ready to be solved.
type Problem struct {
	Model *milp.Model
	Index *Index
	Vars  *Variables
	// Costs holds one expression per cost category; their sum is the objective.
	Costs  map[Category]milp.Expr
	params Params
	log    logger.Logger
}

// Build computes the index sets and emits every constraint block.
func (e *Engine) Build(in Input) (*Problem, error) {
	idx, err := BuildIndex(in, e.params)
	if err != nil {
		return nil, err
	}
	e.log.Debugw("index built", idx.Stats())
	if idx.DroppedDemand > 0 {
		e.log.Warnf("%d demand entries ignored: outside horizon or at nodes without demand", idx.DroppedDemand)
	}

	m := milp.NewModel("freshplan")
	vars, err := newVariables(m, idx)
	if err != nil {
		return nil, err
	}
	b := &builder{m: m, idx: idx, vars: vars, p: e.params, log: e.log, rows: make(map[string]int)}
	for _, gen := range []struct {
		name string
		fn   func() error
	}{
		{"balance", b.addBalance},
		{"trucks", b.addTrucks},
		{"shelf_life", b.addShelfLife},
		{"labor", b.addLabor},
		{"pallet_entry", b.addPalletEntries},
	} {
		if err := gen.fn(); err != nil {
			return nil, fmt.Errorf("build %s: %w", gen.name, err)
		}
	}
	costs := b.addObjective()

	fields := make(map[string]any, len(b.rows)+3)
	for k, v := range b.rows {
		fields[k] = v
	}
	fields["variables"] = m.NumVars()
	fields["integers"] = m.NumIntegers()
	fields["constraints"] = m.NumConstraints()
	e.log.Debugw("model built", fields)

	return &Problem{Model: m, Index: idx, Vars: vars, Costs: costs, params: e.params, log: e.log}, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
