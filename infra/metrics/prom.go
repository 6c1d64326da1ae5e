package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/freshplan/core/metrics"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	costs     *prometheus.GaugeVec
	shortage  *prometheus.GaugeVec
	waste     *prometheus.GaugeVec
	fillRate  *prometheus.GaugeVec
	gap       *prometheus.GaugeVec
	nodes     *prometheus.CounterVec
	modelSize *prometheus.GaugeVec
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The exporter should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plan_runs_total",
			Help: "Total number of planning runs by solver termination",
		}, []string{"scenario", "solver", "status", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plan_solve_seconds",
			Help:    "Wall time of build and solve",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"scenario", "solver"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plan_objective",
			Help: "Objective value of the last successful run",
		}, []string{"scenario"}),
		costs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plan_cost",
			Help: "Cost breakdown of the last successful run",
		}, []string{"scenario", "category"}),
		shortage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plan_shortage_units",
			Help: "Unserved demand of the last successful run",
		}, []string{"scenario"}),
		waste: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plan_waste_units",
			Help: "Units disposed, left in stock or in transit at the end of the last successful run",
		}, []string{"scenario"}),
		fillRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plan_fill_rate",
			Help: "Share of demand served by the last successful run",
		}, []string{"scenario"}),
		gap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solver_gap",
			Help: "Relative MIP gap at the last incumbent improvement",
		}, []string{"solver"}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solver_nodes_total",
			Help: "Branch and bound nodes explored",
		}, []string{"solver"}),
		modelSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plan_model_size",
			Help: "Size of the last built model",
		}, []string{"kind"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, s.nodes); err != nil {
		return nil, err
	}
	for _, g := range []**prometheus.GaugeVec{&s.objective, &s.costs, &s.shortage, &s.waste, &s.fillRate, &s.gap, &s.modelSize} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// register adds c to reg, returning the collector already registered under
// the same name when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlanRun counts the run and, for successful runs, exports the plan
// indicators.
func (s *PromSink) RecordPlanRun(ev coremetrics.PlanRunEvent) error {
	s.runs.WithLabelValues(ev.Scenario, ev.Solver, ev.Status, strconv.FormatBool(ev.Success)).Inc()
	s.duration.WithLabelValues(ev.Scenario, ev.Solver).Observe(ev.Duration.Seconds())
	s.nodes.WithLabelValues(ev.Solver).Add(float64(ev.Nodes))
	if !ev.Success {
		return nil
	}
	s.objective.WithLabelValues(ev.Scenario).Set(ev.Objective)
	for cat, v := range ev.Costs {
		s.costs.WithLabelValues(ev.Scenario, cat).Set(v)
	}
	s.shortage.WithLabelValues(ev.Scenario).Set(ev.Shortage)
	s.waste.WithLabelValues(ev.Scenario).Set(ev.Waste)
	s.fillRate.WithLabelValues(ev.Scenario).Set(ev.FillRate)
	return nil
}

// RecordSolverProgress exports the gap of the latest incumbent.
func (s *PromSink) RecordSolverProgress(ev coremetrics.SolverProgressEvent) error {
	s.gap.WithLabelValues(ev.Solver).Set(ev.Gap)
	return nil
}

// RecordModelSize exports the size of the last built model.
func (s *PromSink) RecordModelSize(ev coremetrics.ModelSizeEvent) error {
	s.modelSize.WithLabelValues("variables").Set(float64(ev.Variables))
	s.modelSize.WithLabelValues("integers").Set(float64(ev.Integers))
	s.modelSize.WithLabelValues("constraints").Set(float64(ev.Constraints))
	return nil
}
