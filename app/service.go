package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/kilianp07/freshplan/app/plugins"
	"github.com/kilianp07/freshplan/config"
	"github.com/kilianp07/freshplan/core/events"
	coremetrics "github.com/kilianp07/freshplan/core/metrics"
	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/planning"
	"github.com/kilianp07/freshplan/core/runlog"
	"github.com/kilianp07/freshplan/infra/logger"
	"github.com/kilianp07/freshplan/infra/metrics"
	"github.com/kilianp07/freshplan/internal/eventbus"
)

// Service runs planning jobs: it builds and solves the model, records the
// run and publishes progress on its event bus.
type Service struct {
	cfg       *config.Config
	solver    milp.Solver
	store     runlog.Store
	sink      coremetrics.Sink
	bus       *eventbus.Bus[events.Event]
	log       logger.Logger
	collector <-chan struct{}
	stop      context.CancelFunc
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithSolver replaces the configured solver.
func WithSolver(s milp.Solver) Option { return func(svc *Service) { svc.solver = s } }

// WithStore replaces the configured run log store.
func WithStore(st runlog.Store) Option { return func(svc *Service) { svc.store = st } }

// WithSink replaces the configured metrics sink.
func WithSink(sink coremetrics.Sink) Option { return func(svc *Service) { svc.sink = sink } }

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(svc *Service) { svc.log = l } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	svc := &Service{cfg: cfg, bus: eventbus.New[events.Event](), now: time.Now}
	for _, o := range opts {
		o(svc)
	}
	if svc.log == nil {
		svc.log = logger.New("service")
	}
	if svc.solver == nil {
		s, err := milp.NewSolver(cfg.Solver.Module())
		if err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
		svc.solver = s
	}
	if svc.store == nil {
		st, err := runlog.New(cfg.RunLog)
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		svc.store = st
	}
	if svc.sink == nil {
		sink, err := buildSink(cfg.Metrics)
		if err != nil {
			_ = svc.store.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		svc.sink = sink
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.stop = cancel
	svc.collector = metrics.StartEventCollector(ctx, svc.bus, svc.sink)
	return svc, nil
}

func buildSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	var sinks []coremetrics.Sink
	if len(cfg.Sinks) > 0 {
		s, err := coremetrics.NewSink(cfg.Sinks)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.PrometheusEnabled {
		s, err := metrics.NewPromSink()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return coremetrics.NewMultiSink(sinks...), nil
	}
}

// Bus exposes the planning event bus.
func (s *Service) Bus() *eventbus.Bus[events.Event] { return s.bus }

// Solver returns the solver used for every run.
func (s *Service) Solver() milp.Solver { return s.solver }

// Run is a completed planning run.
type Run struct {
	ID     string
	Result *planning.Result
	Record runlog.Record
}

// Plan builds and solves one planning problem. The run is recorded even when
// the build or the solve fails. A plan failing verification is returned
// together with the *planning.FormulationError.
func (s *Service) Plan(ctx context.Context, scenario string, in planning.Input, params planning.Params) (*Run, error) {
	run := &Run{ID: uuid.NewString()}
	started := s.now()
	rec := runlog.Record{
		RunID:     run.ID,
		Timestamp: started.UTC(),
		Scenario:  scenario,
		Solver:    s.solver.Name(),
		Start:     in.Start,
		End:       in.End,
	}

	engine, err := planning.NewEngine(params, planning.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	prob, err := engine.Build(in)
	if err != nil {
		rec.Status = "build-error"
		rec.Error = err.Error()
		s.record(ctx, rec, nil)
		return nil, fmt.Errorf("build: %w", err)
	}
	rec.Variables = prob.Model.NumVars()
	rec.Constraints = prob.Model.NumConstraints()
	s.bus.Publish(events.RunStartedEvent{
		RunID:       run.ID,
		Scenario:    scenario,
		Solver:      s.solver.Name(),
		Variables:   rec.Variables,
		Integers:    prob.Model.NumIntegers(),
		Constraints: rec.Constraints,
	})

	opts := milp.Options{
		TimeLimit: s.cfg.Solver.TimeLimit(),
		MIPGap:    s.cfg.Solver.MIPGap,
		Progress: func(p milp.Progress) {
			s.bus.Publish(events.ProgressEvent{RunID: run.ID, Solver: s.solver.Name(), Progress: p})
		},
	}
	res, solveErr := prob.SolveWith(ctx, s.solver, opts)
	elapsed := s.now().Sub(started)
	rec.DurationMS = elapsed.Milliseconds()
	run.Result = res

	var ferr *planning.FormulationError
	switch {
	case solveErr != nil && !errors.As(solveErr, &ferr):
		rec.Status = "error"
		rec.Error = solveErr.Error()
	default:
		fillRecord(&rec, res)
		if ferr != nil {
			rec.Error = ferr.Error()
			for _, v := range ferr.Violations {
				rec.Violations = append(rec.Violations, v.String())
			}
		}
	}
	run.Record = rec
	s.record(ctx, rec, res)

	finished := events.RunFinishedEvent{RunID: run.ID, Duration: elapsed, Err: solveErr}
	if res != nil {
		finished.Status = res.Termination
		finished.Success = res.Success
		finished.Objective = res.Objective
	}
	s.bus.Publish(finished)

	if solveErr != nil {
		s.log.Errorf("run %s (%s): %v", run.ID, scenario, solveErr)
		return run, solveErr
	}
	s.log.Infof("run %s (%s) finished %s in %s", run.ID, scenario, rec.Status, elapsed)
	return run, nil
}

func fillRecord(rec *runlog.Record, res *planning.Result) {
	rec.Status = res.Termination.String()
	rec.Success = res.Success
	rec.Objective = res.Objective
	rec.Gap = res.Gap
	if res.Raw != nil {
		rec.Nodes = res.Raw.Nodes
	}
	sol := res.Solution
	if sol == nil {
		return
	}
	rec.Produced = sol.Totals.Produced
	rec.Demand = sol.Totals.Demand
	rec.Shortage = sol.Totals.Shortage
	rec.Waste = sol.Totals.Waste()
	rec.FillRate = sol.Totals.FillRate()
	rec.Costs = make(map[string]string, len(sol.Costs.Lines)+1)
	for cat, v := range sol.Costs.Lines {
		rec.Costs[string(cat)] = v.StringFixed(2)
	}
	rec.Costs["total"] = sol.Costs.Total.StringFixed(2)
}

// record persists the run and exports it to the metrics sink. Failures are
// logged only so that a broken store never hides a plan.
func (s *Service) record(ctx context.Context, rec runlog.Record, res *planning.Result) {
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("run log append %s: %v", rec.RunID, err)
	}
	ev := coremetrics.PlanRunEvent{
		RunID:      rec.RunID,
		Scenario:   rec.Scenario,
		Solver:     rec.Solver,
		Status:     rec.Status,
		Success:    rec.Success,
		Objective:  rec.Objective,
		Gap:        rec.Gap,
		Nodes:      rec.Nodes,
		Duration:   time.Duration(rec.DurationMS) * time.Millisecond,
		Shortage:   rec.Shortage,
		Waste:      rec.Waste,
		FillRate:   rec.FillRate,
		Violations: len(rec.Violations),
		Time:       rec.Timestamp,
	}
	if res != nil && res.Solution != nil {
		ev.Costs = make(map[string]float64, len(res.Solution.Costs.Lines))
		for cat, v := range res.Solution.Costs.Lines {
			ev.Costs[string(cat)] = v.InexactFloat64()
		}
	}
	if err := s.sink.RecordPlanRun(ev); err != nil {
		s.log.Warnf("metrics sink: %v", err)
	}
}

// Runs lists recorded runs.
func (s *Service) Runs(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	return s.store.Query(ctx, q)
}

// ServeMetrics exposes Prometheus metrics until ctx is canceled. It returns
// immediately when the exporter is disabled.
func (s *Service) ServeMetrics(ctx context.Context) error {
	if !s.cfg.Metrics.PrometheusEnabled {
		return nil
	}
	return metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort, s.log)
}

// Close stops the event collector and releases the run log.
func (s *Service) Close() error {
	s.stop()
	s.bus.Close()
	<-s.collector
	return s.store.Close()
}
