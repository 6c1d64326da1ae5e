package metrics

import "time"

// PlanRunEvent summarises a finished planning run.
type PlanRunEvent struct {
	RunID      string
	Scenario   string
	Solver     string
	Status     string
	Success    bool
	Objective  float64
	Gap        float64
	Nodes      int
	Duration   time.Duration
	Costs      map[string]float64
	Shortage   float64
	Waste      float64
	FillRate   float64
	Violations int
	Time       time.Time
}

// Sink records planning runs for observability purposes.
type Sink interface {
	RecordPlanRun(ev PlanRunEvent) error
}

// SolverProgressEvent is an improvement of the incumbent during a solve.
type SolverProgressEvent struct {
	RunID     string
	Solver    string
	Nodes     int
	Incumbent float64
	BestBound float64
	Gap       float64
	Elapsed   time.Duration
}

// ProgressRecorder is implemented by sinks able to record solver progress.
type ProgressRecorder interface {
	RecordSolverProgress(ev SolverProgressEvent) error
}

// ModelSizeEvent describes a built model.
type ModelSizeEvent struct {
	RunID       string
	Variables   int
	Integers    int
	Constraints int
}

// ModelSizeRecorder records model sizes.
type ModelSizeRecorder interface {
	RecordModelSize(ev ModelSizeEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlanRun(PlanRunEvent) error               { return nil }
func (NopSink) RecordSolverProgress(SolverProgressEvent) error { return nil }
func (NopSink) RecordModelSize(ModelSizeEvent) error           { return nil }
