package events

import (
	"time"

	"github.com/kilianp07/freshplan/core/milp"
)

// Event is implemented by every planning event.
type Event interface {
	Run() string
}

// RunStartedEvent is published once the model of a run is built.
type RunStartedEvent struct {
	RunID       string
	Scenario    string
	Solver      string
	Variables   int
	Integers    int
	Constraints int
}

func (e RunStartedEvent) Run() string { return e.RunID }

// ProgressEvent is published for each incumbent improvement.
type ProgressEvent struct {
	RunID    string
	Solver   string
	Progress milp.Progress
}

func (e ProgressEvent) Run() string { return e.RunID }

// RunFinishedEvent is published when a run ends.
type RunFinishedEvent struct {
	RunID     string
	Status    milp.Status
	Success   bool
	Objective float64
	Duration  time.Duration
	Err       error
}

func (e RunFinishedEvent) Run() string { return e.RunID }
