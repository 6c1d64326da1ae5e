package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/config"
	"github.com/kilianp07/freshplan/core/events"
	coremetrics "github.com/kilianp07/freshplan/core/metrics"
	"github.com/kilianp07/freshplan/core/planning"
	"github.com/kilianp07/freshplan/core/runlog"
	"github.com/kilianp07/freshplan/infra/logger"
	"github.com/kilianp07/freshplan/qa/scenarios"
)

type recordingSink struct {
	mu   sync.Mutex
	runs []coremetrics.PlanRunEvent
}

func (s *recordingSink) RecordPlanRun(ev coremetrics.PlanRunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, ev)
	return nil
}

func newTestService(t *testing.T, sink coremetrics.Sink) *Service {
	t.Helper()
	cfg := &config.Config{RunLog: runlog.Config{Path: filepath.Join(t.TempDir(), "runs.jsonl")}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	svc, err := New(cfg, WithSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestPlanRecordsRun(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink)
	assert.Equal(t, "simplex", svc.Solver().Name())

	sub := svc.Bus().SubscribeBuffered(64)
	sc, err := scenarios.Load("../qa/scenarios/testdata/two_node.yaml")
	require.NoError(t, err)
	in, params, err := sc.Input(planning.DefaultParams())
	require.NoError(t, err)

	run, err := svc.Plan(context.Background(), sc.Name, in, params)
	require.NoError(t, err)
	require.NotNil(t, run.Result)
	assert.True(t, run.Result.Success)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "optimal", run.Record.Status)
	assert.InDelta(t, 1, run.Record.FillRate, 1e-6)
	assert.Equal(t, run.Result.Solution.Costs.Total.StringFixed(2), run.Record.Costs["total"])

	recs, err := svc.Runs(context.Background(), runlog.Query{Scenario: "two-node"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, run.ID, recs[0].RunID)
	assert.Positive(t, recs[0].Variables)

	sink.mu.Lock()
	require.Len(t, sink.runs, 1)
	assert.True(t, sink.runs[0].Success)
	assert.Contains(t, sink.runs[0].Costs, "production")
	sink.mu.Unlock()

	var started, finished bool
	for !finished {
		var ev events.Event
		select {
		case ev = <-sub:
		case <-time.After(time.Second):
			t.Fatal("run finished event not published")
		}
		switch ev := ev.(type) {
		case events.RunStartedEvent:
			started = true
			assert.Equal(t, run.ID, ev.Run())
		case events.RunFinishedEvent:
			finished = true
			assert.True(t, ev.Success)
			assert.NoError(t, ev.Err)
		}
	}
	assert.True(t, started)
}

func TestPlanRecordsBuildFailure(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink)

	_, err := svc.Plan(context.Background(), "broken", planning.Input{}, planning.DefaultParams())
	require.Error(t, err)

	recs, err := svc.Runs(context.Background(), runlog.Query{Status: "build-error"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "broken", recs[0].Scenario)
	assert.NotEmpty(t, recs[0].Error)
	assert.False(t, recs[0].Success)
}

func TestNewRejectsUnknownSolver(t *testing.T) {
	cfg := &config.Config{RunLog: runlog.Config{Path: filepath.Join(t.TempDir(), "runs.jsonl")}}
	cfg.SetDefaults()
	cfg.Solver.Type = "cplex"
	_, err := New(cfg, WithLogger(logger.NopLogger{}))
	assert.Error(t, err)
}
