package metrics

import "testing"

type recordSink struct {
	count int
}

func (r *recordSink) RecordPlanRun(PlanRunEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordSolverProgress(SolverProgressEvent) error {
	r.count++
	return nil
}

type runsOnly struct{ count int }

func (r *runsOnly) RecordPlanRun(PlanRunEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &runsOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordPlanRun(PlanRunEvent{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordSolverProgress(SolverProgressEvent{}); err != nil {
		t.Fatalf("record progress: %v", err)
	}
	if err := m.RecordModelSize(ModelSizeEvent{}); err != nil {
		t.Fatalf("record size: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("records not forwarded")
	}
	if s3.count != 1 {
		t.Fatalf("expected only the run on a sink without progress support, got %d", s3.count)
	}
}
