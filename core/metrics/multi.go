package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlanRun forwards the run to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPlanRun(ev PlanRunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlanRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSolverProgress forwards progress when supported by the sink.
func (m *MultiSink) RecordSolverProgress(ev SolverProgressEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ProgressRecorder); ok {
			if err := r.RecordSolverProgress(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordModelSize forwards model sizes when supported by the sink.
func (m *MultiSink) RecordModelSize(ev ModelSizeEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ModelSizeRecorder); ok {
			if err := r.RecordModelSize(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
