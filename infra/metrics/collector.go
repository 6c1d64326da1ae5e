package metrics

import (
	"context"

	"github.com/kilianp07/freshplan/core/events"
	coremetrics "github.com/kilianp07/freshplan/core/metrics"
	"github.com/kilianp07/freshplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records solver progress
// and model sizes on sink. It stops when the context is canceled or the bus
// is closed. The returned channel is closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.SubscribeBuffered(64)
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.ProgressEvent:
					if r, ok := sink.(coremetrics.ProgressRecorder); ok {
						_ = r.RecordSolverProgress(coremetrics.SolverProgressEvent{
							RunID:     e.RunID,
							Solver:    e.Solver,
							Nodes:     e.Progress.Nodes,
							Incumbent: e.Progress.Incumbent,
							BestBound: e.Progress.BestBound,
							Gap:       e.Progress.Gap,
							Elapsed:   e.Progress.Elapsed,
						})
					}
				case events.RunStartedEvent:
					if r, ok := sink.(coremetrics.ModelSizeRecorder); ok {
						_ = r.RecordModelSize(coremetrics.ModelSizeEvent{
							RunID:       e.RunID,
							Variables:   e.Variables,
							Integers:    e.Integers,
							Constraints: e.Constraints,
						})
					}
				}
			}
		}
	}()
	return done
}
