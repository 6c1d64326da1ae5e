// Package events defines the planning events emitted on the event bus.
//
// Available event types:
//   - RunStartedEvent: model built, solve starting
//   - ProgressEvent: the solver improved its incumbent
//   - RunFinishedEvent: solve finished, with or without a plan
package events
