// Package metrics defines the sink interfaces used to observe planning runs.
// Sinks such as the Prometheus sink in infra/metrics record finished runs,
// model sizes and solver progress, and can be combined with NewMultiSink.
// NewSink returns a MultiSink automatically when multiple sinks are
// configured.
package metrics
