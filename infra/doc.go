// Package infra contains technical adapters such as the simplex solver,
// the zerolog logger and the Prometheus exporter. These packages should
// depend only on the interfaces defined in the core packages.
package infra
