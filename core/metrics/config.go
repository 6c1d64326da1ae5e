package metrics

import "github.com/kilianp07/freshplan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool                   `json:"prometheus_enabled"`
	PrometheusPort    string                 `json:"prometheus_port"`
	Sinks             []factory.ModuleConfig `json:"sinks"`
}

// SetDefaults applies the default exporter address.
func (c *Config) SetDefaults() {
	if c.PrometheusEnabled && c.PrometheusPort == "" {
		c.PrometheusPort = ":9100"
	}
}
