package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/freshplan/core/factory"
)

// SolverConfig selects the MILP backend and its limits.
type SolverConfig struct {
	// Type is a registered solver name such as "simplex".
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
	// TimeLimitSeconds bounds a single solve. Zero disables the limit.
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	// MIPGap is the relative optimality gap at which the search stops.
	MIPGap float64 `json:"mip_gap"`
}

// SetDefaults applies the built-in solver with a one minute limit.
func (c *SolverConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "simplex"
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 60
	}
	if c.MIPGap == 0 {
		c.MIPGap = 0.01
	}
}

// Validate checks the limits are usable.
func (c SolverConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.TimeLimitSeconds < 0 {
		return fmt.Errorf("time_limit_seconds must not be negative")
	}
	if c.MIPGap < 0 || c.MIPGap >= 1 {
		return fmt.Errorf("mip_gap must be in [0, 1)")
	}
	return nil
}

// Module returns the registry configuration of the solver.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

// TimeLimit returns the solve limit as a duration.
func (c SolverConfig) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}
