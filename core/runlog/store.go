// Package runlog persists one record per planning run so past plans can be
// listed and compared. Stores are selected by name through Register/New.
package runlog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kilianp07/freshplan/core/factory"
)

// Record captures one planning run and its outcome.
type Record struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Scenario  string    `json:"scenario"`
	Solver    string    `json:"solver"`
	// Status is the solver termination, e.g. "optimal" or "infeasible".
	Status      string            `json:"status"`
	Success     bool              `json:"success"`
	Objective   float64           `json:"objective"`
	Gap         float64           `json:"gap"`
	Nodes       int               `json:"nodes"`
	DurationMS  int64             `json:"duration_ms"`
	Variables   int               `json:"variables"`
	Constraints int               `json:"constraints"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Produced    float64           `json:"produced"`
	Demand      float64           `json:"demand"`
	Shortage    float64           `json:"shortage"`
	Waste       float64           `json:"waste"`
	FillRate    float64           `json:"fill_rate"`
	Costs       map[string]string `json:"costs,omitempty"`
	Violations  []string          `json:"violations,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Since    time.Time
	Until    time.Time
	Status   string
	Scenario string
	// Limit keeps the most recent records when positive.
	Limit int
}

// Match reports whether r passes the time, status and scenario filters.
func (q Query) Match(r Record) bool {
	if !q.Since.IsZero() && r.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.Timestamp.After(q.Until) {
		return false
	}
	if q.Status != "" && !strings.EqualFold(q.Status, r.Status) {
		return false
	}
	if q.Scenario != "" && q.Scenario != r.Scenario {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists Records and supports querying. Records are returned in
// timestamp order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	// Backend is "jsonl", "rotating" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB triggers rotation of the rotating backend.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults stores runs as JSON lines next to the working directory.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		switch strings.ToLower(c.Backend) {
		case "sqlite":
			c.Path = "runs.db"
		default:
			c.Path = "runs.jsonl"
		}
	}
}

// Validate checks the backend is known and a path is set.
func (c Config) Validate() error {
	if !slices.Contains(registry.Names(), strings.ToLower(c.Backend)) {
		return fmt.Errorf("unknown run log backend %q", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("run log path is required")
	}
	return nil
}

var registry = factory.NewRegistry[Store]()

// Register adds a store factory identified by name.
func Register(name string, f factory.Factory[Store], aliases ...string) error {
	return registry.Register(name, f, aliases...)
}

// New creates the store configured by cfg.
func New(cfg Config) (Store, error) {
	return registry.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: map[string]any{
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
	}})
}

func init() {
	decode := func(conf map[string]any) (Config, error) {
		var c Config
		err := factory.Decode(conf, &c)
		return c, err
	}
	_ = Register("jsonl", func(conf map[string]any) (Store, error) {
		c, err := decode(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = Register("rotating", func(conf map[string]any) (Store, error) {
		c, err := decode(conf)
		if err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	}, "jsonl-rotating")
	_ = Register("sqlite", func(conf map[string]any) (Store, error) {
		c, err := decode(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}
