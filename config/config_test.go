package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `solver:
  type: "gonum"
  time_limit_seconds: 30
  mip_gap: 0.005
  conf:
    integrality_tolerance: 0.0001
planning:
  ambient_shelf_life_days: 10
  integer_pallets: true
runlog:
  backend: "sqlite"
  path: "runs.db"
metrics:
  prometheus_enabled: true
  sinks:
    - type: "nop"
logging:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"solver.type", cfg.Solver.Type, "gonum"},
		{"solver.time_limit", cfg.Solver.TimeLimit(), 30 * time.Second},
		{"solver.mip_gap", cfg.Solver.MIPGap, 0.005},
		{"solver.conf", cfg.Solver.Conf["integrality_tolerance"], 0.0001},
		{"planning.ambient", cfg.Planning.AmbientShelfLifeDays, 10},
		{"planning.frozen default", cfg.Planning.FrozenShelfLifeDays, 120},
		{"planning.integer_pallets", cfg.Planning.IntegerPallets, true},
		{"runlog.backend", cfg.RunLog.Backend, "sqlite"},
		{"metrics.port default", cfg.Metrics.PrometheusPort, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.format default", cfg.Logging.Format, "json"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("K_SOLVER__TIME_LIMIT_SECONDS", "5")
	t.Setenv("K_RUNLOG__PATH", "/tmp/freshplan-runs.jsonl")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Solver.Type != "simplex" {
		t.Errorf("default solver %q", cfg.Solver.Type)
	}
	if cfg.Solver.TimeLimit() != 5*time.Second {
		t.Errorf("env time limit %v", cfg.Solver.TimeLimit())
	}
	if cfg.RunLog.Backend != "jsonl" || cfg.RunLog.Path != "/tmp/freshplan-runs.jsonl" {
		t.Errorf("runlog %+v", cfg.RunLog)
	}
	if cfg.Planning.UnitsPerPallet != 320 {
		t.Errorf("default pallet size %v", cfg.Planning.UnitsPerPallet)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "planning:\n  ambient_shelf_life_days: 10\nsolver:\n  mip_gap: 0.05\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("K_PLANNING__AMBIENT_SHELF_LIFE_DAYS", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Planning.AmbientShelfLifeDays != 12 {
		t.Errorf("env did not override file: %d", cfg.Planning.AmbientShelfLifeDays)
	}
	if cfg.Solver.MIPGap != 0.05 {
		t.Errorf("file value lost: %v", cfg.Solver.MIPGap)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"gap.yaml":     "solver:\n  mip_gap: 2\n",
		"backend.yaml": "runlog:\n  backend: \"kafka\"\n",
		"level.yaml":   "logging:\n  level: \"loud\"\n",
		"config.toml":  "",
	}
	for name, data := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
