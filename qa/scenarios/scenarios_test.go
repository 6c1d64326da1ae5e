package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/core/planning"
	"github.com/kilianp07/freshplan/infra/solver"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/*")
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			in, params, err := sc.Input(planning.DefaultParams())
			require.NoError(t, err)
			e, err := planning.NewEngine(params)
			require.NoError(t, err)
			prob, err := e.Build(in)
			require.NoError(t, err)
			res, err := prob.SolveWith(context.Background(), solver.NewSimplex(solver.Config{}, nil), milp.Options{})
			require.NoError(t, err)
			assert.Empty(t, sc.Expected.Check(res))
		})
	}
}

func TestLoadFormats(t *testing.T) {
	sc, err := Load("testdata/frozen_lane.toml")
	require.NoError(t, err)
	assert.Equal(t, "frozen-lane", sc.Name)
	assert.Equal(t, 5, sc.Params.ThawedShelfLifeDays)
	require.Len(t, sc.Nodes, 2)
	require.NotNil(t, sc.Nodes[0].Manufacturing)
	assert.Equal(t, 1400.0, sc.Nodes[0].Manufacturing.UnitsPerHour)

	sc, err = Load("testdata/store_stock.json")
	require.NoError(t, err)
	require.Len(t, sc.Inventory, 1)
	require.NotNil(t, sc.Expected.MaxShortage)

	_, err = Load("testdata/missing.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "scenario.ini")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestInputConversion(t *testing.T) {
	sc, err := Load("testdata/two_node.yaml")
	require.NoError(t, err)
	in, params, err := sc.Input(planning.DefaultParams())
	require.NoError(t, err)

	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, in.Start)
	assert.Equal(t, model.AddDays(monday, 1), in.End)
	assert.Equal(t, model.AddDays(monday, -1), in.Initial.SnapshotDate)
	assert.Equal(t, 500.0, in.Demand.Total())
	require.Len(t, in.Labor, 2)
	assert.True(t, in.Labor[0].IsFixedDay)
	assert.Equal(t, 12.0, in.Labor[0].FixedHours)
	assert.Equal(t, planning.DefaultParams(), params)

	factory, err := in.Topology.Node("factory")
	require.NoError(t, err)
	assert.True(t, factory.CanManufacture())
	assert.Equal(t, 1.0, factory.Holding(model.Ambient))
}

func TestLaborPatternSkipsWeekendsAndKeepsExplicitDays(t *testing.T) {
	sc := &Scenario{
		Labor:        []LaborDef{{Date: "2025-06-06", Fixed: true, FixedHours: 8, RegularRate: 20}},
		LaborPattern: &LaborPattern{FixedHours: 12, RegularRate: 10},
	}
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	cal, err := sc.laborCalendar(start, model.AddDays(start, 6))
	require.NoError(t, err)
	require.Len(t, cal, 5)
	friday, ok := cal.On(model.AddDays(start, 4))
	require.True(t, ok)
	assert.Equal(t, 8.0, friday.FixedHours)
	_, ok = cal.On(model.AddDays(start, 5))
	assert.False(t, ok)

	sc.LaborPattern.Weekends = true
	sc.LaborPattern.MaxHours = 6
	cal, err = sc.laborCalendar(start, model.AddDays(start, 6))
	require.NoError(t, err)
	sunday, ok := cal.On(model.AddDays(start, 6))
	require.True(t, ok)
	assert.False(t, sunday.IsFixedDay)
	assert.Equal(t, 6.0, sunday.MaxHours)
}

func TestInputRejectsInvalidData(t *testing.T) {
	base := func() *Scenario {
		sc, err := Load("testdata/two_node.yaml")
		require.NoError(t, err)
		return sc
	}
	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"negative demand", func(s *Scenario) { s.Demand[0].Quantity = -1 }},
		{"unknown demand node", func(s *Scenario) { s.Demand[0].Node = "ghost" }},
		{"unknown product", func(s *Scenario) { s.Demand[0].Product = "cake" }},
		{"bad date", func(s *Scenario) { s.Start = "June 2nd" }},
		{"bad slot", func(s *Scenario) {
			s.Trucks = []TruckDef{{ID: "t", Origin: "factory", Destination: "store", Slot: "midnight"}}
		}},
		{"bad weekday", func(s *Scenario) { s.LaborPattern.FixedWeekdays = []string{"someday"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := base()
			tt.mutate(sc)
			_, _, err := sc.Input(planning.DefaultParams())
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}

	sc := base()
	sc.Nodes[0].Storage = "cryo"
	_, _, err := sc.Input(planning.DefaultParams())
	assert.ErrorIs(t, err, model.ErrUnknownStorage)
}

func TestExpectedCheck(t *testing.T) {
	zero := 0.0
	res := &planning.Result{
		Termination: milp.Feasible,
		Solution:    &planning.Solution{Totals: planning.Totals{Demand: 100, Consumed: 80, Shortage: 20}},
	}
	assert.Empty(t, Expected{}.Check(res))
	assert.Len(t, Expected{Status: "optimal", MaxShortage: &zero, MinFillRate: 0.9}.Check(res), 3)
	assert.Empty(t, Expected{Status: "Feasible", MinFillRate: 0.8}.Check(res))
	assert.NotEmpty(t, Expected{MinFillRate: 0.5}.Check(&planning.Result{Termination: milp.Infeasible}))
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: first\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	names := make(chan string, 4)
	stopped := make(chan error, 1)
	go func() {
		stopped <- Watch(ctx, path, func(sc *Scenario, err error) {
			if err == nil {
				names <- sc.Name
			}
		})
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: second\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("name: other\n"), 0o600))

	select {
	case name := <-names:
		assert.Equal(t, "second", name)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after change")
	}
	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchReportsWatcherErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan fsnotify.Event)
	errs := make(chan error, 1)
	got := make(chan error, 1)
	stopped := make(chan error, 1)
	go func() {
		stopped <- watchLoop(ctx, "/tmp/plan.yaml", events, errs, func(sc *Scenario, err error) {
			assert.Nil(t, sc)
			got <- err
		})
	}()

	errs <- fsnotify.ErrEventOverflow
	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrWatch)
		assert.Contains(t, err.Error(), fsnotify.ErrEventOverflow.Error())
	case <-time.After(time.Second):
		t.Fatal("watcher error not reported")
	}
	close(errs)
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
