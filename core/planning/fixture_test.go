package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/core/network"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func date(d int) time.Time { return model.AddDays(day0, d) }

func fixedDays(n int) model.LaborCalendar {
	cal := make(model.LaborCalendar, 0, n)
	for d := 0; d < n; d++ {
		cal = append(cal, model.LaborDay{Date: date(d), IsFixedDay: true, FixedHours: 12, RegularRate: 10})
	}
	return cal
}

type fixture struct {
	nodes   []model.Node
	routes  []model.Route
	trucks  []model.TruckDeparture
	demand  model.Demand
	initial map[model.InventoryKey]float64
	labor   model.LaborCalendar
	days    int
}

// twoNode is a factory supplying a store over a single ambient route.
func twoNode(transit float64, truckScheduled bool) *fixture {
	holding := map[model.StorageState]float64{model.Ambient: 1}
	return &fixture{
		nodes: []model.Node{
			{ID: "factory", Storage: model.AmbientStorage{}, Manufacturing: &model.Manufacturing{UnitsPerHour: 1400}, RequiresTruckSchedule: truckScheduled, HoldingCost: holding},
			{ID: "store", Storage: model.AmbientStorage{}, HasDemand: true, HoldingCost: holding},
		},
		routes:  []model.Route{{Origin: "factory", Destination: "store", TransitDays: transit}},
		demand:  model.Demand{},
		initial: map[model.InventoryKey]float64{},
		days:    2,
	}
}

func (f *fixture) input(t *testing.T) Input {
	t.Helper()
	topo, err := network.New(f.nodes, f.routes)
	require.NoError(t, err)
	labor := f.labor
	if labor == nil {
		labor = fixedDays(f.days)
	}
	return Input{
		Topology: topo,
		Products: []model.Product{{ID: "p"}},
		Demand:   f.demand,
		Initial:  model.InitialInventory{SnapshotDate: date(-1), Quantities: f.initial},
		Labor:    labor,
		Trucks:   f.trucks,
		Costs:    model.CostStructure{ProductionCostPerUnit: 1, WasteMultiplier: 1.5, ShortagePenaltyPerUnit: 100},
		Start:    date(0),
		End:      date(f.days - 1),
	}
}

func (f *fixture) index(t *testing.T, p Params) *Index {
	t.Helper()
	idx, err := BuildIndex(f.input(t), p)
	require.NoError(t, err)
	return idx
}
