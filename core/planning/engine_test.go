package planning

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/infra/solver"
)

func solveFixture(t *testing.T, f *fixture, p Params) *Result {
	t.Helper()
	e, err := NewEngine(p)
	require.NoError(t, err)
	prob, err := e.Build(f.input(t))
	require.NoError(t, err)
	res, err := prob.SolveWith(context.Background(), solver.NewSimplex(solver.Config{}, nil), milp.Options{TimeLimit: 10 * time.Second})
	require.NoError(t, err)
	require.True(t, res.Success, "status %s", res.Termination)
	return res
}

func TestNewEngineValidatesParams(t *testing.T) {
	_, err := NewEngine(Params{})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestInitialInventoryIsCountedOnce(t *testing.T) {
	f := twoNode(0, false)
	f.initial[model.InventoryKey{Node: "factory", Product: "p", State: model.Ambient}] = 1280
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(0)}] = 0
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(1)}] = 2000

	res := solveFixture(t, f, DefaultParams())
	sol := res.Solution
	assert.Equal(t, milp.Optimal, res.Termination)
	assert.InDelta(t, 1280, sol.TotalInventoryOn(date(0)), 1e-6)
	assert.InDelta(t, 720, sol.Totals.Produced, 1e-6)
	assert.InDelta(t, 1, sol.Totals.FillRate(), 1e-9)
	assert.Empty(t, sol.Disposals)
	assert.Empty(t, sol.Shortages)
	require.Len(t, sol.Production, 1)
	assert.Equal(t, date(1), sol.Production[0].Date)

	assert.True(t, sol.Costs.Line(CostProduction).Equal(decimal.NewFromInt(720)))
	assert.True(t, sol.Costs.Line(CostLabor).Equal(decimal.NewFromInt(240)))
	assert.True(t, sol.Costs.Line(CostHolding).Equal(decimal.NewFromInt(4)))
	assert.True(t, sol.Costs.Total.Equal(decimal.NewFromInt(964)), sol.Costs.Total.String())
	assert.InDelta(t, 964, res.Objective, 1e-6)
}

func TestMorningTruckLoadsPreviousDayStock(t *testing.T) {
	morning := func(initial float64) *fixture {
		f := twoNode(1, true)
		f.trucks = []model.TruckDeparture{{ID: "t1", Origin: "factory", Destination: "store", Slot: model.Morning}}
		f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(1)}] = 500
		if initial > 0 {
			f.initial[model.InventoryKey{Node: "factory", Product: "p", State: model.Ambient}] = initial
		}
		return f
	}

	sol := solveFixture(t, morning(500), DefaultParams()).Solution
	assert.InDelta(t, 0, sol.Totals.Shortage, 1e-6)
	require.Len(t, sol.TruckLoads, 1)
	assert.InDelta(t, 500, sol.TruckLoads[0].Quantity, 1e-6)
	assert.Equal(t, model.Morning, sol.TruckLoads[0].Slot)
	assert.Equal(t, date(1), sol.TruckLoads[0].Delivery)

	// same-day production misses the morning truck
	sol = solveFixture(t, morning(0), DefaultParams()).Solution
	assert.InDelta(t, 500, sol.Totals.Shortage, 1e-6)
	assert.InDelta(t, 0, sol.Totals.Produced, 1e-6)
	assert.Empty(t, sol.TruckLoads)
}

func TestAfternoonTruckTakesSameDayProduction(t *testing.T) {
	afternoon := func(capacity float64) *fixture {
		f := twoNode(1, true)
		f.trucks = []model.TruckDeparture{{ID: "t1", Origin: "factory", Destination: "store", Slot: model.Afternoon, CapacityUnits: capacity}}
		f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(1)}] = 500
		return f
	}

	sol := solveFixture(t, afternoon(0), DefaultParams()).Solution
	assert.InDelta(t, 0, sol.Totals.Shortage, 1e-6)
	assert.InDelta(t, 500, sol.Totals.Produced, 1e-6)
	require.Len(t, sol.TruckLoads, 1)
	assert.Equal(t, model.Afternoon, sol.TruckLoads[0].Slot)

	sol = solveFixture(t, afternoon(300), DefaultParams()).Solution
	assert.InDelta(t, 200, sol.Totals.Shortage, 1e-6)
	assert.InDelta(t, 300, sol.TruckLoads[0].Quantity, 1e-6)
}

func TestExpiredStockIsDisposed(t *testing.T) {
	f := &fixture{
		nodes:   []model.Node{{ID: "store", Storage: model.AmbientStorage{}, HoldingCost: map[model.StorageState]float64{model.Ambient: 1}}},
		demand:  model.Demand{},
		initial: map[model.InventoryKey]float64{{Node: "store", Product: "p", State: model.Ambient}: 320},
		days:    2,
	}
	p := DefaultParams()
	p.AmbientShelfLifeDays = 1

	sol := solveFixture(t, f, p).Solution
	require.Len(t, sol.Disposals, 1)
	assert.Equal(t, date(0), sol.Disposals[0].Date)
	assert.InDelta(t, 320, sol.Disposals[0].Quantity, 1e-6)
	assert.InDelta(t, 320, sol.Totals.Waste(), 1e-6)
	assert.True(t, sol.Costs.Line(CostWaste).Equal(decimal.NewFromInt(480)))
}

func TestVerifyReportsBrokenPlans(t *testing.T) {
	f := twoNode(0, false)
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(1)}] = 100

	e, err := NewEngine(DefaultParams())
	require.NoError(t, err)
	prob, err := e.Build(f.input(t))
	require.NoError(t, err)
	res, err := prob.SolveWith(context.Background(), solver.NewSimplex(solver.Config{}, nil), milp.Options{})
	require.NoError(t, err)
	require.Empty(t, Verify(prob, res.Solution))

	sol := *res.Solution
	sol.Shortages = append(sol.Shortages, Shortage{Node: "store", Product: "p", Date: date(1), Quantity: 5})
	sol.Disposals = append(sol.Disposals, Disposal{Node: "store", Product: "p", State: model.Ambient, Date: date(0), Quantity: 1})
	props := make(map[string]bool)
	for _, v := range Verify(prob, &sol) {
		props[v.Property] = true
	}
	assert.True(t, props["demand"])
	assert.True(t, props["disposal_timing"])

	ferr := &FormulationError{Violations: []Violation{{Property: "demand", Detail: "x"}}}
	assert.ErrorIs(t, ferr, ErrFormulation)
}

func TestSolveUnknownSolver(t *testing.T) {
	f := twoNode(0, false)
	e, err := NewEngine(DefaultParams())
	require.NoError(t, err)
	prob, err := e.Build(f.input(t))
	require.NoError(t, err)
	_, err = prob.Solve(context.Background(), "nope", time.Second, 0)
	assert.ErrorIs(t, err, milp.ErrUnknownSolver)
}

func TestFourWeekChainServesReachableDemand(t *testing.T) {
	holding := map[model.StorageState]float64{model.Ambient: 1}
	f := &fixture{
		nodes: []model.Node{
			{ID: "factory", Storage: model.AmbientStorage{}, Manufacturing: &model.Manufacturing{UnitsPerHour: 1400}, HoldingCost: holding},
			{ID: "hub", Storage: model.AmbientStorage{}, HoldingCost: holding},
			{ID: "spoke", Storage: model.AmbientStorage{}, HasDemand: true, HoldingCost: holding},
		},
		routes: []model.Route{
			{Origin: "factory", Destination: "hub", TransitDays: 1},
			{Origin: "hub", Destination: "spoke", TransitDays: 2},
		},
		demand:  model.Demand{},
		initial: map[model.InventoryKey]float64{},
		days:    28,
	}
	for d := 0; d < f.days; d++ {
		f.demand[model.DemandKey{Node: "spoke", Product: "p", Date: date(d)}] = 1000
	}

	res := solveFixture(t, f, DefaultParams())
	sol := res.Solution
	assert.InDelta(t, 0, sol.Totals.Disposed, 1e-6)
	assert.Empty(t, sol.Disposals)

	// stock needs three days to reach the spoke
	for _, s := range sol.Shortages {
		assert.True(t, s.Date.Before(date(3)), "shortage on %s", s.Date)
	}
	assert.InDelta(t, 3000, sol.Totals.Shortage, 1e-6)
	assert.InDelta(t, 25000, sol.Totals.Consumed, 1e-6)

	demand := sol.Totals.Demand
	assert.Equal(t, 28000.0, demand)
	assert.GreaterOrEqual(t, sol.Totals.Produced, 0.8*demand)
	assert.LessOrEqual(t, sol.Totals.Produced, 1.2*demand)
}

func TestShelfLifeWindowBlocksStaleStock(t *testing.T) {
	f := &fixture{
		nodes:   []model.Node{{ID: "store", Storage: model.AmbientStorage{}, HasDemand: true}},
		demand:  model.Demand{},
		initial: map[model.InventoryKey]float64{{Node: "store", Product: "p", State: model.Ambient}: 500},
		days:    4,
	}
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(0)}] = 100
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(3)}] = 300
	p := DefaultParams()
	p.AmbientShelfLifeDays = 2

	sol := solveFixture(t, f, p).Solution
	require.Len(t, sol.Consumption, 1)
	assert.Equal(t, date(0), sol.Consumption[0].Date)
	assert.InDelta(t, 100, sol.Consumption[0].Quantity, 1e-6)
	require.Len(t, sol.Shortages, 1)
	assert.Equal(t, date(3), sol.Shortages[0].Date)
	assert.InDelta(t, 300, sol.Shortages[0].Quantity, 1e-6)
	assert.InDelta(t, 400, sol.Totals.Waste(), 1e-6)
}

func TestOvertimeIsPaidAboveFixedHours(t *testing.T) {
	overtime := func(units float64) *fixture {
		f := twoNode(0, false)
		f.labor = model.LaborCalendar{
			{Date: date(0), IsFixedDay: true, FixedHours: 12, MaxOvertimeHours: 2, RegularRate: 10, OvertimeRate: 15},
			{Date: date(1), IsFixedDay: true, FixedHours: 12, RegularRate: 10},
		}
		f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(0)}] = units
		return f
	}

	sol := solveFixture(t, overtime(13*1400), DefaultParams()).Solution
	assert.InDelta(t, 0, sol.Totals.Shortage, 1e-6)
	require.Len(t, sol.Labor, 1)
	assert.InDelta(t, 13, sol.Labor[0].Hours, 1e-6)
	assert.InDelta(t, 1, sol.Labor[0].OvertimeHours, 1e-6)
	assert.True(t, sol.Costs.Line(CostLabor).Equal(decimal.NewFromInt(255)), sol.Costs.Line(CostLabor).String())

	// hours stop at fixed plus overtime, the rest is short
	sol = solveFixture(t, overtime(15*1400), DefaultParams()).Solution
	require.Len(t, sol.Labor, 1)
	assert.InDelta(t, 14, sol.Labor[0].Hours, 1e-6)
	assert.InDelta(t, 2, sol.Labor[0].OvertimeHours, 1e-6)
	assert.InDelta(t, 1400, sol.Totals.Shortage, 1e-6)
}

func TestFrozenRouteThawsOnArrival(t *testing.T) {
	f := &fixture{
		nodes: []model.Node{
			{ID: "factory", Storage: model.AmbientStorage{}, Manufacturing: &model.Manufacturing{UnitsPerHour: 1400}},
			{ID: "buffer", Storage: model.FrozenStorage{}},
			{ID: "store", Storage: model.AmbientStorage{}, HasDemand: true},
		},
		routes: []model.Route{
			{Origin: "factory", Destination: "buffer", TransitDays: 1, Mode: model.FrozenTransport},
			{Origin: "buffer", Destination: "store", TransitDays: 1, Mode: model.FrozenTransport},
		},
		demand:  model.Demand{},
		initial: map[model.InventoryKey]float64{},
		days:    4,
	}
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(3)}] = 100
	p := DefaultParams()
	p.ThawedShelfLifeDays = 1

	sol := solveFixture(t, f, p).Solution
	assert.InDelta(t, 0, sol.Totals.Shortage, 1e-6)
	require.Len(t, sol.Consumption, 1)
	assert.Equal(t, model.Thawed, sol.Consumption[0].State)

	// a one day thawed life only admits stock thawed on the demand day
	var delivered float64
	for _, s := range sol.Shipments {
		if s.Origin != "buffer" {
			continue
		}
		assert.Equal(t, model.Frozen, s.State)
		assert.Equal(t, model.Thawed, s.Arrival)
		assert.Equal(t, date(3), s.Delivery)
		delivered += s.Quantity
	}
	assert.InDelta(t, 100, delivered, 1e-6)
}

func TestPostHorizonArrivalsArePricedAsWaste(t *testing.T) {
	f := twoNode(1, false)
	p := DefaultParams()
	p.AllowPostHorizonArrivals = true
	e, err := NewEngine(p)
	require.NoError(t, err)
	prob, err := e.Build(f.input(t))
	require.NoError(t, err)

	late, ok := prob.Vars.Shipment[ShipKey{Origin: "factory", Dest: "store", Product: "p", State: model.Ambient, Depart: 1}]
	require.True(t, ok)
	sol, err := ExtractSolution(prob, map[milp.Var]float64{late: 10})
	require.NoError(t, err)
	assert.InDelta(t, 10, sol.Totals.EndInTransit, 1e-9)
	assert.InDelta(t, 10, sol.Totals.Waste(), 1e-9)
	assert.True(t, sol.Costs.Line(CostWaste).Equal(decimal.NewFromInt(15)), sol.Costs.Line(CostWaste).String())
	require.Len(t, sol.Shipments, 1)
	assert.Equal(t, date(2), sol.Shipments[0].Delivery)
}

func TestPalletEntryChargesWholePallets(t *testing.T) {
	entryCost := func(integer bool) float64 {
		f := twoNode(0, false)
		f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(1)}] = 100
		in := f.input(t)
		in.Costs.PalletEntryCost = map[model.StorageState]float64{model.Ambient: 3}
		p := DefaultParams()
		p.IntegerPallets = integer

		e, err := NewEngine(p)
		require.NoError(t, err)
		prob, err := e.Build(in)
		require.NoError(t, err)
		if integer {
			assert.NotEmpty(t, prob.Vars.EntryPallets)
		} else {
			assert.Empty(t, prob.Vars.EntryPallets)
		}
		res, err := prob.SolveWith(context.Background(), solver.NewSimplex(solver.Config{}, nil), milp.Options{TimeLimit: 10 * time.Second})
		require.NoError(t, err)
		require.True(t, res.Success, "status %s", res.Termination)
		assert.InDelta(t, 0, res.Solution.Totals.Shortage, 1e-6)
		return res.Solution.Costs.Line(CostPalletEntry).InexactFloat64()
	}

	// 100 units enter the factory and then the store, one pallet each
	assert.InDelta(t, 6, entryCost(true), 1e-9)
	assert.InDelta(t, 2*100*3/320.0, entryCost(false), 0.01)
}
