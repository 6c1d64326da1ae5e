package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/core/model"
)

func TestHorizon(t *testing.T) {
	h, err := NewHorizon(date(0), date(6), date(-1))
	require.NoError(t, err)
	assert.Equal(t, 7, h.Days)
	assert.Equal(t, 6, h.Last())
	assert.Equal(t, date(3), h.Date(3))
	assert.Equal(t, -1, h.DayOf(date(-1)))
	assert.False(t, h.Contains(7))
	assert.Equal(t, 16, h.ExpiryDay(17))

	// a snapshot taken inside the window moves the first day forward
	h, err = NewHorizon(date(0), date(6), date(2))
	require.NoError(t, err)
	assert.Equal(t, date(3), h.First)
	assert.Equal(t, 4, h.Days)

	h, err = NewHorizon(date(0), date(1), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(-1), h.Snapshot)

	_, err = NewHorizon(date(0), date(3), date(5))
	assert.ErrorIs(t, err, ErrEmptyHorizon)

	_, err = NewHorizon(date(0), date(3), date(-3))
	assert.ErrorIs(t, err, ErrStaleSnapshot)
}

func TestParamsValidate(t *testing.T) {
	assert.ErrorIs(t, Params{}.Validate(), ErrInvalidParams)

	var p Params
	p.SetDefaults()
	require.NoError(t, p.Validate())
	assert.Equal(t, DefaultParams(), p)
	assert.Equal(t, 14, p.ShelfLife(model.Thawed))
	assert.Equal(t, 5, p.LifeOf(model.Product{ShelfLifeDays: map[model.StorageState]int{model.Ambient: 5}}, model.Ambient))

	p.Tolerance = -1
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestIndexSparsity(t *testing.T) {
	f := twoNode(1, false)
	f.nodes = append(f.nodes, model.Node{ID: "island", Storage: model.AmbientStorage{}, HasDemand: true})
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(1)}] = 10
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(0)}] = 0
	f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(9)}] = 5
	f.demand[model.DemandKey{Node: "factory", Product: "p", Date: date(1)}] = 5
	f.demand[model.DemandKey{Node: "island", Product: "p", Date: date(1)}] = 7
	idx := f.index(t, DefaultParams())

	assert.Equal(t, 2, idx.DroppedDemand)
	assert.Len(t, idx.Shortage, 2)
	assert.False(t, idx.Sourced("island", "p"))
	assert.True(t, idx.Sourced("store", "p"))

	// the island can never be supplied: shortage only, no stock or consumption
	assert.False(t, idx.HasInventory(InvKey{Node: "island", Product: "p", State: model.Ambient, Day: 1}))
	assert.False(t, idx.HasConsumption(ConsKey{Node: "island", Product: "p", State: model.Ambient, Day: 1}))
	assert.True(t, idx.HasConsumption(ConsKey{Node: "store", Product: "p", State: model.Ambient, Day: 1}))

	// a one day route into a two day horizon only departs on day 0
	r, _ := idx.Topology().Route("factory", "store")
	assert.Equal(t, 0, idx.LatestSafeDeparture(r))
	assert.True(t, idx.HasShipment(ShipKey{Origin: "factory", Dest: "store", Product: "p", State: model.Ambient, Depart: 0}))
	assert.False(t, idx.HasShipment(ShipKey{Origin: "factory", Dest: "store", Product: "p", State: model.Ambient, Depart: 1}))

	p := DefaultParams()
	p.AllowPostHorizonArrivals = true
	idx = f.index(t, p)
	assert.True(t, idx.HasShipment(ShipKey{Origin: "factory", Dest: "store", Product: "p", State: model.Ambient, Depart: 1}))

	assert.Len(t, idx.Production, 2)
	assert.Empty(t, idx.Transitions)
	assert.Empty(t, idx.Disposal)
}

func TestEarliestSupplyLimitsConsumption(t *testing.T) {
	f := twoNode(2, false)
	f.days = 4
	for d := 0; d < 4; d++ {
		f.demand[model.DemandKey{Node: "store", Product: "p", Date: date(d)}] = 10
	}
	idx := f.index(t, DefaultParams())

	first, ok := idx.EarliestSupply("store", "p")
	require.True(t, ok)
	assert.Equal(t, 2, first)
	assert.False(t, idx.HasConsumption(ConsKey{Node: "store", Product: "p", State: model.Ambient, Day: 1}))
	assert.True(t, idx.HasConsumption(ConsKey{Node: "store", Product: "p", State: model.Ambient, Day: 2}))
	assert.Len(t, idx.Shortage, 4)

	// stock already at the store serves the first day
	f.initial[model.InventoryKey{Node: "store", Product: "p", State: model.Ambient}] = 5
	idx = f.index(t, DefaultParams())
	first, _ = idx.EarliestSupply("store", "p")
	assert.Equal(t, 0, first)
	assert.True(t, idx.HasConsumption(ConsKey{Node: "store", Product: "p", State: model.Ambient, Day: 0}))
}

func TestShipmentsLongerThanShelfLifeAreExcluded(t *testing.T) {
	f := twoNode(3, false)
	f.days = 6
	p := DefaultParams()
	p.AmbientShelfLifeDays = 2
	idx := f.index(t, p)
	assert.Empty(t, idx.Shipments)

	p.AmbientShelfLifeDays = 3
	idx = f.index(t, p)
	assert.NotEmpty(t, idx.Shipments)
}

func TestDisposalOnlyAfterInitialStockExpires(t *testing.T) {
	f := twoNode(0, false)
	f.days = 5
	p := DefaultParams()
	p.AmbientShelfLifeDays = 3
	idx := f.index(t, p)

	// snapshot is day -1, so stock expires at the start of day 2
	for _, k := range idx.Disposal {
		assert.GreaterOrEqual(t, k.Day, 2)
	}
	assert.True(t, idx.HasDisposal(InvKey{Node: "store", Product: "p", State: model.Ambient, Day: 2}))
	assert.False(t, idx.HasDisposal(InvKey{Node: "store", Product: "p", State: model.Ambient, Day: 1}))
	assert.Len(t, idx.Disposal, 2*3)
}

func TestResolveInventory(t *testing.T) {
	f := twoNode(0, false)
	f.nodes = append(f.nodes, model.Node{ID: "island", Storage: model.AmbientStorage{}})
	f.initial[model.InventoryKey{Node: "factory", Product: "p", State: model.Ambient}] = 1280
	idx := f.index(t, DefaultParams())

	q, err := idx.ResolveInventory("factory", "p", model.Ambient, -1)
	require.NoError(t, err)
	assert.True(t, q.IsConstant())
	assert.Equal(t, 1280.0, q.Constant)

	q, err = idx.ResolveInventory("factory", "p", model.Ambient, 1)
	require.NoError(t, err)
	require.False(t, q.IsConstant())
	assert.Equal(t, 1, q.Key.Day)

	q, err = idx.ResolveInventory("island", "p", model.Ambient, 1)
	require.NoError(t, err)
	assert.True(t, q.IsConstant())
	assert.Zero(t, q.Constant)

	_, err = idx.ResolveInventory("store", "p", model.Frozen, 0)
	assert.ErrorIs(t, err, ErrUnsupportedState)
	_, err = idx.ResolveInventory("store", "p", model.Ambient, 2)
	assert.ErrorIs(t, err, ErrOutOfHorizon)

	// days between an older snapshot and the first day have no known stock
	idx.Horizon.Snapshot = date(-3)
	_, err = idx.ResolveInventory("factory", "p", model.Ambient, -1)
	assert.ErrorIs(t, err, ErrOutOfHorizon)
	q, err = idx.ResolveInventory("factory", "p", model.Ambient, -3)
	require.NoError(t, err)
	assert.Equal(t, 1280.0, q.Constant)
}

func TestBuildIndexRejectsBadInput(t *testing.T) {
	f := twoNode(1, true)
	f.trucks = []model.TruckDeparture{{ID: "t", Origin: "store", Destination: "factory", Slot: model.Morning}}
	_, err := BuildIndex(f.input(t), DefaultParams())
	assert.ErrorIs(t, err, ErrUnknownRoute)

	f = twoNode(1, false)
	f.initial[model.InventoryKey{Node: "store", Product: "p", State: model.Frozen}] = 1
	_, err = BuildIndex(f.input(t), DefaultParams())
	assert.ErrorIs(t, err, ErrUnsupportedState)

	f = twoNode(1, false)
	f.demand[model.DemandKey{Node: "store", Product: "q", Date: date(0)}] = 1
	_, err = BuildIndex(f.input(t), DefaultParams())
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestTruckScheduledOriginShipsOnlyOnTruckDays(t *testing.T) {
	f := twoNode(1, true)
	f.days = 4
	// day 0 is a Monday
	f.trucks = []model.TruckDeparture{{ID: "t", Origin: "factory", Destination: "store", Slot: model.Morning, Weekdays: []time.Weekday{time.Monday, time.Wednesday}}}
	idx := f.index(t, DefaultParams())

	var departs []int
	for _, k := range idx.Shipments {
		departs = append(departs, k.Depart)
	}
	assert.Equal(t, []int{0, 2}, departs)
	assert.Equal(t, []TruckLoadKey{
		{Truck: "t", Dest: "store", Product: "p", Delivery: 1},
		{Truck: "t", Dest: "store", Product: "p", Delivery: 3},
	}, idx.TruckLoads)
}
