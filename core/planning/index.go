package planning

import (
	"fmt"
	"sort"

	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/core/network"
)

// ProdKey identifies a production quantity.
type ProdKey struct {
	Node    string
	Product string
	Day     int
}

// InvKey identifies end-of-day inventory.
type InvKey struct {
	Node    string
	Product string
	State   model.StorageState
	Day     int
}

// ShipKey identifies goods leaving Origin on Depart in transit state State.
type ShipKey struct {
	Origin  string
	Dest    string
	Product string
	State   model.StorageState
	Depart  int
}

// ConsKey identifies demand served from one inventory state.
type ConsKey struct {
	Node    string
	Product string
	State   model.StorageState
	Day     int
}

// DemandSlot identifies a demand entry inside the horizon.
type DemandSlot struct {
	Node    string
	Product string
	Day     int
}

// TruckLoadKey identifies the quantity of a product a truck delivers. The
// departure is derived from the delivery day and the route transit.
type TruckLoadKey struct {
	Truck    string
	Dest     string
	Product  string
	Delivery int
}

// TransKey identifies an on-site state change, freezing or thawing.
type TransKey struct {
	Node    string
	Product string
	From    model.StorageState
	To      model.StorageState
	Day     int
}

// LaborKey identifies a production day of a manufacturing node.
type LaborKey struct {
	Node string
	Day  int
}

// Quantity is the result of resolving inventory: either a constant from the
// snapshot or a reference to an inventory variable.
type Quantity struct {
	Constant float64
	Key      *InvKey
}

// IsConstant reports whether the quantity is fixed data.
func (q Quantity) IsConstant() bool { return q.Key == nil }

// Index holds the sparse tuple sets backing every decision variable. It is
// read-only once BuildIndex returns.
type Index struct {
	Horizon  Horizon
	Products []model.Product

	Production  []ProdKey
	Inventory   []InvKey
	Shipments   []ShipKey
	Consumption []ConsKey
	Shortage    []DemandSlot
	Disposal    []InvKey
	TruckLoads  []TruckLoadKey
	Transitions []TransKey
	Labor       []LaborKey

	// DroppedDemand counts demand entries outside the horizon or at nodes
	// without demand.
	DroppedDemand int

	topo     *network.Topology
	params   Params
	initial  model.InitialInventory
	costs    model.CostStructure
	products map[string]model.Product
	trucks   map[string]model.TruckDeparture
	demand   map[DemandSlot]float64
	labor    map[LaborKey]model.LaborDay

	prodSet  map[ProdKey]bool
	invSet   map[InvKey]bool
	shipSet  map[ShipKey]bool
	consSet  map[ConsKey]bool
	dispSet  map[InvKey]bool
	truckSet map[TruckLoadKey]bool
	sourced  map[[2]string]bool
	earliest map[[2]string]int
}

// BuildIndex computes the populated tuple sets of a run.
func BuildIndex(in Input, p Params) (*Index, error) {
	if in.Topology == nil {
		return nil, fmt.Errorf("%w: nil topology", ErrInvalidParams)
	}
	h, err := NewHorizon(in.Start, in.End, in.Initial.SnapshotDate)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		Horizon:  h,
		topo:     in.Topology,
		params:   p,
		initial:  in.Initial,
		costs:    in.Costs,
		products: make(map[string]model.Product, len(in.Products)),
		trucks:   make(map[string]model.TruckDeparture, len(in.Trucks)),
		demand:   make(map[DemandSlot]float64),
		labor:    make(map[LaborKey]model.LaborDay),
		prodSet:  make(map[ProdKey]bool),
		invSet:   make(map[InvKey]bool),
		shipSet:  make(map[ShipKey]bool),
		consSet:  make(map[ConsKey]bool),
		dispSet:  make(map[InvKey]bool),
		truckSet: make(map[TruckLoadKey]bool),
		sourced:  make(map[[2]string]bool),
		earliest: make(map[[2]string]int),
	}
	for _, prod := range in.Products {
		if _, dup := idx.products[prod.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %s", ErrUnknownProduct, prod.ID)
		}
		idx.products[prod.ID] = prod
		idx.Products = append(idx.Products, prod)
	}
	sort.Slice(idx.Products, func(i, j int) bool { return idx.Products[i].ID < idx.Products[j].ID })

	if err := idx.checkInitial(); err != nil {
		return nil, err
	}
	idx.markSourced()
	if err := idx.buildDemand(in.Demand); err != nil {
		return nil, err
	}
	idx.buildLabor(in.Labor)
	idx.buildInventory()
	if err := idx.buildShipments(in.Trucks); err != nil {
		return nil, err
	}
	idx.buildConsumption()
	idx.buildTransitions()
	return idx, nil
}

func (idx *Index) checkInitial() error {
	for k, q := range idx.initial.Quantities {
		if q == 0 {
			continue
		}
		if _, ok := idx.products[k.Product]; !ok {
			return fmt.Errorf("%w %s in initial inventory", ErrUnknownProduct, k.Product)
		}
		if _, err := idx.topo.Node(k.Node); err != nil {
			return err
		}
		if !idx.topo.HoldsState(k.Node, k.State) {
			return fmt.Errorf("initial inventory at %s: %w: %s", k.Node, ErrUnsupportedState, k.State)
		}
	}
	return nil
}

// markSourced records which (node, product) pairs can ever hold stock: nodes
// that manufacture, hold initial inventory, or are downstream of one. It also
// records the first day stock can be on hand there, the shortest transit from
// any such origin.
func (idx *Index) markSourced() {
	var origins [][2]string
	for _, n := range idx.topo.Nodes() {
		for _, prod := range idx.Products {
			has := n.CanManufacture()
			for _, st := range model.AllStates {
				if idx.initial.Quantity(model.InventoryKey{Node: n.ID, Product: prod.ID, State: st}) > 0 {
					has = true
				}
			}
			if has {
				origins = append(origins, [2]string{n.ID, prod.ID})
			}
		}
	}
	for _, n := range idx.topo.Nodes() {
		for _, o := range origins {
			if !idx.topo.Reachable(o[0], n.ID) {
				continue
			}
			key := [2]string{n.ID, o[1]}
			days, _ := idx.topo.PathTransitDays(o[0], n.ID)
			if cur, ok := idx.earliest[key]; !ok || days < cur {
				idx.earliest[key] = days
			}
			idx.sourced[key] = true
		}
	}
}

// EarliestSupply returns the first day stock of product can be on hand at
// node, and false when it never can.
func (idx *Index) EarliestSupply(node, product string) (int, bool) {
	d, ok := idx.earliest[[2]string{node, product}]
	return d, ok
}

// Sourced reports whether stock of product can ever reach node.
func (idx *Index) Sourced(node, product string) bool { return idx.sourced[[2]string{node, product}] }

func (idx *Index) buildDemand(d model.Demand) error {
	for _, k := range d.Keys() {
		q := d[k]
		if q == 0 {
			continue
		}
		if _, ok := idx.products[k.Product]; !ok {
			return fmt.Errorf("%w %s in demand", ErrUnknownProduct, k.Product)
		}
		n, err := idx.topo.Node(k.Node)
		if err != nil {
			return err
		}
		day := idx.Horizon.DayOf(k.Date)
		if !n.HasDemand || !idx.Horizon.Contains(day) {
			idx.DroppedDemand++
			continue
		}
		slot := DemandSlot{Node: k.Node, Product: k.Product, Day: day}
		if _, ok := idx.demand[slot]; !ok {
			idx.Shortage = append(idx.Shortage, slot)
		}
		idx.demand[slot] += q
	}
	return nil
}

func (idx *Index) buildLabor(cal model.LaborCalendar) {
	for _, n := range idx.topo.ManufacturingNodes() {
		for day := 0; day < idx.Horizon.Days; day++ {
			ld, ok := cal.On(idx.Horizon.Date(day))
			if !ok || ld.Capacity(idx.params.MaxNonFixedHours) <= 0 {
				continue
			}
			lk := LaborKey{Node: n.ID, Day: day}
			idx.labor[lk] = ld
			idx.Labor = append(idx.Labor, lk)
			for _, prod := range idx.Products {
				k := ProdKey{Node: n.ID, Product: prod.ID, Day: day}
				idx.prodSet[k] = true
				idx.Production = append(idx.Production, k)
			}
		}
	}
}

func (idx *Index) buildInventory() {
	for _, n := range idx.topo.Nodes() {
		for _, prod := range idx.Products {
			if !idx.Sourced(n.ID, prod.ID) {
				continue
			}
			for _, st := range idx.topo.StatesAt(n.ID) {
				expiry := idx.Horizon.ExpiryDay(idx.params.LifeOf(prod, st))
				for day := 0; day < idx.Horizon.Days; day++ {
					k := InvKey{Node: n.ID, Product: prod.ID, State: st, Day: day}
					idx.invSet[k] = true
					idx.Inventory = append(idx.Inventory, k)
					if day >= expiry {
						idx.dispSet[k] = true
						idx.Disposal = append(idx.Disposal, k)
					}
				}
			}
		}
	}
}

// LatestSafeDeparture returns the last departure day of route r whose
// delivery still falls inside the horizon.
func (idx *Index) LatestSafeDeparture(r model.Route) int {
	return idx.Horizon.Last() - r.TransitWholeDays()
}

// shipmentAllowed applies the shelf-life and horizon exclusions to a route.
func (idx *Index) shipmentAllowed(r model.Route, st model.StorageState, prod model.Product, depart int) bool {
	if r.TransitWholeDays() > idx.params.LifeOf(prod, st) {
		return false
	}
	return depart <= idx.LatestSafeDeparture(r) || idx.params.AllowPostHorizonArrivals
}

func (idx *Index) buildShipments(trucks []model.TruckDeparture) error {
	for _, t := range trucks {
		if _, ok := idx.topo.Route(t.Origin, t.Destination); !ok {
			return fmt.Errorf("truck %s: %w %s->%s", t.ID, ErrUnknownRoute, t.Origin, t.Destination)
		}
		if _, dup := idx.trucks[t.ID]; dup {
			return fmt.Errorf("duplicate truck %s", t.ID)
		}
		idx.trucks[t.ID] = t
	}
	truckIDs := make([]string, 0, len(idx.trucks))
	for id := range idx.trucks {
		truckIDs = append(truckIDs, id)
	}
	sort.Strings(truckIDs)

	for _, r := range idx.topo.Routes() {
		origin, _ := idx.topo.Node(r.Origin)
		for _, prod := range idx.Products {
			if !idx.Sourced(r.Origin, prod.ID) {
				continue
			}
			for _, st := range idx.topo.TransitStates(r) {
				if origin.RequiresTruckSchedule && st != idx.topo.PrimaryTransitState(r) {
					continue
				}
				for day := 0; day < idx.Horizon.Days; day++ {
					if !idx.shipmentAllowed(r, st, prod, day) {
						continue
					}
					if origin.RequiresTruckSchedule && len(idx.trucksOn(truckIDs, r, day)) == 0 {
						continue
					}
					k := ShipKey{Origin: r.Origin, Dest: r.Destination, Product: prod.ID, State: st, Depart: day}
					idx.shipSet[k] = true
					idx.Shipments = append(idx.Shipments, k)
					if !origin.RequiresTruckSchedule {
						continue
					}
					for _, t := range idx.trucksOn(truckIDs, r, day) {
						tk := TruckLoadKey{Truck: t.ID, Dest: r.Destination, Product: prod.ID, Delivery: day + r.TransitWholeDays()}
						idx.truckSet[tk] = true
						idx.TruckLoads = append(idx.TruckLoads, tk)
					}
				}
			}
		}
	}
	return nil
}

func (idx *Index) trucksOn(ids []string, r model.Route, day int) []model.TruckDeparture {
	var res []model.TruckDeparture
	date := idx.Horizon.Date(day)
	for _, id := range ids {
		t := idx.trucks[id]
		if t.Origin == r.Origin && t.Destination == r.Destination && t.SlotOn(date) != model.NotScheduled {
			res = append(res, t)
		}
	}
	return res
}

// buildConsumption adds consumption for demand that stock can reach in time.
// Earlier demand can only be short.
func (idx *Index) buildConsumption() {
	for _, slot := range idx.Shortage {
		first, ok := idx.EarliestSupply(slot.Node, slot.Product)
		if !ok || slot.Day < first {
			continue
		}
		for _, st := range []model.StorageState{model.Ambient, model.Thawed} {
			if !idx.topo.HoldsState(slot.Node, st) {
				continue
			}
			k := ConsKey{Node: slot.Node, Product: slot.Product, State: st, Day: slot.Day}
			idx.consSet[k] = true
			idx.Consumption = append(idx.Consumption, k)
		}
	}
}

// buildTransitions adds freezing and thawing at nodes with both ambient and
// frozen storage.
func (idx *Index) buildTransitions() {
	for _, n := range idx.topo.Nodes() {
		if _, ok := n.Storage.(model.DualStorage); !ok {
			continue
		}
		for _, prod := range idx.Products {
			if !idx.Sourced(n.ID, prod.ID) {
				continue
			}
			for day := 0; day < idx.Horizon.Days; day++ {
				idx.Transitions = append(idx.Transitions,
					TransKey{Node: n.ID, Product: prod.ID, From: model.Ambient, To: model.Frozen, Day: day},
					TransKey{Node: n.ID, Product: prod.ID, From: model.Frozen, To: model.Thawed, Day: day},
				)
			}
		}
	}
}

// ResolveInventory returns the end-of-day stock of (node, product, state) on
// day. Days at or before the snapshot resolve to the initial snapshot, tuples
// pruned because no supply can reach them resolve to zero. Days after the
// horizon, days between the snapshot and the first planning day and states
// the node cannot hold are errors.
func (idx *Index) ResolveInventory(node, product string, st model.StorageState, day int) (Quantity, error) {
	if !idx.topo.HoldsState(node, st) {
		return Quantity{}, fmt.Errorf("%w: %s at %s", ErrUnsupportedState, st, node)
	}
	if day >= idx.Horizon.Days {
		return Quantity{}, fmt.Errorf("%w: day %d of %d", ErrOutOfHorizon, day, idx.Horizon.Days)
	}
	if day < 0 {
		if day > idx.Horizon.SnapshotDay() {
			return Quantity{}, fmt.Errorf("%w: day %d lies after snapshot day %d", ErrOutOfHorizon, day, idx.Horizon.SnapshotDay())
		}
		return Quantity{Constant: idx.initial.Quantity(model.InventoryKey{Node: node, Product: product, State: st})}, nil
	}
	k := InvKey{Node: node, Product: product, State: st, Day: day}
	if !idx.invSet[k] {
		return Quantity{}, nil
	}
	return Quantity{Key: &k}, nil
}

// Topology returns the network of the run.
func (idx *Index) Topology() *network.Topology { return idx.topo }

// Params returns the parameters the index was built with.
func (idx *Index) Params() Params { return idx.params }

// Costs returns the cost structure of the run.
func (idx *Index) Costs() model.CostStructure { return idx.costs }

// Initial returns the inventory snapshot of the run.
func (idx *Index) Initial() model.InitialInventory { return idx.initial }

// Product returns a product by id.
func (idx *Index) Product(id string) model.Product { return idx.products[id] }

// Truck returns a truck departure by id.
func (idx *Index) Truck(id string) (model.TruckDeparture, bool) {
	t, ok := idx.trucks[id]
	return t, ok
}

// Demand returns the demand of a slot.
func (idx *Index) Demand(s DemandSlot) float64 { return idx.demand[s] }

// LaborDay returns the calendar entry of a production day.
func (idx *Index) LaborDay(k LaborKey) model.LaborDay { return idx.labor[k] }

// HasProduction reports whether a production tuple exists.
func (idx *Index) HasProduction(k ProdKey) bool { return idx.prodSet[k] }

// HasInventory reports whether an inventory tuple exists.
func (idx *Index) HasInventory(k InvKey) bool { return idx.invSet[k] }

// HasShipment reports whether a shipment tuple exists.
func (idx *Index) HasShipment(k ShipKey) bool { return idx.shipSet[k] }

// HasConsumption reports whether a consumption tuple exists.
func (idx *Index) HasConsumption(k ConsKey) bool { return idx.consSet[k] }

// HasDisposal reports whether disposal is allowed for an inventory tuple.
func (idx *Index) HasDisposal(k InvKey) bool { return idx.dispSet[k] }

// HasTruckLoad reports whether a truck load tuple exists.
func (idx *Index) HasTruckLoad(k TruckLoadKey) bool { return idx.truckSet[k] }

// Transit returns the whole-day transit of the route of a shipment.
func (idx *Index) Transit(origin, dest string) int {
	r, _ := idx.topo.Route(origin, dest)
	return r.TransitWholeDays()
}

// Stats summarises the index sizes for logging.
func (idx *Index) Stats() map[string]any {
	return map[string]any{
		"days":        idx.Horizon.Days,
		"products":    len(idx.Products),
		"production":  len(idx.Production),
		"inventory":   len(idx.Inventory),
		"shipments":   len(idx.Shipments),
		"consumption": len(idx.Consumption),
		"shortage":    len(idx.Shortage),
		"disposal":    len(idx.Disposal),
		"truck_loads": len(idx.TruckLoads),
		"transitions": len(idx.Transitions),
		"labor_days":  len(idx.Labor),
		"dropped":     idx.DroppedDemand,
	}
}
