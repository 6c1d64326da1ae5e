package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
)

type availKey struct {
	Origin  string
	Product string
	State   model.StorageState
	Day     int
}

type departureKey struct {
	Truck string
	Day   int
}

// truckLoad describes a load tuple with its derived departure.
type truckLoad struct {
	key    TruckLoadKey
	truck  model.TruckDeparture
	route  model.Route
	depart int
	slot   model.TruckSlot
	source model.StorageState
}

func (b *builder) truckLoads() []truckLoad {
	topo := b.idx.Topology()
	res := make([]truckLoad, 0, len(b.idx.TruckLoads))
	for _, k := range b.idx.TruckLoads {
		t, _ := b.idx.Truck(k.Truck)
		r, _ := topo.Route(t.Origin, k.Dest)
		dep := k.Delivery - r.TransitWholeDays()
		res = append(res, truckLoad{
			key:    k,
			truck:  t,
			route:  r,
			depart: dep,
			slot:   t.SlotOn(b.idx.Horizon.Date(dep)),
			source: topo.SourceState(r, topo.PrimaryTransitState(r)),
		})
	}
	return res
}

// addTrucks links shipments of truck-scheduled origins to truck loads and
// bounds loads by the stock available at the loading cutoff. Morning trucks
// only see the previous day's closing stock; afternoon trucks may also take
// same-day production. The previous day is resolved through the index, so a
// first-day departure reads the initial snapshot.
func (b *builder) addTrucks() error {
	topo := b.idx.Topology()
	loads := b.truckLoads()

	byShip := make(map[ShipKey][]milp.Var)
	for _, l := range loads {
		sk := ShipKey{Origin: l.truck.Origin, Dest: l.key.Dest, Product: l.key.Product, State: topo.PrimaryTransitState(l.route), Depart: l.depart}
		byShip[sk] = append(byShip[sk], b.vars.TruckLoad[l.key])
	}
	for _, sk := range b.idx.Shipments {
		vs, ok := byShip[sk]
		if !ok {
			continue
		}
		var e milp.Expr
		e.Add(b.vars.Shipment[sk], 1)
		for _, v := range vs {
			e.Add(v, -1)
		}
		name := fmt.Sprintf("truck_link[%s,%s,%s,%d]", sk.Origin, sk.Dest, sk.Product, sk.Depart)
		if err := b.add("truck_link", name, e, milp.Equal, 0); err != nil {
			return err
		}
	}

	var order []availKey
	morning := make(map[availKey][]milp.Var)
	all := make(map[availKey][]milp.Var)
	for _, l := range loads {
		ak := availKey{Origin: l.truck.Origin, Product: l.key.Product, State: l.source, Day: l.depart}
		if _, seen := all[ak]; !seen {
			order = append(order, ak)
		}
		all[ak] = append(all[ak], b.vars.TruckLoad[l.key])
		if l.slot == model.Morning {
			morning[ak] = append(morning[ak], b.vars.TruckLoad[l.key])
		}
	}
	for _, ak := range order {
		prev, err := b.idx.ResolveInventory(ak.Origin, ak.Product, ak.State, ak.Day-1)
		if err != nil {
			return fmt.Errorf("truck availability %v: %w", ak, err)
		}
		if vs := morning[ak]; len(vs) > 0 {
			var e milp.Expr
			for _, v := range vs {
				e.Add(v, 1)
			}
			e.AddExpr(b.vars.Resolve(prev), -1)
			name := fmt.Sprintf("truck_am[%s,%s,%d]", ak.Origin, ak.Product, ak.Day)
			if err := b.add("truck_morning", name, e, milp.LessEq, 0); err != nil {
				return err
			}
		}
		var e milp.Expr
		for _, v := range all[ak] {
			e.Add(v, 1)
		}
		e.AddExpr(b.vars.Resolve(prev), -1)
		if ak.State == model.Ambient {
			if x, ok := b.vars.Production[ProdKey{Node: ak.Origin, Product: ak.Product, Day: ak.Day}]; ok {
				e.Add(x, -1)
			}
		}
		name := fmt.Sprintf("truck_pm[%s,%s,%d]", ak.Origin, ak.Product, ak.Day)
		if err := b.add("truck_afternoon", name, e, milp.LessEq, 0); err != nil {
			return err
		}
	}
	return b.addTruckCapacity(loads)
}

func (b *builder) addTruckCapacity(loads []truckLoad) error {
	var order []departureKey
	units := make(map[departureKey]*milp.Expr)
	pallets := make(map[departureKey]*milp.Expr)
	trucks := make(map[departureKey]model.TruckDeparture)
	for _, l := range loads {
		dk := departureKey{Truck: l.truck.ID, Day: l.depart}
		if _, seen := units[dk]; !seen {
			order = append(order, dk)
			units[dk] = &milp.Expr{}
			pallets[dk] = &milp.Expr{}
			trucks[dk] = l.truck
		}
		x := b.vars.TruckLoad[l.key]
		units[dk].Add(x, 1)
		if y, ok := b.vars.Pallets[l.key]; ok {
			var e milp.Expr
			e.Add(x, 1).Add(y, -b.p.PalletUnits(b.idx.Product(l.key.Product)))
			name := fmt.Sprintf("pallet_fill[%s,%s,%d]", l.truck.ID, l.key.Product, l.key.Delivery)
			if err := b.add("truck_pallets", name, e, milp.LessEq, 0); err != nil {
				return err
			}
			pallets[dk].Add(y, 1)
		}
	}
	for _, dk := range order {
		t := trucks[dk]
		if t.CapacityUnits > 0 {
			name := fmt.Sprintf("truck_cap[%s,%d]", dk.Truck, dk.Day)
			if err := b.add("truck_capacity", name, *units[dk], milp.LessEq, t.CapacityUnits); err != nil {
				return err
			}
		}
		if pallets[dk].Len() > 0 {
			name := fmt.Sprintf("truck_pallet_cap[%s,%d]", dk.Truck, dk.Day)
			if err := b.add("truck_capacity", name, *pallets[dk], milp.LessEq, float64(t.CapacityPallets)); err != nil {
				return err
			}
		}
	}
	return nil
}
