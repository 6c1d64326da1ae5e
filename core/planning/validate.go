package planning

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/freshplan/core/model"
)

// Violation is a plan property that does not hold.
type Violation struct {
	Property string
	Detail   string
}

func (v Violation) String() string { return v.Property + ": " + v.Detail }

// Verify checks a solved plan against the properties every feasible plan
// has, independently of how the model was written: unit conservation, the
// demand equation, non-negative flows, disposal only after expiry, truck
// timing and capacity, labour bounds and the cost breakdown.
func Verify(p *Problem, sol *Solution) []Violation {
	v := &verifier{p: p, sol: sol, idx: p.Index, tol: p.params.Tolerance}
	v.conservation()
	v.demand()
	v.nonNegative()
	v.disposalTiming()
	v.trucks()
	v.labor()
	v.costs()
	return v.out
}

type verifier struct {
	p   *Problem
	sol *Solution
	idx *Index
	tol float64
	out []Violation
}

func (v *verifier) fail(property, format string, args ...any) {
	v.out = append(v.out, Violation{Property: property, Detail: fmt.Sprintf(format, args...)})
}

func (v *verifier) near(a, b float64) bool {
	return math.Abs(a-b) <= v.tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func (v *verifier) conservation() {
	t := v.sol.Totals
	in := t.Initial + t.Produced
	out := t.Consumed + t.EndInventory + t.EndInTransit + t.Disposed
	if !v.near(in, out) {
		v.fail("conservation", "initial %.3f + produced %.3f != consumed %.3f + closing %.3f + in transit %.3f + disposed %.3f",
			t.Initial, t.Produced, t.Consumed, t.EndInventory, t.EndInTransit, t.Disposed)
	}
}

func (v *verifier) demand() {
	served := make(map[DemandSlot]float64)
	h := v.idx.Horizon
	for _, c := range v.sol.Consumption {
		served[DemandSlot{Node: c.Node, Product: c.Product, Day: h.DayOf(c.Date)}] += c.Quantity
	}
	for _, s := range v.sol.Shortages {
		served[DemandSlot{Node: s.Node, Product: s.Product, Day: h.DayOf(s.Date)}] += s.Quantity
	}
	for _, slot := range v.idx.Shortage {
		if d := v.idx.Demand(slot); !v.near(served[slot], d) {
			v.fail("demand", "%s/%s day %d: consumed plus shortage %.3f, demand %.3f", slot.Node, slot.Product, slot.Day, served[slot], d)
		}
		delete(served, slot)
	}
	for slot, q := range served {
		v.fail("demand", "%s/%s day %d: %.3f served without demand", slot.Node, slot.Product, slot.Day, q)
	}
}

func (v *verifier) nonNegative() {
	check := func(ledger string, q float64) {
		if q < -v.tol {
			v.fail("non_negative", "%s quantity %.6f", ledger, q)
		}
	}
	for _, x := range v.sol.Production {
		check("production", x.Quantity)
	}
	for _, x := range v.sol.Shipments {
		check("shipment", x.Quantity)
	}
	for _, x := range v.sol.Inventory {
		check("inventory", x.Quantity)
	}
	for _, x := range v.sol.Consumption {
		check("consumption", x.Quantity)
	}
	for _, x := range v.sol.Shortages {
		check("shortage", x.Quantity)
	}
	for _, x := range v.sol.Disposals {
		check("disposal", x.Quantity)
	}
	for _, x := range v.sol.Transitions {
		check("transition", x.Quantity)
	}
}

func (v *verifier) disposalTiming() {
	h := v.idx.Horizon
	for _, d := range v.sol.Disposals {
		life := v.p.params.LifeOf(v.idx.Product(d.Product), d.State)
		expiry := model.AddDays(h.Snapshot, life)
		if d.Date.Before(expiry) {
			v.fail("disposal_timing", "%s/%s %s disposed on %s before initial stock expires on %s",
				d.Node, d.Product, d.State, d.Date.Format("2006-01-02"), expiry.Format("2006-01-02"))
		}
	}
}

// stockBefore returns the closing stock of the day before date, reading the
// snapshot for the first planning day.
func (v *verifier) stockBefore(node, product string, st model.StorageState, day int) float64 {
	if day <= 0 {
		return v.idx.Initial().Quantity(model.InventoryKey{Node: node, Product: product, State: st})
	}
	return v.sol.InventoryOn(node, product, st, v.idx.Horizon.Date(day-1))
}

func (v *verifier) trucks() {
	h := v.idx.Horizon
	topo := v.idx.Topology()
	produced := make(map[ProdKey]float64)
	for _, b := range v.sol.Production {
		produced[ProdKey{Node: b.Node, Product: b.Product, Day: h.DayOf(b.Date)}] += b.Quantity
	}
	morning := make(map[availKey]float64)
	all := make(map[availKey]float64)
	units := make(map[departureKey]float64)
	pallets := make(map[departureKey]float64)
	for _, l := range v.sol.TruckLoads {
		t, ok := v.idx.Truck(l.Truck)
		if !ok {
			v.fail("truck_timing", "load on unknown truck %s", l.Truck)
			continue
		}
		r, _ := topo.Route(l.Origin, l.Destination)
		dep, del := h.DayOf(l.Departure), h.DayOf(l.Delivery)
		if del-dep != r.TransitWholeDays() {
			v.fail("truck_timing", "truck %s departs day %d and delivers day %d on a %d day route", l.Truck, dep, del, r.TransitWholeDays())
		}
		if t.SlotOn(l.Departure) == model.NotScheduled {
			v.fail("truck_timing", "truck %s loaded on day %d without a departure", l.Truck, dep)
		}
		ak := availKey{Origin: l.Origin, Product: l.Product, State: topo.SourceState(r, topo.PrimaryTransitState(r)), Day: dep}
		all[ak] += l.Quantity
		if l.Slot == model.Morning {
			morning[ak] += l.Quantity
		}
		dk := departureKey{Truck: l.Truck, Day: dep}
		units[dk] += l.Quantity
		pallets[dk] += l.Pallets
	}
	for ak, q := range morning {
		if avail := v.stockBefore(ak.Origin, ak.Product, ak.State, ak.Day); q > avail+v.tol*math.Max(1, avail) {
			v.fail("truck_availability", "morning loads %.3f of %s at %s day %d exceed prior stock %.3f", q, ak.Product, ak.Origin, ak.Day, avail)
		}
	}
	for ak, q := range all {
		avail := v.stockBefore(ak.Origin, ak.Product, ak.State, ak.Day)
		if ak.State == model.Ambient {
			avail += produced[ProdKey{Node: ak.Origin, Product: ak.Product, Day: ak.Day}]
		}
		if q > avail+v.tol*math.Max(1, avail) {
			v.fail("truck_availability", "loads %.3f of %s at %s day %d exceed available %.3f", q, ak.Product, ak.Origin, ak.Day, avail)
		}
	}
	for dk, q := range units {
		t, _ := v.idx.Truck(dk.Truck)
		if t.CapacityUnits > 0 && q > t.CapacityUnits+v.tol*math.Max(1, t.CapacityUnits) {
			v.fail("truck_capacity", "truck %s day %d carries %.3f of %.3f units", dk.Truck, dk.Day, q, t.CapacityUnits)
		}
		if t.CapacityPallets > 0 && pallets[dk] > float64(t.CapacityPallets)+v.tol {
			v.fail("truck_capacity", "truck %s day %d carries %.0f of %d pallets", dk.Truck, dk.Day, pallets[dk], t.CapacityPallets)
		}
	}
}

func (v *verifier) labor() {
	h := v.idx.Horizon
	for _, u := range v.sol.Labor {
		k := LaborKey{Node: u.Node, Day: h.DayOf(u.Date)}
		ld := v.idx.LaborDay(k)
		capHours := ld.Capacity(v.p.params.MaxNonFixedHours)
		if u.Hours > capHours+v.tol {
			v.fail("labor", "%s day %d uses %.3f of %.3f hours", u.Node, k.Day, u.Hours, capHours)
		}
		if ld.IsFixedDay && u.OvertimeHours < u.Hours-ld.FixedHours-v.tol {
			v.fail("labor", "%s day %d overtime %.3f below hours beyond fixed %.3f", u.Node, k.Day, u.OvertimeHours, u.Hours-ld.FixedHours)
		}
		if !ld.IsFixedDay && u.PaidHours < u.Hours-v.tol {
			v.fail("labor", "%s day %d pays %.3f for %.3f hours", u.Node, k.Day, u.PaidHours, u.Hours)
		}
	}
}

func (v *verifier) costs() {
	obj := decimal.NewFromFloat(v.sol.Objective)
	// each line is rounded to cents
	slack := decimal.NewFromFloat(0.005*float64(len(v.sol.Costs.Lines)) + v.tol*math.Max(1, math.Abs(v.sol.Objective)))
	if v.sol.Costs.Total.Sub(obj).Abs().GreaterThan(slack) {
		v.fail("cost_breakdown", "categories sum to %s, objective is %s", v.sol.Costs.Total.StringFixed(2), obj.StringFixed(2))
	}
}
