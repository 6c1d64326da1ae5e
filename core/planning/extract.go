package planning

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
)

// valueEps hides solver noise from the ledgers.
const valueEps = 1e-6

// ExtractSolution converts solver values into ledgers, totals and the cost
// breakdown. Only variables present in values are read.
func ExtractSolution(p *Problem, values map[milp.Var]float64) (*Solution, error) {
	idx := p.Index
	h := idx.Horizon
	topo := idx.Topology()
	sol := &Solution{Start: h.First, End: h.End}
	labor := make(map[LaborKey]*LaborUsage)
	laborOf := func(k LaborKey) *LaborUsage {
		u, ok := labor[k]
		if !ok {
			u = &LaborUsage{Node: k.Node, Date: h.Date(k.Day), FixedDay: idx.LaborDay(k).IsFixedDay}
			labor[k] = u
		}
		return u
	}
	loads := make(map[TruckLoadKey]*TruckLoad)
	loadOf := func(k TruckLoadKey) *TruckLoad {
		l, ok := loads[k]
		if !ok {
			t, _ := idx.Truck(k.Truck)
			dep := k.Delivery - idx.Transit(t.Origin, k.Dest)
			l = &TruckLoad{
				Truck: k.Truck, Origin: t.Origin, Destination: k.Dest, Product: k.Product,
				Slot: t.SlotOn(h.Date(dep)), Departure: h.Date(dep), Delivery: h.Date(k.Delivery),
			}
			loads[k] = l
		}
		return l
	}
	producedDays := make(map[LaborKey]int)

	for v, x := range values {
		ref, ok := p.Vars.ref(v)
		if !ok {
			return nil, fmt.Errorf("value for unknown variable %d", v)
		}
		keep := math.Abs(x) >= valueEps
		switch ref.kind {
		case kindProduction:
			k := ref.key.(ProdKey)
			sol.Totals.Produced += x
			if keep {
				sol.Production = append(sol.Production, ProductionBatch{Node: k.Node, Product: k.Product, Date: h.Date(k.Day), Quantity: x})
				producedDays[LaborKey{Node: k.Node, Day: k.Day}]++
			}
		case kindInventory:
			k := ref.key.(InvKey)
			if k.Day == h.Last() {
				sol.Totals.EndInventory += x
			}
			if keep {
				sol.Inventory = append(sol.Inventory, InventoryLevel{Node: k.Node, Product: k.Product, State: k.State, Date: h.Date(k.Day), Quantity: x})
			}
		case kindShipment:
			k := ref.key.(ShipKey)
			r, _ := topo.Route(k.Origin, k.Dest)
			delivery := k.Depart + r.TransitWholeDays()
			if delivery > h.Last() {
				sol.Totals.EndInTransit += x
			}
			if keep {
				sol.Shipments = append(sol.Shipments, Shipment{
					Origin: k.Origin, Destination: k.Dest, Product: k.Product,
					State: k.State, Arrival: topo.ArrivalState(r, k.State),
					Departure: h.Date(k.Depart), Delivery: h.Date(delivery), Quantity: x,
				})
			}
		case kindConsumption:
			k := ref.key.(ConsKey)
			sol.Totals.Consumed += x
			if keep {
				sol.Consumption = append(sol.Consumption, Consumption{Node: k.Node, Product: k.Product, State: k.State, Date: h.Date(k.Day), Quantity: x})
			}
		case kindShortage:
			k := ref.key.(DemandSlot)
			sol.Totals.Shortage += x
			if keep {
				sol.Shortages = append(sol.Shortages, Shortage{Node: k.Node, Product: k.Product, Date: h.Date(k.Day), Quantity: x})
			}
		case kindDisposal:
			k := ref.key.(InvKey)
			sol.Totals.Disposed += x
			if keep {
				sol.Disposals = append(sol.Disposals, Disposal{Node: k.Node, Product: k.Product, State: k.State, Date: h.Date(k.Day), Quantity: x})
			}
		case kindTruckLoad:
			if keep {
				loadOf(ref.key.(TruckLoadKey)).Quantity = x
			}
		case kindPallets:
			if keep {
				loadOf(ref.key.(TruckLoadKey)).Pallets = math.Round(x)
			}
		case kindTransition:
			k := ref.key.(TransKey)
			if keep {
				sol.Transitions = append(sol.Transitions, Transition{Node: k.Node, Product: k.Product, From: k.From, To: k.To, Date: h.Date(k.Day), Quantity: x})
			}
		case kindLabor:
			laborOf(ref.key.(LaborKey)).Hours = x
		case kindOvertime:
			laborOf(ref.key.(LaborKey)).OvertimeHours = x
		case kindPaid:
			laborOf(ref.key.(LaborKey)).PaidHours = x
		case kindUsesOvertime, kindWorks, kindProduced, kindEntryPallets:
		}
	}

	for _, s := range idx.Shortage {
		sol.Totals.Demand += idx.Demand(s)
	}
	sol.Totals.Initial = idx.Initial().Total()

	for k, u := range labor {
		u.Products = producedDays[k]
		if u.Hours >= valueEps || u.PaidHours >= valueEps {
			sol.Labor = append(sol.Labor, *u)
		}
	}
	for _, l := range loads {
		if l.Quantity > 0 {
			sol.TruckLoads = append(sol.TruckLoads, *l)
		}
	}

	sol.Objective = p.Model.Objective().Eval(values)
	sol.Costs = CostBreakdown{Lines: make(map[Category]decimal.Decimal, len(p.Costs)), Total: decimal.Zero}
	for _, c := range Categories {
		e, ok := p.Costs[c]
		if !ok {
			continue
		}
		v := decimal.NewFromFloat(e.Eval(values)).Round(2)
		sol.Costs.Lines[c] = v
		sol.Costs.Total = sol.Costs.Total.Add(v)
	}

	sortLedgers(sol)
	return sol, nil
}

func byDate(a, b time.Time) int { return a.Compare(b) }

func sortLedgers(s *Solution) {
	sort.Slice(s.Production, func(i, j int) bool {
		a, b := s.Production[i], s.Production[j]
		if c := byDate(a.Date, b.Date); c != 0 {
			return c < 0
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Product < b.Product
	})
	sort.Slice(s.Shipments, func(i, j int) bool {
		a, b := s.Shipments[i], s.Shipments[j]
		if c := byDate(a.Departure, b.Departure); c != 0 {
			return c < 0
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		if a.Destination != b.Destination {
			return a.Destination < b.Destination
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		return a.State < b.State
	})
	sort.Slice(s.TruckLoads, func(i, j int) bool {
		a, b := s.TruckLoads[i], s.TruckLoads[j]
		if c := byDate(a.Departure, b.Departure); c != 0 {
			return c < 0
		}
		if a.Truck != b.Truck {
			return a.Truck < b.Truck
		}
		if a.Destination != b.Destination {
			return a.Destination < b.Destination
		}
		return a.Product < b.Product
	})
	sort.Slice(s.Inventory, func(i, j int) bool {
		a, b := s.Inventory[i], s.Inventory[j]
		return stockLess(a.Date, b.Date, a.Node, b.Node, a.Product, b.Product, a.State, b.State)
	})
	sort.Slice(s.Consumption, func(i, j int) bool {
		a, b := s.Consumption[i], s.Consumption[j]
		return stockLess(a.Date, b.Date, a.Node, b.Node, a.Product, b.Product, a.State, b.State)
	})
	sort.Slice(s.Disposals, func(i, j int) bool {
		a, b := s.Disposals[i], s.Disposals[j]
		return stockLess(a.Date, b.Date, a.Node, b.Node, a.Product, b.Product, a.State, b.State)
	})
	sort.Slice(s.Transitions, func(i, j int) bool {
		a, b := s.Transitions[i], s.Transitions[j]
		return stockLess(a.Date, b.Date, a.Node, b.Node, a.Product, b.Product, a.From, b.From)
	})
	sort.Slice(s.Shortages, func(i, j int) bool {
		a, b := s.Shortages[i], s.Shortages[j]
		return stockLess(a.Date, b.Date, a.Node, b.Node, a.Product, b.Product, 0, 0)
	})
	sort.Slice(s.Labor, func(i, j int) bool {
		a, b := s.Labor[i], s.Labor[j]
		if c := byDate(a.Date, b.Date); c != 0 {
			return c < 0
		}
		return a.Node < b.Node
	})
}

func stockLess(da, db time.Time, na, nb, pa, pb string, sa, sb model.StorageState) bool {
	if c := byDate(da, db); c != 0 {
		return c < 0
	}
	if na != nb {
		return na < nb
	}
	if pa != pb {
		return pa < pb
	}
	return sa < sb
}
