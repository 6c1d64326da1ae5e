package planning

import (
	"fmt"
	"math"

	"github.com/kilianp07/freshplan/core/milp"
)

// Category names a line of the cost breakdown.
type Category string

const (
	CostProduction      Category = "production"
	CostLabor           Category = "labor"
	CostTransport       Category = "transport"
	CostHolding         Category = "holding"
	CostPalletEntry     Category = "pallet_entry"
	CostChangeover      Category = "changeover"
	CostChangeoverWaste Category = "changeover_waste"
	CostShortage        Category = "shortage"
	CostWaste           Category = "waste"
)

// Categories lists every cost category in reporting order.
var Categories = []Category{
	CostProduction, CostLabor, CostTransport, CostHolding, CostPalletEntry,
	CostChangeover, CostChangeoverWaste, CostShortage, CostWaste,
}

// addObjective builds one expression per cost category and minimises their
// sum. Waste prices everything the horizon leaves unconsumed: closing stock,
// shipments still travelling after the last day and disposals.
//
// Holding is charged per pallet of stock as a linear relaxation, so a part
// pallet costs its share. Pallet entry is charged per whole pallet placed when
// IntegerPallets is set and per part pallet otherwise.
func (b *builder) addObjective() map[Category]milp.Expr {
	idx := b.idx
	costs := idx.Costs()
	topo := idx.Topology()
	lines := make(map[Category]*milp.Expr, len(Categories))
	for _, c := range Categories {
		lines[c] = &milp.Expr{}
	}

	for _, k := range idx.Production {
		lines[CostProduction].Add(b.vars.Production[k], costs.ProductionCostPerUnit)
	}

	for _, k := range idx.Labor {
		ld := idx.LaborDay(k)
		if ld.IsFixedDay {
			lines[CostLabor].AddConstant(ld.RegularRate * ld.FixedHours)
			if ot, ok := b.vars.Overtime[k]; ok {
				lines[CostLabor].Add(ot, ld.OvertimeRate)
			}
			continue
		}
		lines[CostLabor].Add(b.vars.Paid[k], ld.NonFixedRate)
	}

	waste := costs.WastePenaltyPerUnit()
	last := idx.Horizon.Last()
	for _, k := range idx.Shipments {
		r, _ := topo.Route(k.Origin, k.Dest)
		x := b.vars.Shipment[k]
		lines[CostTransport].Add(x, r.CostPerUnit)
		if k.Depart+r.TransitWholeDays() > last {
			lines[CostWaste].Add(x, waste)
		}
	}

	for _, k := range idx.Inventory {
		node, _ := topo.Node(k.Node)
		upp := b.p.PalletUnits(idx.Product(k.Product))
		x := b.vars.Inventory[k]
		lines[CostHolding].Add(x, node.Holding(k.State)/upp)
		if y, ok := b.vars.EntryPallets[k]; ok {
			lines[CostPalletEntry].Add(y, costs.EntryCost(k.State))
		} else if entry := costs.EntryCost(k.State); entry > 0 {
			for _, t := range b.inflows(k) {
				lines[CostPalletEntry].Add(t.Var, t.Coef*entry/upp)
			}
		}
		if k.Day == last {
			lines[CostWaste].Add(x, waste)
		}
	}
	for _, k := range idx.Disposal {
		lines[CostWaste].Add(b.vars.Disposal[k], waste)
	}

	wasteUnitCost := costs.ChangeoverWasteUnitCost()
	for pk, y := range b.vars.Produced {
		lines[CostChangeover].Add(y, costs.ChangeoverCost)
		node, _ := topo.Node(pk.Node)
		if node.Manufacturing != nil {
			lines[CostChangeoverWaste].Add(y, node.Manufacturing.ChangeoverWasteUnits*wasteUnitCost)
		}
	}

	for _, s := range idx.Shortage {
		lines[CostShortage].Add(b.vars.Shortage[s], costs.ShortagePenaltyPerUnit)
	}

	res := make(map[Category]milp.Expr, len(lines))
	var total milp.Expr
	for _, c := range Categories {
		e := lines[c].Simplify()
		res[c] = e
		total.AddExpr(e, 1)
	}
	b.m.SetObjective(total)
	return res
}

// addPalletEntries rounds the stock placed into each inventory tuple up to
// whole pallets when IntegerPallets is set and the state has an entry cost.
func (b *builder) addPalletEntries() error {
	if !b.p.IntegerPallets {
		return nil
	}
	costs := b.idx.Costs()
	for _, k := range b.idx.Inventory {
		if costs.EntryCost(k.State) <= 0 {
			continue
		}
		in := b.inflows(k)
		if len(in) == 0 {
			continue
		}
		name := fmt.Sprintf("entry[%s,%s,%s,%d]", k.Node, k.Product, k.State, k.Day)
		y, err := b.vars.add(kindEntryPallets, k, name, milp.Integer, math.Inf(1))
		if err != nil {
			return err
		}
		b.vars.EntryPallets[k] = y
		var e milp.Expr
		e.Add(y, b.p.PalletUnits(b.idx.Product(k.Product)))
		for _, t := range in {
			e.Add(t.Var, -t.Coef)
		}
		if err := b.add("pallet_entry", name, e, milp.GreaterEq, 0); err != nil {
			return err
		}
	}
	return nil
}
