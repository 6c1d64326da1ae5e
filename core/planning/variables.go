package planning

import (
	"fmt"
	"math"

	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
)

type varKind int

const (
	kindProduction varKind = iota
	kindInventory
	kindShipment
	kindConsumption
	kindShortage
	kindDisposal
	kindTruckLoad
	kindPallets
	kindEntryPallets
	kindTransition
	kindLabor
	kindOvertime
	kindUsesOvertime
	kindPaid
	kindWorks
	kindProduced
)

// varRef links a model variable back to the tuple it was created for.
type varRef struct {
	kind varKind
	key  any
}

// Variables maps index tuples to model variables.
type Variables struct {
	Production   map[ProdKey]milp.Var
	Inventory    map[InvKey]milp.Var
	Shipment     map[ShipKey]milp.Var
	Consumption  map[ConsKey]milp.Var
	Shortage     map[DemandSlot]milp.Var
	Disposal     map[InvKey]milp.Var
	TruckLoad    map[TruckLoadKey]milp.Var
	Pallets      map[TruckLoadKey]milp.Var
	EntryPallets map[InvKey]milp.Var
	Transition   map[TransKey]milp.Var
	Labor        map[LaborKey]milp.Var
	Overtime     map[LaborKey]milp.Var
	UsesOvertime map[LaborKey]milp.Var
	Paid         map[LaborKey]milp.Var
	Works        map[LaborKey]milp.Var
	Produced     map[ProdKey]milp.Var

	refs []varRef
	m    *milp.Model
}

func newVariables(m *milp.Model, idx *Index) (*Variables, error) {
	v := &Variables{
		Production:   make(map[ProdKey]milp.Var, len(idx.Production)),
		Inventory:    make(map[InvKey]milp.Var, len(idx.Inventory)),
		Shipment:     make(map[ShipKey]milp.Var, len(idx.Shipments)),
		Consumption:  make(map[ConsKey]milp.Var, len(idx.Consumption)),
		Shortage:     make(map[DemandSlot]milp.Var, len(idx.Shortage)),
		Disposal:     make(map[InvKey]milp.Var, len(idx.Disposal)),
		TruckLoad:    make(map[TruckLoadKey]milp.Var, len(idx.TruckLoads)),
		Pallets:      make(map[TruckLoadKey]milp.Var),
		EntryPallets: make(map[InvKey]milp.Var),
		Transition:   make(map[TransKey]milp.Var, len(idx.Transitions)),
		Labor:        make(map[LaborKey]milp.Var, len(idx.Labor)),
		Overtime:     make(map[LaborKey]milp.Var),
		UsesOvertime: make(map[LaborKey]milp.Var),
		Paid:         make(map[LaborKey]milp.Var),
		Works:        make(map[LaborKey]milp.Var),
		Produced:     make(map[ProdKey]milp.Var),
		m:            m,
	}
	p := idx.Params()
	inf := math.Inf(1)

	for _, k := range idx.Production {
		x, err := v.add(kindProduction, k, fmt.Sprintf("prod[%s,%s,%d]", k.Node, k.Product, k.Day), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.Production[k] = x
	}
	for _, k := range idx.Inventory {
		x, err := v.add(kindInventory, k, fmt.Sprintf("inv[%s,%s,%s,%d]", k.Node, k.Product, k.State, k.Day), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.Inventory[k] = x
	}
	for _, k := range idx.Shipments {
		x, err := v.add(kindShipment, k, fmt.Sprintf("ship[%s,%s,%s,%s,%d]", k.Origin, k.Dest, k.Product, k.State, k.Depart), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.Shipment[k] = x
	}
	for _, k := range idx.Consumption {
		x, err := v.add(kindConsumption, k, fmt.Sprintf("cons[%s,%s,%s,%d]", k.Node, k.Product, k.State, k.Day), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.Consumption[k] = x
	}
	for _, k := range idx.Shortage {
		x, err := v.add(kindShortage, k, fmt.Sprintf("short[%s,%s,%d]", k.Node, k.Product, k.Day), milp.Continuous, idx.Demand(k))
		if err != nil {
			return nil, err
		}
		v.Shortage[k] = x
	}
	for _, k := range idx.Disposal {
		x, err := v.add(kindDisposal, k, fmt.Sprintf("disp[%s,%s,%s,%d]", k.Node, k.Product, k.State, k.Day), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.Disposal[k] = x
	}
	for _, k := range idx.TruckLoads {
		x, err := v.add(kindTruckLoad, k, fmt.Sprintf("load[%s,%s,%s,%d]", k.Truck, k.Dest, k.Product, k.Delivery), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.TruckLoad[k] = x
		if t, _ := idx.Truck(k.Truck); p.IntegerPallets && t.CapacityPallets > 0 {
			y, err := v.add(kindPallets, k, fmt.Sprintf("pallets[%s,%s,%s,%d]", k.Truck, k.Dest, k.Product, k.Delivery), milp.Integer, float64(t.CapacityPallets))
			if err != nil {
				return nil, err
			}
			v.Pallets[k] = y
		}
	}
	for _, k := range idx.Transitions {
		x, err := v.add(kindTransition, k, fmt.Sprintf("trans[%s,%s,%s>%s,%d]", k.Node, k.Product, k.From, k.To, k.Day), milp.Continuous, inf)
		if err != nil {
			return nil, err
		}
		v.Transition[k] = x
	}
	if err := v.addLaborVars(idx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Variables) addLaborVars(idx *Index) error {
	p := idx.Params()
	costs := idx.Costs()
	for _, k := range idx.Labor {
		ld := idx.LaborDay(k)
		node, _ := idx.Topology().Node(k.Node)
		capHours := ld.Capacity(p.MaxNonFixedHours)
		x, err := v.add(kindLabor, k, fmt.Sprintf("labor[%s,%d]", k.Node, k.Day), milp.Continuous, capHours)
		if err != nil {
			return err
		}
		v.Labor[k] = x
		if ld.IsFixedDay {
			if ld.MaxOvertimeHours > 0 {
				if v.Overtime[k], err = v.add(kindOvertime, k, fmt.Sprintf("ot[%s,%d]", k.Node, k.Day), milp.Continuous, ld.MaxOvertimeHours); err != nil {
					return err
				}
				if v.UsesOvertime[k], err = v.add(kindUsesOvertime, k, fmt.Sprintf("uses_ot[%s,%d]", k.Node, k.Day), milp.Binary, 1); err != nil {
					return err
				}
			}
		} else {
			if v.Paid[k], err = v.add(kindPaid, k, fmt.Sprintf("paid[%s,%d]", k.Node, k.Day), milp.Continuous, capHours); err != nil {
				return err
			}
			if ld.MinimumHours > 0 {
				if v.Works[k], err = v.add(kindWorks, k, fmt.Sprintf("works[%s,%d]", k.Node, k.Day), milp.Binary, 1); err != nil {
					return err
				}
			}
		}
		if !changeoverTracked(node, costs) {
			continue
		}
		for _, prod := range idx.Products {
			pk := ProdKey{Node: k.Node, Product: prod.ID, Day: k.Day}
			if !idx.HasProduction(pk) {
				continue
			}
			if v.Produced[pk], err = v.add(kindProduced, pk, fmt.Sprintf("produced[%s,%s,%d]", k.Node, prod.ID, k.Day), milp.Binary, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// changeoverTracked reports whether product starts need binary indicators.
func changeoverTracked(n model.Node, c model.CostStructure) bool {
	if n.Manufacturing == nil {
		return false
	}
	return n.Manufacturing.ChangeoverHours > 0 || n.Manufacturing.ChangeoverWasteUnits > 0 || c.ChangeoverCost > 0
}

func (v *Variables) add(kind varKind, key any, name string, vk milp.VarKind, upper float64) (milp.Var, error) {
	x, err := v.m.AddVar(name, vk, 0, upper)
	if err != nil {
		return -1, err
	}
	if int(x) != len(v.refs) {
		return -1, fmt.Errorf("variable %s created outside the planner", name)
	}
	v.refs = append(v.refs, varRef{kind: kind, key: key})
	return x, nil
}

// Resolve turns a Quantity into an expression.
func (v *Variables) Resolve(q Quantity) milp.Expr {
	if q.IsConstant() {
		return milp.Expr{Constant: q.Constant}
	}
	return milp.NewExpr(milp.Term{Var: v.Inventory[*q.Key], Coef: 1})
}

func (v *Variables) ref(x milp.Var) (varRef, bool) {
	if int(x) < 0 || int(x) >= len(v.refs) {
		return varRef{}, false
	}
	return v.refs[x], true
}
