package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
)

// addBalance emits one material balance per inventory tuple:
//
//	inv[d] = resolve(d-1) + inflows[d] - outflows[d] - disposed[d]
//
// On day 0 resolve returns the snapshot, so initial inventory enters the
// model exactly once.
func (b *builder) addBalance() error {
	for _, k := range b.idx.Inventory {
		prev, err := b.idx.ResolveInventory(k.Node, k.Product, k.State, k.Day-1)
		if err != nil {
			return fmt.Errorf("balance %v: %w", k, err)
		}
		var e milp.Expr
		e.Add(b.vars.Inventory[k], 1)
		e.AddExpr(b.vars.Resolve(prev), -1)
		for _, t := range b.inflows(k) {
			e.Add(t.Var, -t.Coef)
		}
		for _, t := range b.outflows(k) {
			e.Add(t.Var, t.Coef)
		}
		if x, ok := b.vars.Disposal[k]; ok {
			e.Add(x, 1)
		}
		name := fmt.Sprintf("balance[%s,%s,%s,%d]", k.Node, k.Product, k.State, k.Day)
		if err := b.add("balance", name, e, milp.Equal, 0); err != nil {
			return err
		}
	}
	return b.addDemand()
}

// addDemand ties consumption and shortage to each demand entry.
func (b *builder) addDemand() error {
	for _, slot := range b.idx.Shortage {
		var e milp.Expr
		e.Add(b.vars.Shortage[slot], 1)
		for _, st := range []model.StorageState{model.Ambient, model.Thawed} {
			if x, ok := b.vars.Consumption[ConsKey{Node: slot.Node, Product: slot.Product, State: st, Day: slot.Day}]; ok {
				e.Add(x, 1)
			}
		}
		name := fmt.Sprintf("demand[%s,%s,%d]", slot.Node, slot.Product, slot.Day)
		if err := b.add("demand", name, e, milp.Equal, b.idx.Demand(slot)); err != nil {
			return err
		}
	}
	return nil
}
