package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/logger"
	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/core/model"
)

// builder carries the shared, read-only state of the constraint generators.
type builder struct {
	m    *milp.Model
	idx  *Index
	vars *Variables
	p    Params
	log  logger.Logger
	rows map[string]int
}

func (b *builder) add(group, name string, e milp.Expr, s milp.Sense, rhs float64) error {
	if err := b.m.AddConstraint(name, e, s, rhs); err != nil {
		return fmt.Errorf("%s: %w", group, err)
	}
	b.rows[group]++
	return nil
}

// transitionPairs lists the on-site state changes of dual storage nodes.
var transitionPairs = [][2]model.StorageState{
	{model.Ambient, model.Frozen},
	{model.Frozen, model.Thawed},
}

// inflows returns the terms adding stock to inventory tuple k on its day:
// production, arrivals and incoming state changes.
func (b *builder) inflows(k InvKey) []milp.Term {
	var res []milp.Term
	topo := b.idx.Topology()
	if k.State == model.Ambient {
		if x, ok := b.vars.Production[ProdKey{Node: k.Node, Product: k.Product, Day: k.Day}]; ok {
			res = append(res, milp.Term{Var: x, Coef: 1})
		}
	}
	for _, r := range topo.RoutesInto(k.Node) {
		for _, ts := range topo.TransitStates(r) {
			if topo.ArrivalState(r, ts) != k.State {
				continue
			}
			sk := ShipKey{Origin: r.Origin, Dest: r.Destination, Product: k.Product, State: ts, Depart: k.Day - r.TransitWholeDays()}
			if x, ok := b.vars.Shipment[sk]; ok {
				res = append(res, milp.Term{Var: x, Coef: 1})
			}
		}
	}
	for _, pair := range transitionPairs {
		if pair[1] != k.State {
			continue
		}
		if x, ok := b.vars.Transition[TransKey{Node: k.Node, Product: k.Product, From: pair[0], To: pair[1], Day: k.Day}]; ok {
			res = append(res, milp.Term{Var: x, Coef: 1})
		}
	}
	return res
}

// outflows returns the terms removing usable stock from inventory tuple k on
// its day: departures, consumption and outgoing state changes. Disposal is
// not an outflow.
func (b *builder) outflows(k InvKey) []milp.Term {
	var res []milp.Term
	topo := b.idx.Topology()
	for _, r := range topo.RoutesFrom(k.Node) {
		for _, ts := range topo.TransitStates(r) {
			if topo.SourceState(r, ts) != k.State {
				continue
			}
			sk := ShipKey{Origin: r.Origin, Dest: r.Destination, Product: k.Product, State: ts, Depart: k.Day}
			if x, ok := b.vars.Shipment[sk]; ok {
				res = append(res, milp.Term{Var: x, Coef: 1})
			}
		}
	}
	if x, ok := b.vars.Consumption[ConsKey{Node: k.Node, Product: k.Product, State: k.State, Day: k.Day}]; ok {
		res = append(res, milp.Term{Var: x, Coef: 1})
	}
	for _, pair := range transitionPairs {
		if pair[0] != k.State {
			continue
		}
		if x, ok := b.vars.Transition[TransKey{Node: k.Node, Product: k.Product, From: pair[0], To: pair[1], Day: k.Day}]; ok {
			res = append(res, milp.Term{Var: x, Coef: 1})
		}
	}
	return res
}
