package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/milp"
)

// addLabor converts production into labour hours and applies the cost tier
// coupling of each production day.
//
// Fixed days pay overtime for hours above the fixed hours; the overtime
// indicator must switch on as soon as labour exceeds them. Non-fixed days pay
// every hour worked with a minimum when the day is worked at all.
func (b *builder) addLabor() error {
	for _, k := range b.idx.Labor {
		ld := b.idx.LaborDay(k)
		node, err := b.idx.Topology().Node(k.Node)
		if err != nil {
			return err
		}
		rate := node.Rate(b.p.DefaultUnitsPerHour)
		capHours := ld.Capacity(b.p.MaxNonFixedHours)
		var coHours float64
		if node.Manufacturing != nil {
			coHours = node.Manufacturing.ChangeoverHours
		}
		labor := b.vars.Labor[k]

		var def milp.Expr
		def.Add(labor, 1)
		for _, prod := range b.idx.Products {
			pk := ProdKey{Node: k.Node, Product: prod.ID, Day: k.Day}
			x, ok := b.vars.Production[pk]
			if !ok {
				continue
			}
			def.Add(x, -1/rate)
			y, ok := b.vars.Produced[pk]
			if !ok {
				continue
			}
			def.Add(y, -coHours)
			var link milp.Expr
			link.Add(x, 1).Add(y, -rate*capHours)
			if err := b.add("changeover", fmt.Sprintf("produced[%s,%s,%d]", k.Node, prod.ID, k.Day), link, milp.LessEq, 0); err != nil {
				return err
			}
		}
		if err := b.add("labor", fmt.Sprintf("labor_used[%s,%d]", k.Node, k.Day), def, milp.Equal, 0); err != nil {
			return err
		}

		if ld.IsFixedDay {
			if err := b.addFixedDay(k, labor, ld.FixedHours, ld.MaxOvertimeHours); err != nil {
				return err
			}
			continue
		}
		paid := b.vars.Paid[k]
		var floor milp.Expr
		floor.Add(paid, 1).Add(labor, -1)
		if err := b.add("labor", fmt.Sprintf("paid_hours[%s,%d]", k.Node, k.Day), floor, milp.GreaterEq, 0); err != nil {
			return err
		}
		works, ok := b.vars.Works[k]
		if !ok {
			continue
		}
		var minimum milp.Expr
		minimum.Add(paid, 1).Add(works, -ld.MinimumHours)
		if err := b.add("labor", fmt.Sprintf("min_hours[%s,%d]", k.Node, k.Day), minimum, milp.GreaterEq, 0); err != nil {
			return err
		}
		var on milp.Expr
		on.Add(labor, 1).Add(works, -capHours)
		if err := b.add("labor", fmt.Sprintf("works[%s,%d]", k.Node, k.Day), on, milp.LessEq, 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addFixedDay(k LaborKey, labor milp.Var, fixed, maxOT float64) error {
	if maxOT <= 0 {
		return b.add("labor", fmt.Sprintf("fixed_cap[%s,%d]", k.Node, k.Day), milp.NewExpr(milp.Term{Var: labor, Coef: 1}), milp.LessEq, fixed)
	}
	ot, uses := b.vars.Overtime[k], b.vars.UsesOvertime[k]

	var over milp.Expr
	over.Add(ot, 1).Add(labor, -1)
	if err := b.add("labor", fmt.Sprintf("overtime[%s,%d]", k.Node, k.Day), over, milp.GreaterEq, -fixed); err != nil {
		return err
	}
	var otCap milp.Expr
	otCap.Add(ot, 1).Add(uses, -maxOT)
	if err := b.add("labor", fmt.Sprintf("overtime_cap[%s,%d]", k.Node, k.Day), otCap, milp.LessEq, 0); err != nil {
		return err
	}
	var link milp.Expr
	link.Add(labor, 1).Add(uses, -maxOT)
	return b.add("labor", fmt.Sprintf("uses_overtime[%s,%d]", k.Node, k.Day), link, milp.LessEq, fixed)
}
