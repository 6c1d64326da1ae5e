package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/milp"
)

// addShelfLife bounds usable outflows over each trailing shelf-life window by
// the inflows of the same window. Windows clipped to the first planning day
// are skipped: there the bound also admits the initial snapshot and is
// already implied by the balance and non-negative inventory, so the snapshot
// is never counted twice.
func (b *builder) addShelfLife() error {
	for _, k := range b.idx.Inventory {
		life := b.p.LifeOf(b.idx.Product(k.Product), k.State)
		start := k.Day - life + 1
		if start <= 0 {
			continue
		}
		var e milp.Expr
		hasOut := false
		for d := start; d <= k.Day; d++ {
			kk := k
			kk.Day = d
			for _, t := range b.outflows(kk) {
				e.Add(t.Var, t.Coef)
				hasOut = true
			}
			for _, t := range b.inflows(kk) {
				e.Add(t.Var, -t.Coef)
			}
		}
		if !hasOut {
			continue
		}
		name := fmt.Sprintf("shelf_life[%s,%s,%s,%d]", k.Node, k.Product, k.State, k.Day)
		if err := b.add("shelf_life", name, e, milp.LessEq, 0); err != nil {
			return err
		}
	}
	return nil
}
