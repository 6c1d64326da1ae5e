package model

// Product is a planned SKU. Zero values fall back to the planner defaults.
type Product struct {
	ID             string
	UnitsPerPallet float64
	// ShelfLifeDays overrides the default shelf life for a state.
	ShelfLifeDays map[StorageState]int
}

// ShelfLife returns the product specific shelf life in state st, or def when
// none is configured.
func (p Product) ShelfLife(st StorageState, def int) int {
	if p.ShelfLifeDays != nil {
		if v, ok := p.ShelfLifeDays[st]; ok && v > 0 {
			return v
		}
	}
	return def
}

// PalletUnits returns the number of units per pallet, or def when unset.
func (p Product) PalletUnits(def float64) float64 {
	if p.UnitsPerPallet > 0 {
		return p.UnitsPerPallet
	}
	return def
}
