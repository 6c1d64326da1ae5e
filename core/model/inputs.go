package model

import (
	"sort"
	"time"
)

// DemandKey identifies a forecast entry.
type DemandKey struct {
	Node    string
	Product string
	Date    time.Time
}

// Demand maps forecast entries to quantities.
type Demand map[DemandKey]float64

// Keys returns the demand keys sorted by date, node and product.
func (d Demand) Keys() []DemandKey {
	keys := make([]DemandKey, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Product < b.Product
	})
	return keys
}

// Total sums all entries.
func (d Demand) Total() float64 {
	var sum float64
	for _, v := range d {
		sum += v
	}
	return sum
}

// InventoryKey identifies on-hand stock.
type InventoryKey struct {
	Node    string
	Product string
	State   StorageState
}

// InitialInventory is the stock snapshot the plan starts from.
type InitialInventory struct {
	SnapshotDate time.Time
	Quantities   map[InventoryKey]float64
}

// Quantity returns the snapshot quantity for the key. Missing keys hold no
// stock.
func (i InitialInventory) Quantity(k InventoryKey) float64 {
	if i.Quantities == nil {
		return 0
	}
	return i.Quantities[k]
}

// Total sums the snapshot.
func (i InitialInventory) Total() float64 {
	var sum float64
	for _, v := range i.Quantities {
		sum += v
	}
	return sum
}

// CostStructure gathers the economic parameters of a plan.
type CostStructure struct {
	ProductionCostPerUnit  float64
	WasteMultiplier        float64
	ShortagePenaltyPerUnit float64
	// PalletEntryCost is charged once per pallet entering storage in a state.
	PalletEntryCost            map[StorageState]float64
	ChangeoverCost             float64
	ChangeoverWasteCostPerUnit float64
}

// WastePenaltyPerUnit is the cost of a unit that is never consumed.
func (c CostStructure) WastePenaltyPerUnit() float64 {
	return c.ProductionCostPerUnit * c.WasteMultiplier
}

// EntryCost returns the pallet entry cost for state st.
func (c CostStructure) EntryCost(st StorageState) float64 {
	if c.PalletEntryCost == nil {
		return 0
	}
	return c.PalletEntryCost[st]
}

// ChangeoverWasteUnitCost prices a unit lost during a changeover.
func (c CostStructure) ChangeoverWasteUnitCost() float64 {
	if c.ChangeoverWasteCostPerUnit > 0 {
		return c.ChangeoverWasteCostPerUnit
	}
	return c.ProductionCostPerUnit
}
