package model

// Manufacturing describes the production capability of a node.
type Manufacturing struct {
	UnitsPerHour         float64 // production rate
	ChangeoverHours      float64 // labour overhead per product produced on a day
	ChangeoverWasteUnits float64 // material lost per product started on a day
}

// Node is a location of the distribution network. Nodes are created once per
// planning run and never mutated afterwards.
type Node struct {
	ID                    string
	Name                  string
	Storage               Storage
	Manufacturing         *Manufacturing
	HasDemand             bool
	RequiresTruckSchedule bool
	// HoldingCost is charged per pallet and per day for stock in each state.
	HoldingCost map[StorageState]float64
}

// CanManufacture reports whether the node produces goods.
func (n Node) CanManufacture() bool {
	return n.Manufacturing != nil
}

// Rate returns the production rate in units per hour, or def when the node
// does not declare one.
func (n Node) Rate(def float64) float64 {
	if n.Manufacturing == nil || n.Manufacturing.UnitsPerHour <= 0 {
		return def
	}
	return n.Manufacturing.UnitsPerHour
}

// CanStore reports whether the node holds goods in state st.
func (n Node) CanStore(st StorageState) bool {
	return n.Storage != nil && Supports(n.Storage, st)
}

// Holding returns the holding cost per pallet-day for state st.
func (n Node) Holding(st StorageState) float64 {
	if n.HoldingCost == nil {
		return 0
	}
	return n.HoldingCost[st]
}
