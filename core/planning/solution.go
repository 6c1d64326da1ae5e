package planning

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/freshplan/core/model"
)

// ProductionBatch is the quantity produced at a node on one day.
type ProductionBatch struct {
	Node     string    `json:"node"`
	Product  string    `json:"product"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// Shipment is goods leaving Origin on Departure and arriving on Delivery.
// State is the transit state; Arrival is the state goods are stocked in.
type Shipment struct {
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	Product     string             `json:"product"`
	State       model.StorageState `json:"state"`
	Arrival     model.StorageState `json:"arrival_state"`
	Departure   time.Time          `json:"departure"`
	Delivery    time.Time          `json:"delivery"`
	Quantity    float64            `json:"quantity"`
}

// TruckLoad is the quantity of a product assigned to a truck departure.
type TruckLoad struct {
	Truck       string          `json:"truck"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Product     string          `json:"product"`
	Slot        model.TruckSlot `json:"slot"`
	Departure   time.Time       `json:"departure"`
	Delivery    time.Time       `json:"delivery"`
	Quantity    float64         `json:"quantity"`
	Pallets     float64         `json:"pallets,omitempty"`
}

// InventoryLevel is end-of-day stock.
type InventoryLevel struct {
	Node     string             `json:"node"`
	Product  string             `json:"product"`
	State    model.StorageState `json:"state"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
}

// Consumption is demand served from one inventory state.
type Consumption struct {
	Node     string             `json:"node"`
	Product  string             `json:"product"`
	State    model.StorageState `json:"state"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
}

// Shortage is demand left unserved.
type Shortage struct {
	Node     string    `json:"node"`
	Product  string    `json:"product"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// Disposal is expired stock written off.
type Disposal struct {
	Node     string             `json:"node"`
	Product  string             `json:"product"`
	State    model.StorageState `json:"state"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
}

// Transition is stock frozen or thawed on site.
type Transition struct {
	Node     string             `json:"node"`
	Product  string             `json:"product"`
	From     model.StorageState `json:"from"`
	To       model.StorageState `json:"to"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
}

// LaborUsage summarises the labour of one production day.
type LaborUsage struct {
	Node          string    `json:"node"`
	Date          time.Time `json:"date"`
	FixedDay      bool      `json:"fixed_day"`
	Hours         float64   `json:"hours"`
	OvertimeHours float64   `json:"overtime_hours,omitempty"`
	PaidHours     float64   `json:"paid_hours,omitempty"`
	Products      int       `json:"products"`
}

// CostBreakdown reports each cost category rounded to cents.
type CostBreakdown struct {
	Lines map[Category]decimal.Decimal `json:"lines"`
	Total decimal.Decimal              `json:"total"`
}

// Line returns the cost of a category, zero when absent.
func (c CostBreakdown) Line(cat Category) decimal.Decimal {
	if v, ok := c.Lines[cat]; ok {
		return v
	}
	return decimal.Zero
}

// Totals aggregates unit flows over the horizon.
type Totals struct {
	Initial      float64 `json:"initial"`
	Produced     float64 `json:"produced"`
	Demand       float64 `json:"demand"`
	Consumed     float64 `json:"consumed"`
	Shortage     float64 `json:"shortage"`
	Disposed     float64 `json:"disposed"`
	EndInventory float64 `json:"end_inventory"`
	// EndInTransit is shipped stock delivered after the last planning day.
	EndInTransit float64 `json:"end_in_transit"`
}

// FillRate is the share of demand served, one when there is no demand.
func (t Totals) FillRate() float64 {
	if t.Demand <= 0 {
		return 1
	}
	return t.Consumed / t.Demand
}

// Waste is every unit the plan leaves unconsumed.
func (t Totals) Waste() float64 {
	return t.Disposed + t.EndInventory + t.EndInTransit
}

// Solution is the plan extracted from solver values.
type Solution struct {
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Objective   float64           `json:"objective"`
	Production  []ProductionBatch `json:"production"`
	Shipments   []Shipment        `json:"shipments"`
	TruckLoads  []TruckLoad       `json:"truck_loads"`
	Inventory   []InventoryLevel  `json:"inventory"`
	Consumption []Consumption     `json:"consumption"`
	Shortages   []Shortage        `json:"shortages"`
	Disposals   []Disposal        `json:"disposals"`
	Transitions []Transition      `json:"transitions"`
	Labor       []LaborUsage      `json:"labor"`
	Costs       CostBreakdown     `json:"costs"`
	Totals      Totals            `json:"totals"`
}

// InventoryOn returns the stock of (node, product, state) at the end of date.
func (s *Solution) InventoryOn(node, product string, st model.StorageState, date time.Time) float64 {
	date = model.Day(date)
	for _, l := range s.Inventory {
		if l.Node == node && l.Product == product && l.State == st && l.Date.Equal(date) {
			return l.Quantity
		}
	}
	return 0
}

// TotalInventoryOn sums stock of every node, product and state on date.
func (s *Solution) TotalInventoryOn(date time.Time) float64 {
	date = model.Day(date)
	var sum float64
	for _, l := range s.Inventory {
		if l.Date.Equal(date) {
			sum += l.Quantity
		}
	}
	return sum
}
