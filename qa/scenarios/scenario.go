// Package scenarios loads planning scenarios from YAML, JSON or TOML files
// and turns them into engine inputs.
package scenarios

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DateLayout is the date format used in scenario files.
const DateLayout = "2006-01-02"

type ProductDef struct {
	ID             string         `yaml:"id" json:"id" toml:"id"`
	UnitsPerPallet float64        `yaml:"units_per_pallet,omitempty" json:"units_per_pallet,omitempty" toml:"units_per_pallet,omitempty"`
	ShelfLifeDays  map[string]int `yaml:"shelf_life_days,omitempty" json:"shelf_life_days,omitempty" toml:"shelf_life_days,omitempty"`
}

type ManufacturingDef struct {
	UnitsPerHour         float64 `yaml:"units_per_hour" json:"units_per_hour" toml:"units_per_hour"`
	ChangeoverHours      float64 `yaml:"changeover_hours,omitempty" json:"changeover_hours,omitempty" toml:"changeover_hours,omitempty"`
	ChangeoverWasteUnits float64 `yaml:"changeover_waste_units,omitempty" json:"changeover_waste_units,omitempty" toml:"changeover_waste_units,omitempty"`
}

type NodeDef struct {
	ID            string             `yaml:"id" json:"id" toml:"id"`
	Name          string             `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`
	Storage       string             `yaml:"storage" json:"storage" toml:"storage"`
	Manufacturing *ManufacturingDef  `yaml:"manufacturing,omitempty" json:"manufacturing,omitempty" toml:"manufacturing,omitempty"`
	Demand        bool               `yaml:"demand,omitempty" json:"demand,omitempty" toml:"demand,omitempty"`
	TruckSchedule bool               `yaml:"truck_schedule,omitempty" json:"truck_schedule,omitempty" toml:"truck_schedule,omitempty"`
	HoldingCost   map[string]float64 `yaml:"holding_cost,omitempty" json:"holding_cost,omitempty" toml:"holding_cost,omitempty"`
}

type RouteDef struct {
	Origin      string  `yaml:"origin" json:"origin" toml:"origin"`
	Destination string  `yaml:"destination" json:"destination" toml:"destination"`
	TransitDays float64 `yaml:"transit_days" json:"transit_days" toml:"transit_days"`
	Mode        string  `yaml:"mode,omitempty" json:"mode,omitempty" toml:"mode,omitempty"`
	CostPerUnit float64 `yaml:"cost_per_unit,omitempty" json:"cost_per_unit,omitempty" toml:"cost_per_unit,omitempty"`
}

type TruckDef struct {
	ID              string   `yaml:"id" json:"id" toml:"id"`
	Origin          string   `yaml:"origin" json:"origin" toml:"origin"`
	Destination     string   `yaml:"destination" json:"destination" toml:"destination"`
	Slot            string   `yaml:"slot" json:"slot" toml:"slot"`
	Weekdays        []string `yaml:"weekdays,omitempty" json:"weekdays,omitempty" toml:"weekdays,omitempty"`
	CapacityUnits   float64  `yaml:"capacity_units,omitempty" json:"capacity_units,omitempty" toml:"capacity_units,omitempty"`
	CapacityPallets int      `yaml:"capacity_pallets,omitempty" json:"capacity_pallets,omitempty" toml:"capacity_pallets,omitempty"`
}

type DemandDef struct {
	Node     string  `yaml:"node" json:"node" toml:"node"`
	Product  string  `yaml:"product" json:"product" toml:"product"`
	Date     string  `yaml:"date" json:"date" toml:"date"`
	Quantity float64 `yaml:"quantity" json:"quantity" toml:"quantity"`
}

type InventoryDef struct {
	Node     string  `yaml:"node" json:"node" toml:"node"`
	Product  string  `yaml:"product" json:"product" toml:"product"`
	State    string  `yaml:"state" json:"state" toml:"state"`
	Quantity float64 `yaml:"quantity" json:"quantity" toml:"quantity"`
}

// LaborDef is one explicit labour calendar entry.
type LaborDef struct {
	Date             string  `yaml:"date" json:"date" toml:"date"`
	Fixed            bool    `yaml:"fixed" json:"fixed" toml:"fixed"`
	FixedHours       float64 `yaml:"fixed_hours,omitempty" json:"fixed_hours,omitempty" toml:"fixed_hours,omitempty"`
	RegularRate      float64 `yaml:"regular_rate,omitempty" json:"regular_rate,omitempty" toml:"regular_rate,omitempty"`
	OvertimeRate     float64 `yaml:"overtime_rate,omitempty" json:"overtime_rate,omitempty" toml:"overtime_rate,omitempty"`
	MaxOvertimeHours float64 `yaml:"max_overtime_hours,omitempty" json:"max_overtime_hours,omitempty" toml:"max_overtime_hours,omitempty"`
	NonFixedRate     float64 `yaml:"non_fixed_rate,omitempty" json:"non_fixed_rate,omitempty" toml:"non_fixed_rate,omitempty"`
	MinimumHours     float64 `yaml:"minimum_hours,omitempty" json:"minimum_hours,omitempty" toml:"minimum_hours,omitempty"`
	MaxHours         float64 `yaml:"max_hours,omitempty" json:"max_hours,omitempty" toml:"max_hours,omitempty"`
}

// LaborPattern fills every horizon day without an explicit labour entry.
// FixedWeekdays defaults to Monday through Friday.
type LaborPattern struct {
	FixedWeekdays    []string `yaml:"fixed_weekdays,omitempty" json:"fixed_weekdays,omitempty" toml:"fixed_weekdays,omitempty"`
	FixedHours       float64  `yaml:"fixed_hours" json:"fixed_hours" toml:"fixed_hours"`
	RegularRate      float64  `yaml:"regular_rate" json:"regular_rate" toml:"regular_rate"`
	OvertimeRate     float64  `yaml:"overtime_rate,omitempty" json:"overtime_rate,omitempty" toml:"overtime_rate,omitempty"`
	MaxOvertimeHours float64  `yaml:"max_overtime_hours,omitempty" json:"max_overtime_hours,omitempty" toml:"max_overtime_hours,omitempty"`
	NonFixedRate     float64  `yaml:"non_fixed_rate,omitempty" json:"non_fixed_rate,omitempty" toml:"non_fixed_rate,omitempty"`
	MinimumHours     float64  `yaml:"minimum_hours,omitempty" json:"minimum_hours,omitempty" toml:"minimum_hours,omitempty"`
	MaxHours         float64  `yaml:"max_hours,omitempty" json:"max_hours,omitempty" toml:"max_hours,omitempty"`
	// Weekends leaves non-fixed days out of the calendar when false.
	Weekends bool `yaml:"weekends,omitempty" json:"weekends,omitempty" toml:"weekends,omitempty"`
}

type CostDef struct {
	ProductionCostPerUnit      float64            `yaml:"production_cost_per_unit" json:"production_cost_per_unit" toml:"production_cost_per_unit"`
	WasteMultiplier            float64            `yaml:"waste_multiplier" json:"waste_multiplier" toml:"waste_multiplier"`
	ShortagePenaltyPerUnit     float64            `yaml:"shortage_penalty_per_unit" json:"shortage_penalty_per_unit" toml:"shortage_penalty_per_unit"`
	PalletEntryCost            map[string]float64 `yaml:"pallet_entry_cost,omitempty" json:"pallet_entry_cost,omitempty" toml:"pallet_entry_cost,omitempty"`
	ChangeoverCost             float64            `yaml:"changeover_cost,omitempty" json:"changeover_cost,omitempty" toml:"changeover_cost,omitempty"`
	ChangeoverWasteCostPerUnit float64            `yaml:"changeover_waste_cost_per_unit,omitempty" json:"changeover_waste_cost_per_unit,omitempty" toml:"changeover_waste_cost_per_unit,omitempty"`
}

// ParamsDef overrides planner parameters. Zero values keep the defaults.
type ParamsDef struct {
	AmbientShelfLifeDays     int     `yaml:"ambient_shelf_life_days,omitempty" json:"ambient_shelf_life_days,omitempty" toml:"ambient_shelf_life_days,omitempty"`
	FrozenShelfLifeDays      int     `yaml:"frozen_shelf_life_days,omitempty" json:"frozen_shelf_life_days,omitempty" toml:"frozen_shelf_life_days,omitempty"`
	ThawedShelfLifeDays      int     `yaml:"thawed_shelf_life_days,omitempty" json:"thawed_shelf_life_days,omitempty" toml:"thawed_shelf_life_days,omitempty"`
	UnitsPerPallet           float64 `yaml:"units_per_pallet,omitempty" json:"units_per_pallet,omitempty" toml:"units_per_pallet,omitempty"`
	DefaultUnitsPerHour      float64 `yaml:"default_units_per_hour,omitempty" json:"default_units_per_hour,omitempty" toml:"default_units_per_hour,omitempty"`
	MaxNonFixedHours         float64 `yaml:"max_non_fixed_hours,omitempty" json:"max_non_fixed_hours,omitempty" toml:"max_non_fixed_hours,omitempty"`
	IntegerPallets           bool    `yaml:"integer_pallets,omitempty" json:"integer_pallets,omitempty" toml:"integer_pallets,omitempty"`
	AllowPostHorizonArrivals bool    `yaml:"allow_post_horizon_arrivals,omitempty" json:"allow_post_horizon_arrivals,omitempty" toml:"allow_post_horizon_arrivals,omitempty"`
}

// Expected describes the outcome a scenario must reach.
type Expected struct {
	Status      string   `yaml:"status,omitempty" json:"status,omitempty" toml:"status,omitempty"`
	MaxShortage *float64 `yaml:"max_shortage,omitempty" json:"max_shortage,omitempty" toml:"max_shortage,omitempty"`
	MinFillRate float64  `yaml:"min_fill_rate,omitempty" json:"min_fill_rate,omitempty" toml:"min_fill_rate,omitempty"`
}

type Scenario struct {
	Name         string         `yaml:"name" json:"name" toml:"name"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Start        string         `yaml:"start" json:"start" toml:"start"`
	End          string         `yaml:"end" json:"end" toml:"end"`
	Snapshot     string         `yaml:"snapshot,omitempty" json:"snapshot,omitempty" toml:"snapshot,omitempty"`
	Params       ParamsDef      `yaml:"params,omitempty" json:"params,omitempty" toml:"params,omitempty"`
	Products     []ProductDef   `yaml:"products" json:"products" toml:"products"`
	Nodes        []NodeDef      `yaml:"nodes" json:"nodes" toml:"nodes"`
	Routes       []RouteDef     `yaml:"routes" json:"routes" toml:"routes"`
	Trucks       []TruckDef     `yaml:"trucks,omitempty" json:"trucks,omitempty" toml:"trucks,omitempty"`
	Demand       []DemandDef    `yaml:"demand" json:"demand" toml:"demand"`
	Inventory    []InventoryDef `yaml:"inventory,omitempty" json:"inventory,omitempty" toml:"inventory,omitempty"`
	Labor        []LaborDef     `yaml:"labor,omitempty" json:"labor,omitempty" toml:"labor,omitempty"`
	LaborPattern *LaborPattern  `yaml:"labor_pattern,omitempty" json:"labor_pattern,omitempty" toml:"labor_pattern,omitempty"`
	Costs        CostDef        `yaml:"costs" json:"costs" toml:"costs"`
	Expected     Expected       `yaml:"expected,omitempty" json:"expected,omitempty" toml:"expected,omitempty"`
}

// Load reads a scenario file. The format is chosen by extension.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &sc)
	case ".json":
		err = json.Unmarshal(data, &sc)
	case ".toml":
		err = toml.Unmarshal(data, &sc)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &sc, nil
}
