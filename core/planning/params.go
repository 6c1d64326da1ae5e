package planning

import (
	"fmt"

	"github.com/kilianp07/freshplan/core/model"
)

// Params gathers the numeric constants shared by every constraint generator.
// It is built once per run and passed by value.
type Params struct {
	AmbientShelfLifeDays int     `json:"ambient_shelf_life_days"`
	FrozenShelfLifeDays  int     `json:"frozen_shelf_life_days"`
	ThawedShelfLifeDays  int     `json:"thawed_shelf_life_days"`
	UnitsPerPallet       float64 `json:"units_per_pallet"`
	DefaultUnitsPerHour  float64 `json:"default_units_per_hour"`
	// MaxNonFixedHours caps labour on days without fixed hours when the
	// calendar does not set a cap.
	MaxNonFixedHours float64 `json:"max_non_fixed_hours"`
	// IntegerPallets charges partially filled pallets a full truck slot and a
	// full pallet entry.
	IntegerPallets bool `json:"integer_pallets"`
	// AllowPostHorizonArrivals keeps departures delivering after the last
	// planning day. Their quantity is priced as waste.
	AllowPostHorizonArrivals bool `json:"allow_post_horizon_arrivals"`
	// Tolerance is the absolute slack used when verifying a solved plan.
	Tolerance float64 `json:"tolerance"`
}

// DefaultParams returns the planner defaults.
func DefaultParams() Params {
	return Params{
		AmbientShelfLifeDays: 17,
		FrozenShelfLifeDays:  120,
		ThawedShelfLifeDays:  14,
		UnitsPerPallet:       320,
		DefaultUnitsPerHour:  1400,
		MaxNonFixedHours:     14,
		Tolerance:            1e-3,
	}
}

// SetDefaults fills zero values from DefaultParams.
func (p *Params) SetDefaults() {
	d := DefaultParams()
	if p.AmbientShelfLifeDays == 0 {
		p.AmbientShelfLifeDays = d.AmbientShelfLifeDays
	}
	if p.FrozenShelfLifeDays == 0 {
		p.FrozenShelfLifeDays = d.FrozenShelfLifeDays
	}
	if p.ThawedShelfLifeDays == 0 {
		p.ThawedShelfLifeDays = d.ThawedShelfLifeDays
	}
	if p.UnitsPerPallet == 0 {
		p.UnitsPerPallet = d.UnitsPerPallet
	}
	if p.DefaultUnitsPerHour == 0 {
		p.DefaultUnitsPerHour = d.DefaultUnitsPerHour
	}
	if p.MaxNonFixedHours == 0 {
		p.MaxNonFixedHours = d.MaxNonFixedHours
	}
	if p.Tolerance == 0 {
		p.Tolerance = d.Tolerance
	}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	for _, st := range model.AllStates {
		if p.ShelfLife(st) <= 0 {
			return fmt.Errorf("%w: %s shelf life must be positive", ErrInvalidParams, st)
		}
	}
	if p.UnitsPerPallet <= 0 {
		return fmt.Errorf("%w: units per pallet must be positive", ErrInvalidParams)
	}
	if p.DefaultUnitsPerHour <= 0 {
		return fmt.Errorf("%w: default production rate must be positive", ErrInvalidParams)
	}
	if p.MaxNonFixedHours < 0 {
		return fmt.Errorf("%w: max non-fixed hours is negative", ErrInvalidParams)
	}
	if p.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidParams)
	}
	return nil
}

// ShelfLife returns the default shelf life of state st in days.
func (p Params) ShelfLife(st model.StorageState) int {
	switch st {
	case model.Ambient:
		return p.AmbientShelfLifeDays
	case model.Frozen:
		return p.FrozenShelfLifeDays
	case model.Thawed:
		return p.ThawedShelfLifeDays
	default:
		return 0
	}
}

// LifeOf returns the shelf life of a product in state st.
func (p Params) LifeOf(prod model.Product, st model.StorageState) int {
	return prod.ShelfLife(st, p.ShelfLife(st))
}

// PalletUnits returns the pallet size of a product.
func (p Params) PalletUnits(prod model.Product) float64 {
	return prod.PalletUnits(p.UnitsPerPallet)
}
