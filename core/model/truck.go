package model

import (
	"fmt"
	"strings"
	"time"
)

// TruckSlot is the loading slot of a truck departure on a given day.
type TruckSlot int

const (
	NotScheduled TruckSlot = iota
	Morning
	Afternoon
)

// String returns a human-readable representation of the slot.
func (s TruckSlot) String() string {
	switch s {
	case NotScheduled:
		return "not-scheduled"
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	default:
		return "unknown"
	}
}

// MarshalText encodes the slot by name.
func (s TruckSlot) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseTruckSlot converts "morning" or "afternoon" into a TruckSlot.
func ParseTruckSlot(v string) (TruckSlot, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "morning", "am":
		return Morning, nil
	case "afternoon", "pm":
		return Afternoon, nil
	default:
		return NotScheduled, fmt.Errorf("unknown truck slot %q", v)
	}
}

// TruckDeparture is a recurring truck leaving a truck-scheduled origin.
type TruckDeparture struct {
	ID              string
	Origin          string
	Destination     string
	Slot            TruckSlot
	Weekdays        []time.Weekday // empty means every day
	CapacityUnits   float64
	CapacityPallets int
}

// SlotOn returns the slot the truck departs in on date d, or NotScheduled
// when it does not run that day.
func (t TruckDeparture) SlotOn(d time.Time) TruckSlot {
	if t.Slot == NotScheduled {
		return NotScheduled
	}
	if len(t.Weekdays) == 0 {
		return t.Slot
	}
	wd := Day(d).Weekday()
	for _, w := range t.Weekdays {
		if w == wd {
			return t.Slot
		}
	}
	return NotScheduled
}
