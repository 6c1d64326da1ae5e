package model

import "time"

// LaborDay defines the labour cost curve of one production day.
type LaborDay struct {
	Date             time.Time
	IsFixedDay       bool    // weekday with pre-committed hours
	FixedHours       float64 // hours paid at RegularRate
	RegularRate      float64
	OvertimeRate     float64
	MaxOvertimeHours float64
	NonFixedRate     float64 // flat rate on weekends and holidays
	MinimumHours     float64 // minimum paid hours when a non-fixed day is worked
	MaxHours         float64 // capacity of a non-fixed day, 0 uses the planner default
}

// Capacity returns the maximum labour hours of the day given the default
// non-fixed cap.
func (l LaborDay) Capacity(defaultMax float64) float64 {
	if l.IsFixedDay {
		return l.FixedHours + l.MaxOvertimeHours
	}
	if l.MaxHours > 0 {
		return l.MaxHours
	}
	return defaultMax
}

// LaborCalendar lists labour days. Days absent from the calendar have no
// production capacity.
type LaborCalendar []LaborDay

// On returns the labour day for date d.
func (c LaborCalendar) On(d time.Time) (LaborDay, bool) {
	d = Day(d)
	for _, l := range c {
		if Day(l.Date).Equal(d) {
			return l, true
		}
	}
	return LaborDay{}, false
}
