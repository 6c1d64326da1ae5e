package model

import (
	"math"
	"time"
)

// Day truncates t to midnight UTC. Every date used by the planner is a Day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d.
func AddDays(d time.Time, n int) time.Time {
	return Day(d).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// CeilDays rounds a fractional transit duration up to whole days.
func CeilDays(days float64) int {
	if days <= 0 {
		return 0
	}
	return int(math.Ceil(days - 1e-9))
}
