package planning

import (
	"fmt"
	"time"

	"github.com/kilianp07/freshplan/core/model"
)

// Horizon maps planning days to integer offsets. Day 0 is the first planning
// day; negative days lie before the horizon and resolve to the initial
// inventory snapshot.
type Horizon struct {
	First    time.Time
	End      time.Time
	Snapshot time.Time
	Days     int
}

// NewHorizon returns the planning window [max(start, snapshot+1), end]. A zero
// snapshot defaults to the day before start; an older one is rejected since
// stock between the snapshot and start is unknown.
func NewHorizon(start, end, snapshot time.Time) (Horizon, error) {
	start, end = model.Day(start), model.Day(end)
	if snapshot.IsZero() {
		snapshot = model.AddDays(start, -1)
	}
	snapshot = model.Day(snapshot)
	if snapshot.Before(model.AddDays(start, -1)) {
		return Horizon{}, fmt.Errorf("%w: snapshot %s, start %s", ErrStaleSnapshot,
			snapshot.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	first := start
	if next := model.AddDays(snapshot, 1); next.After(first) {
		first = next
	}
	if first.After(end) {
		return Horizon{}, fmt.Errorf("%w: first day %s after end %s", ErrEmptyHorizon,
			first.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return Horizon{
		First:    first,
		End:      end,
		Snapshot: snapshot,
		Days:     model.DaysBetween(first, end) + 1,
	}, nil
}

// Date returns the calendar date of a day offset.
func (h Horizon) Date(day int) time.Time { return model.AddDays(h.First, day) }

// DayOf returns the day offset of a date.
func (h Horizon) DayOf(d time.Time) int { return model.DaysBetween(h.First, d) }

// Contains reports whether day lies inside the horizon.
func (h Horizon) Contains(day int) bool { return day >= 0 && day < h.Days }

// SnapshotDay returns the day offset of the inventory snapshot, -1 or less.
func (h Horizon) SnapshotDay() int { return h.DayOf(h.Snapshot) }

// Last returns the offset of the last planning day.
func (h Horizon) Last() int { return h.Days - 1 }

// ExpiryDay returns the first day on which stock present at the snapshot
// with the given shelf life may be disposed.
func (h Horizon) ExpiryDay(life int) int {
	return h.DayOf(model.AddDays(h.Snapshot, life))
}
