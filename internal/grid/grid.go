// Package grid builds the month view day-grid: the ordered run of dates
// from the start of the week containing the 1st of the reference month
// through the end of the week containing its last day.
package grid

import (
	"time"

	"calgrid/internal/datemath"
)

// Cell is a single day slot in the month grid.
type Cell struct {
	Date     time.Time
	InMonth  bool // date falls inside the reference month
	Today    bool
	Selected bool
}

// Builder produces month grids. Now is injectable so that "today"
// highlighting is testable; when nil, time.Now is used.
type Builder struct {
	WeekStart datemath.WeekStart
	Now       func() time.Time
}

// Build returns the grid cells for the month containing reference, in
// ascending date order. The result length is always a multiple of 7
// (35 or 42 cells). selected marks at most one cell; pass the zero
// time for no selection.
func (b Builder) Build(reference, selected time.Time) []Cell {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	today := now()

	first := datemath.StartOfWeek(datemath.StartOfMonth(reference), b.WeekStart)
	last := datemath.EndOfWeek(datemath.EndOfMonth(reference), b.WeekStart)

	cells := make([]Cell, 0, 42)
	for d := first; !d.After(last); d = datemath.AddDays(d, 1) {
		cells = append(cells, Cell{
			Date:     d,
			InMonth:  d.Month() == reference.Month() && d.Year() == reference.Year(),
			Today:    datemath.SameDay(d, today),
			Selected: !selected.IsZero() && datemath.SameDay(d, selected),
		})
	}
	return cells
}
