// Package filter holds the text/color predicate applied to materialized
// events before they reach the grid and the conflict scan.
package filter

import (
	"strings"

	"calgrid/internal/model"
)

// ColorAll disables color filtering.
const ColorAll = "all"

// Matches reports whether ev passes the search text and color filter.
// An empty search matches every event; otherwise the search is a
// case-insensitive substring match against title or description. The
// color filter matches exactly, or passes everything when set to
// ColorAll (or left empty).
func Matches(ev model.Event, search, color string) bool {
	if search != "" {
		needle := strings.ToLower(search)
		if !strings.Contains(strings.ToLower(ev.Title), needle) &&
			!strings.Contains(strings.ToLower(ev.Description), needle) {
			return false
		}
	}
	if color != "" && color != ColorAll && string(ev.Color) != color {
		return false
	}
	return true
}

// Apply returns the events that pass Matches, preserving input order.
func Apply(events []model.Event, search, color string) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if Matches(ev, search, color) {
			out = append(out, ev)
		}
	}
	return out
}
