// Package conflict scans a materialized event set for same-day,
// same-time collisions.
package conflict

import (
	"sort"

	"calgrid/internal/model"
)

// Find returns the ids of every event that shares both date and time
// with at least one other event in visible. Times are compared by exact
// string equality on the canonical "HH:mm" form. The scan is a pure
// function of its input; callers rerun it whenever the visible set
// changes.
func Find(visible []model.Event) map[string]bool {
	byDate := make(map[string][]model.Event)
	for _, ev := range visible {
		byDate[ev.Date] = append(byDate[ev.Date], ev)
	}

	conflicts := make(map[string]bool)
	for _, group := range byDate {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if group[i].Time == group[j].Time {
					conflicts[group[i].ID] = true
					conflicts[group[j].ID] = true
				}
			}
		}
	}
	return conflicts
}

// IDs flattens a conflict set into a sorted slice for stable output.
func IDs(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
