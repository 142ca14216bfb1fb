// Package recur expands a root event into the bounded, ordered sequence
// of concrete occurrences that fall inside a horizon.
package recur

import (
	"fmt"
	"time"

	"calgrid/internal/datemath"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

const (
	// DefaultMaxOccurrences is the hard safety cap on occurrences
	// generated per root. Hitting it truncates silently.
	DefaultMaxOccurrences = 100

	// DefaultHorizonMonths is how far past the root's date expansion
	// runs when the caller does not supply a horizon.
	DefaultHorizonMonths = 12
)

// Config controls how expansion is performed.
type Config struct {
	// Horizon is the last date (inclusive) occurrences may fall on.
	// The zero time means: DefaultHorizonMonths past the root's date.
	Horizon time.Time

	// MaxOccurrences caps the generated occurrences per root.
	// If zero, DefaultMaxOccurrences is used.
	MaxOccurrences int
}

// Result wraps the expanded events and whether the cap was hit.
type Result struct {
	// Events always begins with the root itself, followed by derived
	// occurrences in ascending date order.
	Events    []model.Event
	Truncated bool
}

// Expand generates the series for root within cfg's horizon. The root is
// always the first element of the result; a rule of "none" (or any
// unknown rule) yields the root alone. Each occurrence's date chains off
// the previous occurrence, not off the root, so monthly rollover drift
// compounds (Jan 31 -> Mar 3 -> Apr 3 in a non-leap year). That drift is
// deliberate and must stay reproducible.
func Expand(root model.Event, cfg Config) Result {
	out := Result{Events: []model.Event{root}}

	rule := root.Rule.Normalize()
	if rule.Kind == model.RuleNone {
		return out
	}

	current, err := datemath.ParseDate(root.Date)
	if err != nil {
		appLog.Error("expand: root has unparsable date, skipping expansion", err,
			"event_id", root.ID, "date", root.Date)
		return out
	}

	horizon := cfg.Horizon
	if horizon.IsZero() {
		horizon = datemath.AddMonths(current, DefaultHorizonMonths)
	}
	maxOcc := cfg.MaxOccurrences
	if maxOcc <= 0 {
		maxOcc = DefaultMaxOccurrences
	}

	for k := 1; ; k++ {
		next := step(current, rule)
		if next.After(horizon) {
			break
		}
		if k > maxOcc {
			out.Truncated = true
			appLog.Debug("expand: occurrence cap reached, truncating",
				"event_id", root.ID, "cap", maxOcc)
			break
		}

		occ := root
		occ.ID = fmt.Sprintf("%s-%d", root.ID, k)
		occ.Date = datemath.FormatDate(next)
		occ.SeriesRootID = root.ID
		out.Events = append(out.Events, occ)

		current = next
	}

	return out
}

// step advances one interval according to the (already normalized) rule.
func step(current time.Time, rule model.Rule) time.Time {
	switch rule.Kind {
	case model.RuleDaily:
		return datemath.AddDays(current, 1)
	case model.RuleWeekly:
		return datemath.AddWeeks(current, 1)
	case model.RuleMonthly:
		return datemath.AddMonths(current, 1)
	case model.RuleCustom:
		return datemath.AddDays(current, rule.Every)
	default:
		// Normalize guarantees we never get here; advance a day so a
		// future rule kind cannot loop forever.
		return datemath.AddDays(current, 1)
	}
}
