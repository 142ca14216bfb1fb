package model

import "time"

// Color is the fixed palette an event can be tagged with.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorYellow Color = "yellow"
	ColorPink   Color = "pink"
)

// Colors lists every valid color in display order.
var Colors = []Color{ColorBlue, ColorGreen, ColorRed, ColorPurple, ColorYellow, ColorPink}

// Valid reports whether c is one of the known palette values.
func (c Color) Valid() bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

// RuleKind identifies a recurrence rule variant.
type RuleKind string

const (
	RuleNone    RuleKind = "none"
	RuleDaily   RuleKind = "daily"
	RuleWeekly  RuleKind = "weekly"
	RuleMonthly RuleKind = "monthly"
	RuleCustom  RuleKind = "custom"
)

// Rule is a tagged recurrence rule. Every carries a payload only for
// RuleCustom (the day interval); it is zeroed for every other kind so
// that invalid combinations cannot leak into expansion.
type Rule struct {
	Kind  RuleKind
	Every int
}

// Normalize maps unknown kinds to RuleNone and coerces a non-positive
// custom interval to 1 so that expansion always terminates.
func (r Rule) Normalize() Rule {
	switch r.Kind {
	case RuleDaily, RuleWeekly, RuleMonthly:
		return Rule{Kind: r.Kind}
	case RuleCustom:
		if r.Every < 1 {
			r.Every = 1
		}
		return Rule{Kind: RuleCustom, Every: r.Every}
	default:
		return Rule{Kind: RuleNone}
	}
}

// Recurring reports whether the rule produces occurrences beyond the root.
func (r Rule) Recurring() bool {
	return r.Normalize().Kind != RuleNone
}

// Event is a calendar event. Root events (SeriesRootID empty) are the
// only persisted records; occurrences are derived from a root by
// recurrence expansion and are never written back to storage.
//
// Date and Time are kept in their canonical textual forms ("2006-01-02"
// and "15:04") because they double as identity for conflict detection,
// which compares the strings exactly.
type Event struct {
	ID          string
	Title       string
	Description string
	Date        string // YYYY-MM-DD
	Time        string // HH:mm
	Color       Color
	Rule        Rule
	CreatedAt   time.Time

	// SeriesRootID points at the root this occurrence was derived from.
	// Empty on root events.
	SeriesRootID string
}

// IsOccurrence reports whether e is a derived occurrence rather than a
// persisted root.
func (e Event) IsOccurrence() bool {
	return e.SeriesRootID != ""
}

// Draft carries the user-editable fields of an event for create/update
// commands. ID and CreatedAt are owned by the store.
type Draft struct {
	Title       string
	Description string
	Date        string
	Time        string
	Color       Color
	Rule        Rule
}
