// Package datemath provides pure calendar-date arithmetic for the
// scheduling engine. All values are local wall-clock dates; there is no
// timezone conversion anywhere in this package.
package datemath

import (
	"strings"
	"time"
)

const (
	// DateLayout is the canonical textual form of a calendar date.
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical textual form of a wall-clock time.
	ClockLayout = "15:04"
	// DateTimeLayout is the combined form used by the persistence record.
	DateTimeLayout = "2006-01-02T15:04"
)

// WeekStart selects which weekday is index 0 in calendar views.
type WeekStart int

const (
	WeekMonday WeekStart = iota
	WeekSunday
)

// ParseWeekStart maps a config string to a WeekStart. Unknown values
// fall back to monday to avoid surprising layouts.
func ParseWeekStart(s string) WeekStart {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return WeekSunday
	}
	return WeekMonday
}

// ParseDate parses a canonical YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// FormatDate renders a date string in the canonical YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Format renders t using a token pattern built from YYYY, MM, DD, HH
// and mm. MM and DD are always zero-padded to two digits.
func Format(t time.Time, pattern string) string {
	r := strings.NewReplacer(
		"YYYY", "2006",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
	)
	return t.Format(r.Replace(pattern))
}

// SameDay reports whether a and b fall on the same calendar date.
// Time-of-day is ignored.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// AddDays returns t shifted by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddWeeks returns t shifted by n*7 calendar days.
func AddWeeks(t time.Time, n int) time.Time {
	return AddDays(t, 7*n)
}

// AddMonths returns t shifted by n months. When the original day-of-month
// exceeds the length of the target month, the excess days roll forward
// into the following month rather than clamping: Jan 31 + 1 month is
// Mar 3 in a non-leap year (Feb 28 + 3 overflow days). Recurrence
// expansion chains off this behavior, so it must not change.
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns midnight on the last day of t's month. Day
// precision is all the grid needs; no sub-day instant is tracked.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in t's month, leap-year aware.
func DaysInMonth(t time.Time) int {
	return EndOfMonth(t).Day()
}

// WeekdayIndex returns the index of t's weekday with 0 being the
// configured first day of the week.
func WeekdayIndex(t time.Time, ws WeekStart) int {
	wd := int(t.Weekday()) // Sunday = 0
	if ws == WeekMonday {
		return (wd + 6) % 7
	}
	return wd
}

// FirstWeekdayOfMonth returns the weekday index (per ws) of the first
// day of t's month.
func FirstWeekdayOfMonth(t time.Time, ws WeekStart) int {
	return WeekdayIndex(StartOfMonth(t), ws)
}

// StartOfWeek returns midnight on the first day of the week containing t.
func StartOfWeek(t time.Time, ws WeekStart) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return AddDays(day, -WeekdayIndex(day, ws))
}

// EndOfWeek returns midnight on the last day of the week containing t.
func EndOfWeek(t time.Time, ws WeekStart) time.Time {
	return AddDays(StartOfWeek(t, ws), 6)
}
