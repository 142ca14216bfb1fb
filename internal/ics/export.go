// Package ics bridges the event store to iCalendar: exporting root
// events as VEVENTs with RRULEs, and importing VEVENTs back into root
// events. Recurrence expansion never happens here; the engine owns it.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"calgrid/internal/datemath"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// colorProperty carries the palette color through an export/import
// round trip. Foreign calendars simply ignore it.
const colorProperty = "X-CALGRID-COLOR"

// defaultEventDuration is the block length written for DTEND; the
// engine itself has no notion of event duration.
const defaultEventDuration = time.Hour

// icsLocalLayout is the floating (zone-less) iCalendar date-time form.
const icsLocalLayout = "20060102T150405"

// Export renders the given root events as an iCalendar payload. Derived
// occurrences are skipped: the RRULE carries the series, so exporting
// expanded instances would duplicate them on re-import.
func Export(roots []model.Event) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//calgrid//calendar export//EN")

	for _, ev := range roots {
		if ev.IsOccurrence() {
			continue
		}

		start, err := datemath.ParseDate(ev.Date)
		if err != nil {
			appLog.Error("ics export: skipping event with unparsable date", err,
				"event_id", ev.ID, "date", ev.Date)
			continue
		}
		if clock, cerr := time.ParseInLocation(datemath.ClockLayout, ev.Time, time.Local); cerr == nil {
			start = start.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
		}

		ve := cal.AddEvent(ev.ID)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		// Floating local times, deliberately without Z or TZID: the whole
		// engine is wall-clock and a zone conversion here would shift
		// dates on re-import.
		ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(icsLocalLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, start.Add(defaultEventDuration).Format(icsLocalLayout))
		if !ev.CreatedAt.IsZero() {
			ve.SetCreatedTime(ev.CreatedAt)
		}
		ve.SetDtStampTime(time.Now())
		ve.SetProperty(ical.ComponentProperty(colorProperty), string(ev.Color))

		if rr := RuleToRRule(ev.Rule); rr != "" {
			ve.AddRrule(rr)
		}
	}

	return []byte(cal.Serialize())
}
