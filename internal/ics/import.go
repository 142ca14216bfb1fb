package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calgrid/internal/datemath"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Import parses an iCalendar payload into root events. Individual
// VEVENTs that cannot be mapped are logged and skipped; only a payload
// that fails to parse at all is an error.
func Import(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := importVEvent(ve)
		if perr != nil {
			appLog.Error("ics import: skipping vevent", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics import completed", "event_count", len(events))
	return events, nil
}

func importVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.ID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if out.Title == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	start, err := parseICSTime(dtStart.Value)
	if err != nil {
		return out, err
	}
	out.Date = datemath.FormatDate(start)
	out.Time = start.Format(datemath.ClockLayout)

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.Rule = RuleFromRRule(p.Value)
	} else {
		out.Rule = model.Rule{Kind: model.RuleNone}
	}

	out.Color = model.ColorBlue
	if p := ve.GetProperty(ical.ComponentProperty(colorProperty)); p != nil {
		if c := model.Color(p.Value); c.Valid() {
			out.Color = c
		}
	}

	// Raw property name; the constant set varies across library versions.
	if p := ve.GetProperty("CREATED"); p != nil {
		if t, terr := time.Parse("20060102T150405Z", p.Value); terr == nil {
			out.CreatedAt = t
		}
	}

	return out, nil
}

// parseICSTime parses the basic ICS date/date-time forms. A trailing Z
// is honored as UTC; everything else is read as local wall-clock, and
// date-only values land at midnight.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}
