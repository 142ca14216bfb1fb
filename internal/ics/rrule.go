package ics

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"calgrid/internal/model"
)

// RuleToRRule renders a recurrence rule as an iCalendar RRULE value.
// RuleNone has no RRULE representation and yields "".
func RuleToRRule(r model.Rule) string {
	switch rule := r.Normalize(); rule.Kind {
	case model.RuleDaily:
		return "FREQ=DAILY"
	case model.RuleWeekly:
		return "FREQ=WEEKLY"
	case model.RuleMonthly:
		return "FREQ=MONTHLY"
	case model.RuleCustom:
		return fmt.Sprintf("FREQ=DAILY;INTERVAL=%d", rule.Every)
	default:
		return ""
	}
}

// RuleFromRRule maps an RRULE value onto the engine's rule variants.
// Anything the engine cannot represent (YEARLY, BYDAY sets, non-daily
// intervals, unparsable input) degrades to RuleNone rather than failing
// the import.
func RuleFromRRule(raw string) model.Rule {
	none := model.Rule{Kind: model.RuleNone}
	if raw == "" {
		return none
	}

	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return none
	}

	interval := r.Options.Interval
	if interval < 1 {
		interval = 1
	}

	switch r.Options.Freq {
	case rrule.DAILY:
		if interval == 1 {
			return model.Rule{Kind: model.RuleDaily}
		}
		return model.Rule{Kind: model.RuleCustom, Every: interval}
	case rrule.WEEKLY:
		if interval == 1 {
			return model.Rule{Kind: model.RuleWeekly}
		}
		// A multi-week interval is still a fixed day count.
		return model.Rule{Kind: model.RuleCustom, Every: 7 * interval}
	case rrule.MONTHLY:
		if interval == 1 {
			return model.Rule{Kind: model.RuleMonthly}
		}
		return none
	default:
		return none
	}
}
