package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calgrid/internal/model"
)

func TestRuleToRRule(t *testing.T) {
	tests := []struct {
		rule model.Rule
		want string
	}{
		{model.Rule{Kind: model.RuleNone}, ""},
		{model.Rule{Kind: model.RuleDaily}, "FREQ=DAILY"},
		{model.Rule{Kind: model.RuleWeekly}, "FREQ=WEEKLY"},
		{model.Rule{Kind: model.RuleMonthly}, "FREQ=MONTHLY"},
		{model.Rule{Kind: model.RuleCustom, Every: 3}, "FREQ=DAILY;INTERVAL=3"},
		{model.Rule{Kind: model.RuleCustom, Every: 0}, "FREQ=DAILY;INTERVAL=1"},
		{model.Rule{Kind: "mystery"}, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RuleToRRule(tc.rule), "rule %+v", tc.rule)
	}
}

func TestRuleFromRRule(t *testing.T) {
	tests := []struct {
		raw  string
		want model.Rule
	}{
		{"", model.Rule{Kind: model.RuleNone}},
		{"FREQ=DAILY", model.Rule{Kind: model.RuleDaily}},
		{"FREQ=DAILY;INTERVAL=1", model.Rule{Kind: model.RuleDaily}},
		{"FREQ=DAILY;INTERVAL=4", model.Rule{Kind: model.RuleCustom, Every: 4}},
		{"FREQ=WEEKLY", model.Rule{Kind: model.RuleWeekly}},
		{"FREQ=WEEKLY;INTERVAL=2", model.Rule{Kind: model.RuleCustom, Every: 14}},
		{"FREQ=MONTHLY", model.Rule{Kind: model.RuleMonthly}},
		{"FREQ=MONTHLY;INTERVAL=2", model.Rule{Kind: model.RuleNone}},
		{"FREQ=YEARLY", model.Rule{Kind: model.RuleNone}},
		{"definitely not an rrule", model.Rule{Kind: model.RuleNone}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RuleFromRRule(tc.raw), "rrule %q", tc.raw)
	}
}

func sampleRoots() []model.Event {
	return []model.Event{
		{
			ID:          "r1",
			Title:       "Standup",
			Description: "daily sync",
			Date:        "2024-05-01",
			Time:        "09:00",
			Color:       model.ColorGreen,
			Rule:        model.Rule{Kind: model.RuleDaily},
			CreatedAt:   time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC),
		},
		{
			ID:    "r2",
			Title: "Rent",
			Date:  "2024-05-25",
			Time:  "00:00",
			Color: model.ColorYellow,
			Rule:  model.Rule{Kind: model.RuleNone},
		},
	}
}

func TestExport_EmitsVEventsWithRRules(t *testing.T) {
	payload := string(Export(sampleRoots()))

	assert.Contains(t, payload, "BEGIN:VCALENDAR")
	assert.Contains(t, payload, "UID:r1")
	assert.Contains(t, payload, "SUMMARY:Standup")
	assert.Contains(t, payload, "RRULE:FREQ=DAILY")
	assert.Contains(t, payload, "UID:r2")
	// Non-recurring events carry no RRULE.
	assert.Equal(t, 1, strings.Count(payload, "RRULE:"))
}

func TestExport_SkipsOccurrences(t *testing.T) {
	occ := model.Event{
		ID: "r1-2", Title: "Standup", Date: "2024-05-03", Time: "09:00",
		SeriesRootID: "r1",
	}
	payload := string(Export(append(sampleRoots(), occ)))
	assert.NotContains(t, payload, "UID:r1-2")
}

func TestExportImport_Roundtrip(t *testing.T) {
	got, err := Import(Export(sampleRoots()))
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]model.Event{got[0].ID: got[0], got[1].ID: got[1]}

	r1 := byID["r1"]
	assert.Equal(t, "Standup", r1.Title)
	assert.Equal(t, "daily sync", r1.Description)
	assert.Equal(t, "2024-05-01", r1.Date)
	assert.Equal(t, "09:00", r1.Time)
	assert.Equal(t, model.ColorGreen, r1.Color)
	assert.Equal(t, model.Rule{Kind: model.RuleDaily}, r1.Rule)

	r2 := byID["r2"]
	assert.Equal(t, model.Rule{Kind: model.RuleNone}, r2.Rule)
	assert.Equal(t, model.ColorYellow, r2.Color)
}

func TestImport_SkipsBrokenVEvents(t *testing.T) {
	payload := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:good-1",
		"SUMMARY:Works",
		"DTSTART:20240501T090000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:no-summary",
		"DTSTART:20240501T090000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	got, err := Import([]byte(payload))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good-1", got[0].ID)
	assert.Equal(t, model.ColorBlue, got[0].Color, "missing color falls back to blue")
}

func TestImport_EmptyBody(t *testing.T) {
	_, err := Import(nil)
	assert.Error(t, err)
}
