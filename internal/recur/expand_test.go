package recur

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calgrid/internal/datemath"
	"calgrid/internal/model"
)

func root(id, date string, rule model.Rule) model.Event {
	return model.Event{
		ID:    id,
		Title: "standup",
		Date:  date,
		Time:  "09:00",
		Color: model.ColorBlue,
		Rule:  rule,
	}
}

func horizon(t *testing.T, s string) time.Time {
	t.Helper()
	h, err := datemath.ParseDate(s)
	require.NoError(t, err)
	return h
}

func TestExpand_NoneReturnsRootOnly(t *testing.T) {
	ev := root("r1", "2024-05-01", model.Rule{Kind: model.RuleNone})

	for _, h := range []string{"2024-05-01", "2024-12-31", "2030-01-01"} {
		res := Expand(ev, Config{Horizon: horizon(t, h)})
		require.Len(t, res.Events, 1)
		assert.Equal(t, ev, res.Events[0])
		assert.False(t, res.Truncated)
	}
}

func TestExpand_UnknownRuleTreatedAsNone(t *testing.T) {
	ev := root("r1", "2024-05-01", model.Rule{Kind: "biweekly-ish"})
	res := Expand(ev, Config{Horizon: horizon(t, "2025-05-01")})
	require.Len(t, res.Events, 1)
}

func TestExpand_DailyCountMatchesHorizonDistance(t *testing.T) {
	ev := root("r1", "2024-05-01", model.Rule{Kind: model.RuleDaily})

	tests := []struct {
		horizon string
		want    int // occurrences excluding the root
	}{
		{"2024-05-01", 0},
		{"2024-05-02", 1},
		{"2024-05-11", 10},
		{"2024-06-01", 31},
	}
	for _, tc := range tests {
		res := Expand(ev, Config{Horizon: horizon(t, tc.horizon)})
		assert.Len(t, res.Events, tc.want+1, "horizon %s", tc.horizon)
		assert.False(t, res.Truncated)
	}
}

func TestExpand_CapTruncatesSilently(t *testing.T) {
	ev := root("r1", "2024-01-01", model.Rule{Kind: model.RuleDaily})

	// A year of dailies would be 366 occurrences; the cap wins.
	res := Expand(ev, Config{Horizon: horizon(t, "2025-01-01")})

	assert.Len(t, res.Events, DefaultMaxOccurrences+1)
	assert.True(t, res.Truncated)
	assert.Equal(t, "2024-04-10", res.Events[len(res.Events)-1].Date, "100 days after Jan 1")
}

func TestExpand_OccurrenceIdentity(t *testing.T) {
	ev := root("r1", "2024-05-01", model.Rule{Kind: model.RuleWeekly})
	res := Expand(ev, Config{Horizon: horizon(t, "2024-05-31")})

	require.Len(t, res.Events, 5) // root + May 8, 15, 22, 29
	assert.Equal(t, "r1", res.Events[0].ID)
	assert.Empty(t, res.Events[0].SeriesRootID)

	for k, occ := range res.Events[1:] {
		assert.Equal(t, fmt.Sprintf("r1-%d", k+1), occ.ID)
		assert.Equal(t, "r1", occ.SeriesRootID)
		assert.Equal(t, ev.Title, occ.Title)
		assert.Equal(t, ev.Time, occ.Time)
		assert.Equal(t, ev.Color, occ.Color)
	}
	assert.Equal(t, "2024-05-29", res.Events[4].Date)
}

func TestExpand_MonthlyDriftCompounds(t *testing.T) {
	// Jan 31 chains through the February rollover: the March occurrence
	// lands on Mar 3 and every later one keeps the drifted day-of-month.
	ev := root("r1", "2023-01-31", model.Rule{Kind: model.RuleMonthly})
	res := Expand(ev, Config{Horizon: horizon(t, "2023-06-30")})

	var dates []string
	for _, e := range res.Events {
		dates = append(dates, e.Date)
	}
	assert.Equal(t, []string{
		"2023-01-31",
		"2023-03-03",
		"2023-04-03",
		"2023-05-03",
		"2023-06-03",
	}, dates)
}

func TestExpand_CustomInterval(t *testing.T) {
	ev := root("r1", "2024-05-01", model.Rule{Kind: model.RuleCustom, Every: 10})
	res := Expand(ev, Config{Horizon: horizon(t, "2024-05-31")})

	var dates []string
	for _, e := range res.Events {
		dates = append(dates, e.Date)
	}
	assert.Equal(t, []string{"2024-05-01", "2024-05-11", "2024-05-21", "2024-05-31"}, dates)
}

func TestExpand_NonPositiveIntervalCoercedToOne(t *testing.T) {
	for _, every := range []int{0, -5} {
		ev := root("r1", "2024-05-01", model.Rule{Kind: model.RuleCustom, Every: every})
		res := Expand(ev, Config{Horizon: horizon(t, "2024-05-04")})

		require.Len(t, res.Events, 4, "every=%d must behave like daily", every)
		assert.Equal(t, "2024-05-04", res.Events[3].Date)
	}
}

func TestExpand_DefaultHorizonIsTwelveMonths(t *testing.T) {
	ev := root("r1", "2024-05-01", model.Rule{Kind: model.RuleMonthly})
	res := Expand(ev, Config{})

	// Root plus one occurrence per month through 2025-05-01.
	require.Len(t, res.Events, 13)
	assert.Equal(t, "2025-05-01", res.Events[12].Date)
}

func TestExpand_BadRootDateYieldsRootOnly(t *testing.T) {
	ev := root("r1", "not-a-date", model.Rule{Kind: model.RuleDaily})
	res := Expand(ev, Config{Horizon: horizon(t, "2024-12-31")})
	require.Len(t, res.Events, 1)
}
