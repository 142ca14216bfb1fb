package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calgrid/internal/datemath"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := datemath.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestBuild_CoversWholeMonthInWholeWeeks(t *testing.T) {
	b := Builder{WeekStart: datemath.WeekMonday}

	months := []string{
		"2024-02-15", // leap February
		"2024-05-10",
		"2023-01-01",
		"2023-12-31",
		"2026-08-25",
	}

	for _, m := range months {
		ref := mustDate(t, m)
		cells := b.Build(ref, time.Time{})

		require.NotEmpty(t, cells, "month %s", m)
		assert.Zero(t, len(cells)%7, "length must be a multiple of 7 for %s", m)
		assert.True(t, len(cells) == 35 || len(cells) == 42, "got %d cells for %s", len(cells), m)

		// Every date of the reference month must be present, in order.
		seen := make(map[string]bool, len(cells))
		for i, c := range cells {
			seen[datemath.FormatDate(c.Date)] = true
			if i > 0 {
				assert.Equal(t, c.Date, datemath.AddDays(cells[i-1].Date, 1), "dates must be consecutive")
			}
		}
		for d := datemath.StartOfMonth(ref); !d.After(datemath.EndOfMonth(ref)); d = datemath.AddDays(d, 1) {
			assert.True(t, seen[datemath.FormatDate(d)], "missing %s", datemath.FormatDate(d))
		}
	}
}

func TestBuild_InMonthFlag(t *testing.T) {
	b := Builder{WeekStart: datemath.WeekMonday}
	// May 2024: starts Wednesday, grid runs Apr 29 .. Jun 2.
	cells := b.Build(mustDate(t, "2024-05-01"), time.Time{})

	require.Len(t, cells, 35)
	assert.Equal(t, "2024-04-29", datemath.FormatDate(cells[0].Date))
	assert.False(t, cells[0].InMonth)
	assert.True(t, cells[2].InMonth, "May 1 is in month")
	assert.Equal(t, "2024-06-02", datemath.FormatDate(cells[34].Date))
	assert.False(t, cells[34].InMonth)
}

func TestBuild_TodayAndSelected(t *testing.T) {
	today := mustDate(t, "2024-05-07")
	b := Builder{
		WeekStart: datemath.WeekSunday,
		Now:       func() time.Time { return today },
	}

	cells := b.Build(mustDate(t, "2024-05-01"), mustDate(t, "2024-05-20"))

	var todayCount, selectedCount int
	for _, c := range cells {
		if c.Today {
			todayCount++
			assert.Equal(t, "2024-05-07", datemath.FormatDate(c.Date))
		}
		if c.Selected {
			selectedCount++
			assert.Equal(t, "2024-05-20", datemath.FormatDate(c.Date))
		}
	}
	assert.Equal(t, 1, todayCount)
	assert.Equal(t, 1, selectedCount)
}

func TestBuild_NoSelection(t *testing.T) {
	b := Builder{WeekStart: datemath.WeekMonday}
	for _, c := range b.Build(mustDate(t, "2024-05-01"), time.Time{}) {
		assert.False(t, c.Selected)
	}
}
