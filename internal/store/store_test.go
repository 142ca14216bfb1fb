package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calgrid/internal/model"
)

func rootEvent(id, title, date, clock string) model.Event {
	return model.Event{
		ID:        id,
		Title:     title,
		Date:      date,
		Time:      clock,
		Color:     model.ColorBlue,
		Rule:      model.Rule{Kind: model.RuleNone},
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local),
	}
}

func TestUpsert_InsertThenOverwrite(t *testing.T) {
	s := New()

	ev := rootEvent("r1", "Dentist", "2024-05-02", "14:00")
	require.NoError(t, s.Upsert(ev))
	assert.Equal(t, 1, s.Len())

	// Full overwrite, not a merge: the description does not survive.
	ev.Description = "bring insurance card"
	require.NoError(t, s.Upsert(ev))

	replacement := rootEvent("r1", "Dentist (moved)", "2024-05-03", "15:00")
	require.NoError(t, s.Upsert(replacement))

	got, ok := s.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "Dentist (moved)", got.Title)
	assert.Empty(t, got.Description)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_ValidationRejectsAndLeavesStoreUntouched(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(rootEvent("r1", "Keep me", "2024-05-02", "14:00")))

	tests := []struct {
		name  string
		ev    model.Event
		field string
	}{
		{"empty title", rootEvent("r2", "", "2024-05-02", "14:00"), "title"},
		{"blank title", rootEvent("r2", "   ", "2024-05-02", "14:00"), "title"},
		{"empty date", rootEvent("r2", "X", "", "14:00"), "date"},
		{"empty time", rootEvent("r2", "X", "2024-05-02", ""), "time"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Upsert(tc.ev)
			require.Error(t, err)

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr, tc.field)

			assert.Equal(t, 1, s.Len(), "store must be unmodified")
			_, ok := s.Get("r2")
			assert.False(t, ok)
		})
	}
}

func TestUpsert_AllFieldsMissingReportsAll(t *testing.T) {
	s := New()
	err := s.Upsert(model.Event{ID: "r1"})

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr, 3)
}

func TestUpsert_NormalizesRuleAndStripsSeriesRef(t *testing.T) {
	s := New()
	ev := rootEvent("r1", "Gym", "2024-05-02", "07:00")
	ev.Rule = model.Rule{Kind: model.RuleCustom, Every: -3}
	ev.SeriesRootID = "bogus"

	require.NoError(t, s.Upsert(ev))

	got, _ := s.Get("r1")
	assert.Equal(t, model.Rule{Kind: model.RuleCustom, Every: 1}, got.Rule)
	assert.Empty(t, got.SeriesRootID)
}

func TestDelete(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(rootEvent("r1", "A", "2024-05-02", "09:00")))
	require.NoError(t, s.Upsert(rootEvent("r2", "B", "2024-05-03", "09:00")))

	s.Delete("r1")
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("r1")
	assert.False(t, ok)

	// Unknown id is a no-op.
	s.Delete("nope")
	assert.Equal(t, 1, s.Len())
}

func TestMove_ChangesOnlyDate(t *testing.T) {
	s := New()
	original := rootEvent("r1", "Dentist", "2024-05-02", "14:00")
	original.Description = "routine checkup"
	require.NoError(t, s.Upsert(original))
	require.NoError(t, s.Upsert(rootEvent("r2", "Untouched", "2024-05-09", "10:00")))

	s.Move("r1", "2024-05-10")

	got, _ := s.Get("r1")
	assert.Equal(t, "2024-05-10", got.Date)
	assert.Equal(t, "14:00", got.Time)
	assert.Equal(t, "Dentist", got.Title)
	assert.Equal(t, "routine checkup", got.Description)
	assert.Equal(t, original.CreatedAt, got.CreatedAt)

	other, _ := s.Get("r2")
	assert.Equal(t, "2024-05-09", other.Date, "no other event is affected")

	// Unknown id is a no-op.
	s.Move("nope", "2024-06-01")
	assert.Equal(t, 2, s.Len())
}

func TestRoots_InsertionOrderStable(t *testing.T) {
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(rootEvent(id, "T "+id, "2024-05-02", "09:00")))
	}

	roots := s.Roots()
	require.Len(t, roots, 3)
	assert.Equal(t, "c", roots[0].ID)
	assert.Equal(t, "a", roots[1].ID)
	assert.Equal(t, "b", roots[2].ID)
}

func TestReplace_DropsOccurrenceRecords(t *testing.T) {
	s := New()
	occ := rootEvent("r1-1", "Stray", "2024-05-02", "09:00")
	occ.SeriesRootID = "r1"

	s.Replace([]model.Event{
		rootEvent("r1", "Root", "2024-05-02", "09:00"),
		occ,
	})

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("r1-1")
	assert.False(t, ok)
}
