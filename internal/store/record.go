package store

import (
	"time"

	"calgrid/internal/datemath"
	"calgrid/internal/model"
)

// record is the serialized shape of a root event as stored by the
// persistence drivers. The whole root set is one JSON array of these
// under a single storage key.
type record struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"` // YYYY-MM-DD
	Time           string `json:"time"` // HH:mm
	Description    string `json:"description"`
	Color          string `json:"color"`
	Recurrence     string `json:"recurrence"`
	CustomInterval int    `json:"customInterval,omitempty"`
	Datetime       string `json:"datetime"` // YYYY-MM-DDTHH:mm, derived
	CreatedAt      string `json:"createdAt"`
	IsRecurring    bool   `json:"isRecurring"`
	ParentID       string `json:"parentId,omitempty"`
}

func toRecord(ev model.Event) record {
	rule := ev.Rule.Normalize()
	rec := record{
		ID:          ev.ID,
		Title:       ev.Title,
		Date:        ev.Date,
		Time:        ev.Time,
		Description: ev.Description,
		Color:       string(ev.Color),
		Recurrence:  string(rule.Kind),
		Datetime:    ev.Date + "T" + ev.Time,
		CreatedAt:   ev.CreatedAt.Format(time.RFC3339),
		IsRecurring: rule.Kind != model.RuleNone,
		ParentID:    ev.SeriesRootID,
	}
	if rule.Kind == model.RuleCustom {
		rec.CustomInterval = rule.Every
	}
	return rec
}

func fromRecord(rec record) model.Event {
	rule := model.Rule{Kind: model.RuleKind(rec.Recurrence), Every: rec.CustomInterval}

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	color := model.Color(rec.Color)
	if !color.Valid() {
		color = model.ColorBlue
	}

	ev := model.Event{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		Date:         rec.Date,
		Time:         rec.Time,
		Color:        color,
		Rule:         rule.Normalize(),
		CreatedAt:    createdAt,
		SeriesRootID: rec.ParentID,
	}

	// Older records may carry only the combined datetime.
	if ev.Date == "" && len(rec.Datetime) >= len(datemath.DateLayout) {
		ev.Date = rec.Datetime[:len(datemath.DateLayout)]
	}
	return ev
}
