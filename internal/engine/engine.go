// Package engine owns the mutable calendar state and the fixed
// recompute pipeline: grid, then occurrences, then the visible set,
// then conflicts. Commands come in from the UI boundary; each committed
// mutation is followed by one save through the persistence collaborator
// and one recompute of the derived views.
package engine

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"calgrid/internal/conflict"
	"calgrid/internal/datemath"
	"calgrid/internal/filter"
	"calgrid/internal/grid"
	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/model"
	"calgrid/internal/recur"
	"calgrid/internal/store"
)

// ViewHorizonMonths is how far past the visible month occurrences are
// materialized for the calendar view.
const ViewHorizonMonths = 6

// ErrOccurrenceNotMovable is returned when a drag targets a derived
// occurrence. Occurrences have no persisted identity, so moving one
// would be silently undone on the next recompute; the UI is told to
// refuse the gesture instead.
var ErrOccurrenceNotMovable = errors.New("derived occurrences cannot be moved; move the series root instead")

// Snapshot is the derived output handed to the UI after every command.
type Snapshot struct {
	Month        time.Time
	Cells        []grid.Cell
	EventsByDate map[string][]model.Event
	Conflicts    []string
	// TruncatedRoots lists roots whose expansion hit the occurrence cap.
	TruncatedRoots []string
}

// Options configures a new Engine. Zero values are usable: no
// persistence, no metrics, monday weeks, real clock.
type Options struct {
	WeekStart datemath.WeekStart
	Persister store.Persister
	Metrics   *metrics.Set
	Now       func() time.Time
}

// Engine applies commands and recomputes the derived views. All methods
// are safe for concurrent use; internally there is exactly one logical
// thread of control.
type Engine struct {
	mu      sync.Mutex
	roots   *store.Store
	persist store.Persister
	met     *metrics.Set
	builder grid.Builder
	now     func() time.Time

	visibleMonth time.Time
	selectedDate time.Time
	searchText   string
	colorFilter  string
	dragID       string
	dirty        bool

	snap Snapshot
}

// New builds an Engine viewing the current month.
func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		roots:   store.New(),
		persist: opts.Persister,
		met:     opts.Metrics,
		builder: grid.Builder{WeekStart: opts.WeekStart, Now: now},
		now:     now,
	}
	e.visibleMonth = datemath.StartOfMonth(now())
	e.recompute()
	return e
}

// Load pulls the persisted root set in through the persistence
// collaborator. Called once at startup; a corrupt payload has already
// been degraded to an empty set by the driver.
func (e *Engine) Load() error {
	if e.persist == nil {
		return nil
	}
	roots, err := e.persist.Load()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.roots.Replace(roots)
	e.recompute()
	appLog.Info("event store loaded", "root_count", e.roots.Len())
	return nil
}

// Snapshot returns the current derived view state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Roots returns the persisted root events, for export.
func (e *Engine) Roots() []model.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roots.Roots()
}

// Create validates the draft and inserts a new root event. The returned
// event carries the assigned id and creation timestamp.
func (e *Engine) Create(d model.Draft) (model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("create")

	ev := eventFromDraft(uuid.NewString(), d)
	ev.CreatedAt = e.now()

	if err := e.roots.Upsert(ev); err != nil {
		e.countReject()
		return model.Event{}, err
	}
	e.commit()
	return ev, nil
}

// Update overwrites the root with the given id wholesale from the
// draft. An unseen id inserts a new root under that id. CreatedAt is
// immutable and survives the overwrite.
func (e *Engine) Update(id string, d model.Draft) (model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("update")

	ev := eventFromDraft(id, d)
	if existing, ok := e.roots.Get(id); ok {
		ev.CreatedAt = existing.CreatedAt
	} else {
		ev.CreatedAt = e.now()
	}

	if err := e.roots.Upsert(ev); err != nil {
		e.countReject()
		return model.Event{}, err
	}
	e.commit()
	return ev, nil
}

// Delete removes the series the given id belongs to. The id may name a
// root or one of its derived occurrences; either way the cascade key is
// the root id, so the root and every occurrence derived from it go
// together. Unknown ids are a no-op reported as success.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("delete")

	rootID := e.resolveRootID(id)
	if rootID == "" {
		return nil
	}
	e.roots.Delete(rootID)
	e.commit()
	return nil
}

// Move relocates a root event's date, preserving its time and every
// other field. Only roots are addressable; occurrence ids are refused
// with ErrOccurrenceNotMovable, unknown ids are a no-op.
func (e *Engine) Move(id, newDate string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("move")

	changed, err := e.applyMove(id, newDate)
	if changed {
		e.commit()
	}
	return err
}

// applyMove performs the store mutation for a move without committing.
// It reports whether anything actually changed.
func (e *Engine) applyMove(id, newDate string) (bool, error) {
	if _, err := datemath.ParseDate(newDate); err != nil {
		e.countReject()
		return false, store.ValidationError{"date": "not a valid YYYY-MM-DD date"}
	}

	if _, ok := e.roots.Get(id); !ok {
		if e.resolveRootID(id) != "" {
			return false, ErrOccurrenceNotMovable
		}
		return false, nil
	}
	e.roots.Move(id, newDate)
	return true, nil
}

// SetVisibleMonth switches the month the grid and the expansion horizon
// are derived from.
func (e *Engine) SetVisibleMonth(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("set_visible_month")
	e.visibleMonth = datemath.StartOfMonth(t)
	e.recompute()
}

// SetSelectedDate marks the selected grid cell. The zero time clears it.
func (e *Engine) SetSelectedDate(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("set_selected_date")
	e.selectedDate = t
	e.recompute()
}

// SetSearchText updates the text filter over the visible set.
func (e *Engine) SetSearchText(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("set_search_text")
	e.searchText = s
	e.recompute()
}

// SetColorFilter updates the color filter ("all" or a palette value).
func (e *Engine) SetColorFilter(c string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("set_color_filter")
	e.colorFilter = c
	e.recompute()
}

// BeginDrag marks a root event in-flight, suppressing it from the
// snapshot until the gesture resolves. Dragging a derived occurrence is
// refused with ErrOccurrenceNotMovable; an unknown id is a no-op.
func (e *Engine) BeginDrag(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("begin_drag")

	if _, ok := e.roots.Get(id); !ok {
		if e.resolveRootID(id) != "" {
			return ErrOccurrenceNotMovable
		}
		return nil
	}
	e.dragID = id
	e.recompute()
	return nil
}

// CommitDrag completes the in-flight gesture by moving the dragged root
// to targetDate. A commit with no gesture in flight is a no-op.
func (e *Engine) CommitDrag(targetDate string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("commit_drag")

	if e.dragID == "" {
		return nil
	}
	id := e.dragID
	e.dragID = ""

	changed, err := e.applyMove(id, targetDate)
	if changed {
		e.commit()
	} else {
		// Marker already cleared; restore normal rendering.
		e.recompute()
	}
	return err
}

// CancelDrag clears the in-flight marker unconditionally. Every abort
// path of the UI gesture must end here so the marker can never be
// stuck.
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCommand("cancel_drag")
	e.dragID = ""
	e.recompute()
}

// Flush saves the root set if there are unsaved mutations. Wired to the
// autosave scheduler; safe to call at any time.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dirty {
		e.save()
	}
}

// commit persists the mutation and recomputes the derived views, in
// that order.
func (e *Engine) commit() {
	e.dirty = true
	e.save()
	e.recompute()
}

// save is fire-and-forget: a failed save is logged and counted, never
// surfaced to the caller, and retried by the next flush.
func (e *Engine) save() {
	if e.persist == nil {
		e.dirty = false
		return
	}
	if err := e.persist.Save(e.roots.Roots()); err != nil {
		appLog.Error("persist save failed, will retry on next flush", err)
		if e.met != nil {
			e.met.PersistErrors.Inc()
		}
		return
	}
	e.dirty = false
}

// recompute rebuilds the derived chain in strict dependency order:
// grid, occurrences, visible set, conflicts.
func (e *Engine) recompute() {
	cells := e.builder.Build(e.visibleMonth, e.selectedDate)

	horizon := datemath.AddMonths(datemath.EndOfMonth(e.visibleMonth), ViewHorizonMonths)

	var materialized []model.Event
	var truncated []string
	for _, root := range e.roots.Roots() {
		res := recur.Expand(root, recur.Config{Horizon: horizon})
		materialized = append(materialized, res.Events...)
		if res.Truncated {
			truncated = append(truncated, root.ID)
		}
	}

	visible := filter.Apply(materialized, e.searchText, e.colorFilter)
	if e.dragID != "" {
		visible = withoutEvent(visible, e.dragID)
	}

	conflicts := conflict.Find(visible)

	byDate := make(map[string][]model.Event)
	for _, ev := range visible {
		byDate[ev.Date] = append(byDate[ev.Date], ev)
	}

	e.snap = Snapshot{
		Month:          e.visibleMonth,
		Cells:          cells,
		EventsByDate:   byDate,
		Conflicts:      conflict.IDs(conflicts),
		TruncatedRoots: truncated,
	}

	if e.met != nil {
		e.met.RootEvents.Set(float64(e.roots.Len()))
		e.met.VisibleEvents.Set(float64(len(visible)))
		e.met.ConflictEvents.Set(float64(len(conflicts)))
	}
}

// resolveRootID maps an event id to the id of the root it belongs to:
// the id itself for roots, the "{rootID}" prefix for occurrence ids of
// the form "{rootID}-{n}". Returns "" when the id matches nothing.
func (e *Engine) resolveRootID(id string) string {
	if _, ok := e.roots.Get(id); ok {
		return id
	}
	for _, root := range e.roots.Roots() {
		prefix := root.ID + "-"
		if strings.HasPrefix(id, prefix) && isPositiveInt(id[len(prefix):]) {
			return root.ID
		}
	}
	return ""
}

func isPositiveInt(s string) bool {
	if s == "" || s == "0" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func withoutEvent(events []model.Event, id string) []model.Event {
	out := events[:0]
	for _, ev := range events {
		if ev.ID != id {
			out = append(out, ev)
		}
	}
	return out
}

func eventFromDraft(id string, d model.Draft) model.Event {
	color := d.Color
	if !color.Valid() {
		color = model.ColorBlue
	}
	return model.Event{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date,
		Time:        d.Time,
		Color:       color,
		Rule:        d.Rule.Normalize(),
	}
}

func (e *Engine) countCommand(name string) {
	if e.met != nil {
		e.met.CommandsTotal.WithLabelValues(name).Inc()
	}
}

func (e *Engine) countReject() {
	if e.met != nil {
		e.met.ValidationRejects.Inc()
	}
}
