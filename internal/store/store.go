// Package store holds the persisted root events and the persistence
// collaborators that load and save them. Only root events live here;
// derived occurrences are ephemeral and never written back.
package store

import (
	"strings"

	"calgrid/internal/model"
)

// ValidationError reports rejected create/update fields, keyed by field
// name. The store is left untouched when one is returned.
type ValidationError map[string]string

func (v ValidationError) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the required-field rules shared by create and update.
func Validate(ev model.Event) ValidationError {
	errs := ValidationError{}
	if strings.TrimSpace(ev.Title) == "" {
		errs["title"] = "title is required"
	}
	if strings.TrimSpace(ev.Date) == "" {
		errs["date"] = "date is required"
	}
	if strings.TrimSpace(ev.Time) == "" {
		errs["time"] = "time is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Store is the in-memory set of root events, keyed by id. Iteration
// order is insertion order, which keeps snapshots stable across
// recomputes. It is not goroutine-safe; the engine serializes access.
type Store struct {
	roots map[string]model.Event
	order []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{roots: make(map[string]model.Event)}
}

// Len returns the number of root events held.
func (s *Store) Len() int {
	return len(s.order)
}

// Get returns the root event with the given id.
func (s *Store) Get(id string) (model.Event, bool) {
	ev, ok := s.roots[id]
	return ev, ok
}

// Roots returns all root events in insertion order.
func (s *Store) Roots() []model.Event {
	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.roots[id])
	}
	return out
}

// Upsert inserts ev as a new root, or replaces an existing root with the
// same id wholesale (full overwrite, not a merge). Required fields are
// validated first; on failure the store is unmodified.
func (s *Store) Upsert(ev model.Event) error {
	if errs := Validate(ev); errs != nil {
		return errs
	}
	ev.Rule = ev.Rule.Normalize()
	ev.SeriesRootID = "" // roots only

	if _, seen := s.roots[ev.ID]; !seen {
		s.order = append(s.order, ev.ID)
	}
	s.roots[ev.ID] = ev
	return nil
}

// Delete removes the root with the given id. Unknown ids are a no-op;
// cascade to occurrences is implicit because occurrences only exist as
// re-derivations of the root.
func (s *Store) Delete(id string) {
	if _, ok := s.roots[id]; !ok {
		return
	}
	delete(s.roots, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Move relocates the named root to newDate, leaving the time and every
// other field untouched. Unknown ids are a no-op.
func (s *Store) Move(id, newDate string) {
	ev, ok := s.roots[id]
	if !ok {
		return
	}
	ev.Date = newDate
	s.roots[id] = ev
}

// Replace swaps the entire root set, preserving the given order. Used
// when loading persisted state.
func (s *Store) Replace(roots []model.Event) {
	s.roots = make(map[string]model.Event, len(roots))
	s.order = s.order[:0]
	for _, ev := range roots {
		if ev.IsOccurrence() {
			// Occurrences must never enter the persisted set.
			continue
		}
		if _, seen := s.roots[ev.ID]; !seen {
			s.order = append(s.order, ev.ID)
		}
		s.roots[ev.ID] = ev
	}
}
