package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Persister is the external load/save collaborator for the root event
// set. It is invoked exactly twice per lifecycle phase: Load once at
// startup and Save once after each committed mutation; the engine never
// calls it mid-computation.
type Persister interface {
	Load() ([]model.Event, error)
	Save(roots []model.Event) error
	Close() error
}

// FileStore persists the root set as a single JSON array in one file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted root set. A missing file or an unparsable
// payload both yield an empty set with no error: corrupt storage must
// never prevent the engine from starting.
func (f *FileStore) Load() ([]model.Event, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		appLog.Error("file store: corrupt payload, starting with empty event set", err, "path", f.path)
		return nil, nil
	}
	return recordsToEvents(recs), nil
}

// Save writes the root set atomically: marshal, write to a temp file in
// the same directory, fsync, then rename over the target with 0600
// permissions.
func (f *FileStore) Save(roots []model.Event) error {
	data, err := json.MarshalIndent(eventsToRecords(roots), "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calgrid-events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}

// Close is a no-op for the file driver.
func (f *FileStore) Close() error { return nil }

func eventsToRecords(roots []model.Event) []record {
	recs := make([]record, 0, len(roots))
	for _, ev := range roots {
		if ev.IsOccurrence() {
			continue
		}
		recs = append(recs, toRecord(ev))
	}
	return recs
}

func recordsToEvents(recs []record) []model.Event {
	events := make([]model.Event, 0, len(recs))
	for _, rec := range recs {
		if rec.ParentID != "" {
			// Only roots are persisted; drop stray occurrence records.
			continue
		}
		events = append(events, fromRecord(rec))
	}
	return events
}
