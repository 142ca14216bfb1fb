package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// storageKey is the single key the root event array lives under.
const storageKey = "calendar-events"

// SQLiteStore persists the root set as one JSON document in a key-value
// table. The driver is registered by importing mattn/go-sqlite3 in the
// binary (or test) that opens the database.
type SQLiteStore struct {
	db *sql.DB

	getValue *sql.Stmt
	putValue *sql.Stmt
}

// NewSQLiteStore prepares a SQLiteStore on an already-opened database,
// creating the kv table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	var err error
	s.getValue, err = db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare get: %w", err)
	}
	s.putValue, err = db.Prepare(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare put: %w", err)
	}

	return s, nil
}

// Load reads the persisted root set. A missing row or an unparsable
// payload both yield an empty set with no error.
func (s *SQLiteStore) Load() ([]model.Event, error) {
	var payload string
	err := s.getValue.QueryRow(storageKey).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", storageKey, err)
	}

	var recs []record
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		appLog.Error("sqlite store: corrupt payload, starting with empty event set", err, "key", storageKey)
		return nil, nil
	}
	return recordsToEvents(recs), nil
}

// Save serializes the root set and upserts it under the storage key.
func (s *SQLiteStore) Save(roots []model.Event) error {
	data, err := json.Marshal(eventsToRecords(roots))
	if err != nil {
		return err
	}
	if _, err := s.putValue.Exec(storageKey, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", storageKey, err)
	}
	return nil
}

// Close releases the prepared statements. The underlying *sql.DB is the
// caller's responsibility.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getValue, s.putValue} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
