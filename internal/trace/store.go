// Package trace records object-manager lifecycle and garbage-collection
// events to a local SQLite file so a host embedding the runtime can
// replay a session's spawn/delete/mark/sweep timeline after the fact.
package trace

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// EventKind names the object-manager lifecycle events a Recorder stores.
type EventKind string

const (
	EventSpawn    EventKind = "spawn"
	EventDelete   EventKind = "delete"
	EventMarkRoot EventKind = "mark_root"
	EventSweep    EventKind = "sweep"
)

// Event is a single recorded lifecycle event.
type Event struct {
	ID       int64
	Kind     EventKind
	Handle   uint32
	TypeName string
	Detail   string
	Recorded time.Time
}

// Recorder appends lifecycle events to a SQLite-backed session store. All
// methods are safe for concurrent use by a single embedder goroutine and
// an inspector shell reading the same file.
type Recorder struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or appends to a SQLite session file at path and ensures the
// events table exists.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace: failed to open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: failed to ping %s: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	kind      TEXT NOT NULL,
	handle    INTEGER NOT NULL,
	type_name TEXT NOT NULL,
	detail    TEXT NOT NULL,
	recorded  DATETIME NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: failed to create schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

func (r *Recorder) insert(kind EventKind, handle uint32, typeName, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO events (kind, handle, type_name, detail, recorded) VALUES (?, ?, ?, ?, ?)`,
		string(kind), handle, typeName, detail, time.Now(),
	)
	return err
}

// RecordSpawn logs that an object was constructed.
func (r *Recorder) RecordSpawn(handle uint32, typeName string) error {
	return r.insert(EventSpawn, handle, typeName, "spawned")
}

// RecordDelete logs that an object's slot was freed.
func (r *Recorder) RecordDelete(handle uint32, typeName string) error {
	return r.insert(EventDelete, handle, typeName, "deleted")
}

// RecordMarkRoot logs the start of a root-mark phase.
func (r *Recorder) RecordMarkRoot(reachable int) error {
	return r.insert(EventMarkRoot, 0, "", fmt.Sprintf("%d objects reachable", reachable))
}

// RecordSweep logs the end of a sweep phase.
func (r *Recorder) RecordSweep(killed int) error {
	return r.insert(EventSweep, 0, "", fmt.Sprintf("%d objects killed", killed))
}

// Events returns the most recent limit events, newest first.
func (r *Recorder) Events(limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(
		`SELECT id, kind, handle, type_name, detail, recorded FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("trace: query failed: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Handle, &e.TypeName, &e.Detail, &e.Recorded); err != nil {
			return nil, err
		}
		e.Kind = EventKind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Summary renders a human-readable one-line description of an event,
// e.g. "#12 spawn Player (3 minutes ago): spawned".
func Summary(e Event) string {
	if e.TypeName != "" {
		return fmt.Sprintf("#%d %s %s (%s): %s", e.ID, e.Kind, e.TypeName, humanize.Time(e.Recorded), e.Detail)
	}
	return fmt.Sprintf("#%d %s (%s): %s", e.ID, e.Kind, humanize.Time(e.Recorded), e.Detail)
}

// Close closes the underlying database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}
