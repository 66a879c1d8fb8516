// Package archive persists violation and audit history into SQLite.
// Persistence is a pluggable concern: the in-memory stores remain the
// source of truth and never require an archive to function.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/audit"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

const schema = `
CREATE TABLE IF NOT EXISTS violations (
	id   TEXT PRIMARY KEY,
	doc  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_events (
	id   TEXT PRIMARY KEY,
	doc  TEXT NOT NULL
);`

// Archive is a SQLite-backed snapshot target for the in-memory stores.
// Rows are keyed by record id with the record's JSON document alongside,
// reusing the JSONL wire shapes.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) an archive at the given DSN. Use
// ":memory:" for an ephemeral archive.
func Open(dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open %q: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// SaveViolations upserts every violation in the store. Returns the
// number of rows written.
func (a *Archive) SaveViolations(store *violations.Store) (int, error) {
	all := store.All()
	return a.saveDocs("violations", func(yield func(id string, doc []byte) error) error {
		for _, v := range all {
			doc, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("archive: encode violation %s: %w", v.ID, err)
			}
			if err := yield(v.ID, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadViolations reads every archived violation into the store. Returns
// the number of records loaded.
func (a *Archive) LoadViolations(store *violations.Store) (int, error) {
	rows, err := a.db.Query(`SELECT doc FROM violations`)
	if err != nil {
		return 0, fmt.Errorf("archive: query violations: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return loaded, fmt.Errorf("archive: scan violation: %w", err)
		}
		var v violations.Violation
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return loaded, fmt.Errorf("archive: decode violation: %w", err)
		}
		store.Capture(v)
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("archive: iterate violations: %w", err)
	}
	return loaded, nil
}

// SaveEvents upserts every ledger event. Returns the number of rows
// written.
func (a *Archive) SaveEvents(ledger *audit.Ledger) (int, error) {
	all := ledger.All()
	return a.saveDocs("audit_events", func(yield func(id string, doc []byte) error) error {
		for _, e := range all {
			doc, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("archive: encode event %s: %w", e.ID, err)
			}
			if err := yield(e.ID, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadEvents reads every archived event into the ledger. Returns the
// number of records loaded.
func (a *Archive) LoadEvents(ledger *audit.Ledger) (int, error) {
	rows, err := a.db.Query(`SELECT doc FROM audit_events`)
	if err != nil {
		return 0, fmt.Errorf("archive: query events: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return loaded, fmt.Errorf("archive: scan event: %w", err)
		}
		var e audit.Event
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return loaded, fmt.Errorf("archive: decode event: %w", err)
		}
		ledger.Store(e)
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("archive: iterate events: %w", err)
	}
	return loaded, nil
}

func (a *Archive) saveDocs(table string, emit func(yield func(id string, doc []byte) error) error) (int, error) {
	tx, err := a.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("archive: begin: %w", err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, table))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("archive: prepare %s: %w", table, err)
	}
	defer stmt.Close()

	written := 0
	err = emit(func(id string, doc []byte) error {
		if _, err := stmt.Exec(id, string(doc)); err != nil {
			return fmt.Errorf("archive: write %s row %s: %w", table, id, err)
		}
		written++
		return nil
	})
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("archive: commit: %w", err)
	}
	return written, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
