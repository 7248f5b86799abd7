// Package journal persists a local audit trail of commands and state
// transitions. Writes are best-effort: a failed insert is the caller's to
// log, never to fail a command over.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed session journal.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the journal database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			command_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			at         TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS transitions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			"trigger" TEXT NOT NULL,
			source    TEXT NOT NULL,
			dest      TEXT NOT NULL,
			at        TEXT NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordCommand appends a processed command. cmdErr may be nil.
func (s *Store) RecordCommand(commandID, name string, cmdErr error) error {
	msg := ""
	if cmdErr != nil {
		msg = cmdErr.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO commands (command_id, name, error, at) VALUES (?, ?, ?, ?)`,
		commandID, name, msg, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// RecordTransition appends a committed state change.
func (s *Store) RecordTransition(trigger, source, dest string) error {
	_, err := s.db.Exec(
		`INSERT INTO transitions ("trigger", source, dest, at) VALUES (?, ?, ?, ?)`,
		trigger, source, dest, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}
