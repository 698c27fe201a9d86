// Package store is the continuity engine's persistence root: a single
// SQLite database holding the six tables named in the engine's external
// interface (pack_cache, file_summary_cache, search_cache, session_state,
// artifact, settings), plus process-local in-memory hot tiers shadowing
// four of them.
//
// The schema and pragma choices mirror HendryAvila's memory store: WAL
// journaling, a busy timeout so concurrent sub-sessions never see
// SQLITE_BUSY, and idempotent "CREATE TABLE IF NOT EXISTS" migrations so
// opening an existing database is always safe.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var so tests can inject a failing opener.
var openDB = sql.Open

// timeNow is a package-level var for testability, same pattern the teacher
// repo uses in internal/changes/time.go.
var timeNow = func() time.Time { return time.Now().UTC() }

// Store wraps the SQLite connection and the in-memory hot tiers.
type Store struct {
	db *sql.DB

	hot *hotTiers
}

// Open creates the data directory if needed, opens (or creates) the
// SQLite database at <dataDir>/continuity.db, applies performance pragmas,
// and runs migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "continuity.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, hot: newHotTiers()}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pack_cache (
			key                 TEXT PRIMARY KEY,
			task_fingerprint    TEXT NOT NULL,
			changed_files_hash  TEXT NOT NULL,
			head_commit         TEXT NOT NULL,
			provider            TEXT NOT NULL,
			mode                TEXT NOT NULL,
			budget_bytes        INTEGER NOT NULL,
			pack                TEXT NOT NULL,
			updated_at          TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS file_summary_cache (
			key          TEXT PRIMARY KEY,
			repo_root    TEXT NOT NULL,
			file_path    TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			summary      TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS search_cache (
			key          TEXT PRIMARY KEY,
			repo_root    TEXT NOT NULL,
			query        TEXT NOT NULL,
			commit_hash  TEXT NOT NULL,
			scope        TEXT NOT NULL,
			result_json  TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_state (
			sub_session_id         TEXT PRIMARY KEY,
			last_changed_files_hash TEXT NOT NULL,
			turns_since_snapshot   INTEGER NOT NULL DEFAULT 0,
			total_injected_bytes   INTEGER NOT NULL DEFAULT 0,
			last_snapshot_at       TEXT,
			updated_at             TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS artifact (
			id               TEXT PRIMARY KEY,
			sub_session_id   TEXT NOT NULL,
			type             TEXT NOT NULL,
			content          TEXT NOT NULL,
			status           TEXT NOT NULL,
			provenance_json  TEXT NOT NULL,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_artifact_session_type
			ON artifact(sub_session_id, type, created_at DESC);

		CREATE TABLE IF NOT EXISTS settings (
			id                          TEXT PRIMARY KEY DEFAULT 'singleton',
			artifact_policy             TEXT NOT NULL,
			auto_commit_to_memory_branch INTEGER NOT NULL,
			token_mode                  TEXT NOT NULL,
			memory_branch               TEXT NOT NULL,
			updated_at                  TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}
