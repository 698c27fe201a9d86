// Package sessionstore defines the "session message store" collaborator
// named in the engine's external interfaces: a per-sub-session message
// log plus provider handles, read by the delta pack's failing-test digest
// and replaced wholesale by rehydrate.
//
// A reference SQLite implementation is provided so the module is runnable
// end to end; production wiring substitutes the host application's own
// chat-UI-backed store, which stays out of scope (§1: "the chat UI ...
// interfaces only").
package sessionstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Part is one piece of a message's content.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is one entry in a sub-session's message log.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Mode is the sub-session's conversational mode.
type Mode string

const (
	ModePlan  Mode = "plan"
	ModeAgent Mode = "agent"
)

// SubSession is the per-sub-session record rehydrate replaces the
// messages of.
type SubSession struct {
	ID        string
	ChatID    string
	Mode      Mode
	Messages  []Message
	SessionID *string
	StreamID  *string
	UpdatedAt time.Time
}

// Store is the session message store collaborator interface.
type Store interface {
	// Get loads a sub-session by id. ok is false if it does not exist.
	Get(subSessionID string) (SubSession, bool)

	// ReplaceMessages swaps a sub-session's entire message log for
	// messages, clears any provider-specific session/stream handles, and
	// touches the parent chat's updated_at. No-op if the sub-session does
	// not exist.
	ReplaceMessages(subSessionID string, messages []Message) error
}

// SQLiteStore is the reference implementation, grounded on the shape of
// Hoofy's memory.Session (id, project, directory, started_at, ...)
// generalized to carry a message log and provider handles.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates/opens the sub-session database at <dataDir>/sessions.db.
func Open(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("sessionstore: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "sessions.db"))
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("sessionstore: pragma: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("sessionstore: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sub_sessions (
			id           TEXT PRIMARY KEY,
			chat_id      TEXT NOT NULL,
			mode         TEXT NOT NULL,
			messages_json TEXT NOT NULL DEFAULT '[]',
			session_id   TEXT,
			stream_id    TEXT,
			updated_at   TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chats (
			id         TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create inserts a new sub-session row, used by callers (typically tests
// or a CLI demo) setting up fixtures; production dispatchers manage their
// own sub-session lifecycle.
func (s *SQLiteStore) Create(sub SubSession) error {
	messagesJSON, err := json.Marshal(sub.Messages)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.db.Exec(`INSERT INTO chats (id, updated_at) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING`, sub.ChatID, now); err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO sub_sessions (id, chat_id, mode, messages_json, session_id, stream_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_id       = excluded.chat_id,
			mode          = excluded.mode,
			messages_json = excluded.messages_json,
			session_id    = excluded.session_id,
			stream_id     = excluded.stream_id,
			updated_at    = excluded.updated_at`,
		sub.ID, sub.ChatID, string(sub.Mode), string(messagesJSON), sub.SessionID, sub.StreamID, now)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(subSessionID string) (SubSession, bool) {
	row := s.db.QueryRow(`
		SELECT id, chat_id, mode, messages_json, session_id, stream_id, updated_at
		FROM sub_sessions WHERE id = ?`, subSessionID)

	var sub SubSession
	var mode, messagesJSON, updatedAt string
	var sessionID, streamID *string
	if err := row.Scan(&sub.ID, &sub.ChatID, &mode, &messagesJSON, &sessionID, &streamID, &updatedAt); err != nil {
		return SubSession{}, false
	}
	sub.Mode = Mode(mode)
	sub.SessionID = sessionID
	sub.StreamID = streamID
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		sub.UpdatedAt = t
	}
	_ = json.Unmarshal([]byte(messagesJSON), &sub.Messages)
	return sub, true
}

// ReplaceMessages implements Store.
func (s *SQLiteStore) ReplaceMessages(subSessionID string, messages []Message) error {
	sub, ok := s.Get(subSessionID)
	if !ok {
		return nil
	}

	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.db.Exec(`
		UPDATE sub_sessions
		SET messages_json = ?, session_id = NULL, stream_id = NULL, updated_at = ?
		WHERE id = ?`, string(messagesJSON), now, subSessionID); err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO chats (id, updated_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`, sub.ChatID, now)
	return err
}
