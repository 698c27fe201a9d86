package store

import (
	"crypto/rand"
	"encoding/json"

	"github.com/oklog/ulid/v2"
)

// NewArtifactID generates a time-sortable identifier for a new artifact,
// the way hpungsan-moss mints capsule ids: ulid.Monotonic over a fresh
// entropy source keyed to the current time.
func NewArtifactID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(timeNow()), entropy).String()
}

// InsertArtifact appends a new artifact row. Artifacts are append-only —
// there is no UpdateArtifact here because the engine itself never revises
// one (a downstream reviewer changing Status is out of scope).
func (s *Store) InsertArtifact(a Artifact) error {
	if a.ID == "" {
		a.ID = NewArtifactID()
	}
	now := timeNow()
	a.CreatedAt = now
	a.UpdatedAt = now

	provenanceJSON, err := json.Marshal(a.Provenance)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO artifact (id, sub_session_id, type, content, status, provenance_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SubSessionID, string(a.Type), a.Content, string(a.Status),
		string(provenanceJSON), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return err
}

// RecentArtifactsByType returns up to limit artifacts of the given type for
// subSessionID, newest first — used by the artifact writer's dedup check
// (§4.11: "read the last 12 artifacts of this (sub_session_id, type)").
func (s *Store) RecentArtifactsByType(subSessionID string, typ ArtifactType, limit int) ([]Artifact, error) {
	rows, err := s.db.Query(`
		SELECT id, sub_session_id, type, content, status, provenance_json, created_at, updated_at
		FROM artifact
		WHERE sub_session_id = ? AND type = ?
		ORDER BY created_at DESC
		LIMIT ?`, subSessionID, string(typ), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// RecentArtifacts returns up to limit artifacts of any type for
// subSessionID, newest first — used by rehydrate (§4.14: "up to 6 most
// recent artifacts for this sub-session, any type, newest first").
func (s *Store) RecentArtifacts(subSessionID string, limit int) ([]Artifact, error) {
	rows, err := s.db.Query(`
		SELECT id, sub_session_id, type, content, status, provenance_json, created_at, updated_at
		FROM artifact
		WHERE sub_session_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, subSessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// RecentArtifactsAcrossSessions returns up to limit artifacts of any type
// and any sub-session, newest first — used by the read-only artifacts
// resource, which has no single sub-session to scope to.
func (s *Store) RecentArtifactsAcrossSessions(limit int) ([]Artifact, error) {
	rows, err := s.db.Query(`
		SELECT id, sub_session_id, type, content, status, provenance_json, created_at, updated_at
		FROM artifact
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func scanArtifacts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Artifact, error) {
	var out []Artifact
	for rows.Next() {
		var a Artifact
		var typ, status, provenanceJSON, createdAt, updatedAt string
		if err := rows.Scan(&a.ID, &a.SubSessionID, &typ, &a.Content, &status,
			&provenanceJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.Type = ArtifactType(typ)
		a.Status = ArtifactStatus(status)
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		_ = json.Unmarshal([]byte(provenanceJSON), &a.Provenance)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
