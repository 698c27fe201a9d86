package store

// GetSessionState looks up the SessionState for subSessionID. A missing
// row is reported as a miss — callers create the zero-value state on
// first Apply for a sub-session, per the spec's lifecycle rule.
func (s *Store) GetSessionState(subSessionID string) (SessionState, bool) {
	if e, ok := s.hot.getSession(subSessionID); ok {
		return e, true
	}

	row := s.db.QueryRow(`
		SELECT sub_session_id, last_changed_files_hash, turns_since_snapshot,
		       total_injected_bytes, last_snapshot_at, updated_at
		FROM session_state WHERE sub_session_id = ?`, subSessionID)

	var e SessionState
	var lastSnapshotAt, updatedAt *string
	if err := row.Scan(&e.SubSessionID, &e.LastChangedFilesHash, &e.TurnsSinceSnapshot,
		&e.TotalInjectedBytes, &lastSnapshotAt, &updatedAt); err != nil {
		return SessionState{}, false
	}
	if lastSnapshotAt != nil && *lastSnapshotAt != "" {
		t := parseTime(*lastSnapshotAt)
		e.LastSnapshotAt = &t
	}
	if updatedAt != nil {
		e.UpdatedAt = parseTime(*updatedAt)
	}

	s.hot.putSession(e)
	return e, true
}

// UpsertSessionState writes or replaces the SessionState row for
// e.SubSessionID.
func (s *Store) UpsertSessionState(e SessionState) error {
	e.UpdatedAt = timeNow()

	var lastSnapshotAt *string
	if e.LastSnapshotAt != nil {
		v := formatTime(*e.LastSnapshotAt)
		lastSnapshotAt = &v
	}

	_, err := s.db.Exec(`
		INSERT INTO session_state (sub_session_id, last_changed_files_hash, turns_since_snapshot,
		                            total_injected_bytes, last_snapshot_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sub_session_id) DO UPDATE SET
			last_changed_files_hash = excluded.last_changed_files_hash,
			turns_since_snapshot    = excluded.turns_since_snapshot,
			total_injected_bytes    = excluded.total_injected_bytes,
			last_snapshot_at        = excluded.last_snapshot_at,
			updated_at              = excluded.updated_at`,
		e.SubSessionID, e.LastChangedFilesHash, e.TurnsSinceSnapshot,
		e.TotalInjectedBytes, lastSnapshotAt, formatTime(e.UpdatedAt))
	if err != nil {
		return err
	}
	s.hot.putSession(e)
	return nil
}
