package store

import "time"

// GetPack looks up a PackCacheEntry by key, checking the hot tier first.
// Any SQLite error is swallowed to a miss, per the engine's fail-soft
// persistence policy.
func (s *Store) GetPack(key string) (PackCacheEntry, bool) {
	if e, ok := s.hot.getPack(key); ok {
		return e, true
	}

	row := s.db.QueryRow(`
		SELECT key, task_fingerprint, changed_files_hash, head_commit, provider,
		       mode, budget_bytes, pack, updated_at
		FROM pack_cache WHERE key = ?`, key)

	var e PackCacheEntry
	var updatedAt string
	if err := row.Scan(&e.Key, &e.TaskFingerprint, &e.ChangedFilesHash, &e.HeadCommit,
		&e.Provider, &e.Mode, &e.BudgetBytes, &e.PackText, &updatedAt); err != nil {
		return PackCacheEntry{}, false
	}
	e.UpdatedAt = parseTime(updatedAt)
	s.hot.putPack(e)
	return e, true
}

// UpsertPack writes or replaces the PackCacheEntry for e.Key. Pack-cache
// retention is unbounded by design (§9 Open Questions) — rows are never
// expired here.
func (s *Store) UpsertPack(e PackCacheEntry) error {
	e.UpdatedAt = timeNow()
	_, err := s.db.Exec(`
		INSERT INTO pack_cache (key, task_fingerprint, changed_files_hash, head_commit,
		                         provider, mode, budget_bytes, pack, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			task_fingerprint   = excluded.task_fingerprint,
			changed_files_hash = excluded.changed_files_hash,
			head_commit        = excluded.head_commit,
			provider           = excluded.provider,
			mode               = excluded.mode,
			budget_bytes       = excluded.budget_bytes,
			pack               = excluded.pack,
			updated_at         = excluded.updated_at`,
		e.Key, e.TaskFingerprint, e.ChangedFilesHash, e.HeadCommit,
		e.Provider, e.Mode, e.BudgetBytes, e.PackText, formatTime(e.UpdatedAt))
	if err != nil {
		return err
	}
	s.hot.putPack(e)
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
