package store

// GetSummary looks up a FileSummaryEntry by key. Callers are responsible
// for validating ContentHash against the file's current content hash —
// this store does not know the file's current contents.
func (s *Store) GetSummary(key string) (FileSummaryEntry, bool) {
	if e, ok := s.hot.getSummary(key); ok {
		return e, true
	}

	row := s.db.QueryRow(`
		SELECT key, repo_root, file_path, content_hash, summary, updated_at
		FROM file_summary_cache WHERE key = ?`, key)

	var e FileSummaryEntry
	var updatedAt string
	if err := row.Scan(&e.Key, &e.RepoRoot, &e.FilePath, &e.ContentHash, &e.Summary, &updatedAt); err != nil {
		return FileSummaryEntry{}, false
	}
	e.UpdatedAt = parseTime(updatedAt)
	s.hot.putSummary(e)
	return e, true
}

// UpsertSummary writes or replaces the FileSummaryEntry for e.Key.
func (s *Store) UpsertSummary(e FileSummaryEntry) error {
	e.UpdatedAt = timeNow()
	_, err := s.db.Exec(`
		INSERT INTO file_summary_cache (key, repo_root, file_path, content_hash, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			repo_root    = excluded.repo_root,
			file_path    = excluded.file_path,
			content_hash = excluded.content_hash,
			summary      = excluded.summary,
			updated_at   = excluded.updated_at`,
		e.Key, e.RepoRoot, e.FilePath, e.ContentHash, e.Summary, formatTime(e.UpdatedAt))
	if err != nil {
		return err
	}
	s.hot.putSummary(e)
	return nil
}
