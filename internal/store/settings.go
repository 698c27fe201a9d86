package store

// GetSettings returns the singleton settings row, or the documented
// defaults if none has been written yet.
func (s *Store) GetSettings() Settings {
	row := s.db.QueryRow(`
		SELECT artifact_policy, auto_commit_to_memory_branch, token_mode, memory_branch, updated_at
		FROM settings WHERE id = 'singleton'`)

	var policy, tokenMode, memoryBranch, updatedAt string
	var autoCommit int
	if err := row.Scan(&policy, &autoCommit, &tokenMode, &memoryBranch, &updatedAt); err != nil {
		return DefaultSettings()
	}

	return Settings{
		ArtifactPolicy:           ArtifactPolicy(policy),
		AutoCommitToMemoryBranch: autoCommit != 0,
		TokenMode:                tokenMode,
		MemoryBranch:             memoryBranch,
		UpdatedAt:                parseTime(updatedAt),
	}
}

// PutSettings upserts the singleton settings row.
func (s *Store) PutSettings(set Settings) error {
	set.UpdatedAt = timeNow()
	autoCommit := 0
	if set.AutoCommitToMemoryBranch {
		autoCommit = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO settings (id, artifact_policy, auto_commit_to_memory_branch, token_mode, memory_branch, updated_at)
		VALUES ('singleton', ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			artifact_policy              = excluded.artifact_policy,
			auto_commit_to_memory_branch = excluded.auto_commit_to_memory_branch,
			token_mode                   = excluded.token_mode,
			memory_branch                = excluded.memory_branch,
			updated_at                   = excluded.updated_at`,
		string(set.ArtifactPolicy), autoCommit, set.TokenMode, set.MemoryBranch, formatTime(set.UpdatedAt))
	return err
}
