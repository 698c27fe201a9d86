package store

import (
	"encoding/json"
	"time"
)

// SearchCacheTTL is the 60-second validity window for search_cache rows.
const SearchCacheTTL = 60 * time.Second

type searchResultJSON struct {
	Files []string `json:"files"`
}

// GetSearch looks up a SearchCacheEntry by key and reports whether it is
// still within its TTL. A stale or missing entry is reported as a miss.
func (s *Store) GetSearch(key string) (SearchCacheEntry, bool) {
	if e, ok := s.hot.getSearch(key); ok {
		if timeNow().Sub(e.UpdatedAt) <= SearchCacheTTL {
			return e, true
		}
	}

	row := s.db.QueryRow(`
		SELECT key, repo_root, query, commit_hash, scope, result_json, updated_at
		FROM search_cache WHERE key = ?`, key)

	var e SearchCacheEntry
	var updatedAt, resultJSON string
	if err := row.Scan(&e.Key, &e.RepoRoot, &e.Query, &e.CommitHash, &e.Scope, &resultJSON, &updatedAt); err != nil {
		return SearchCacheEntry{}, false
	}
	e.UpdatedAt = parseTime(updatedAt)
	if timeNow().Sub(e.UpdatedAt) > SearchCacheTTL {
		return SearchCacheEntry{}, false
	}

	var parsed searchResultJSON
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		return SearchCacheEntry{}, false
	}
	e.ResultFiles = parsed.Files

	s.hot.putSearch(e)
	return e, true
}

// UpsertSearch writes or replaces the SearchCacheEntry for e.Key.
func (s *Store) UpsertSearch(e SearchCacheEntry) error {
	e.UpdatedAt = timeNow()
	resultJSON, err := json.Marshal(searchResultJSON{Files: e.ResultFiles})
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO search_cache (key, repo_root, query, commit_hash, scope, result_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			repo_root   = excluded.repo_root,
			query       = excluded.query,
			commit_hash = excluded.commit_hash,
			scope       = excluded.scope,
			result_json = excluded.result_json,
			updated_at  = excluded.updated_at`,
		e.Key, e.RepoRoot, e.Query, e.CommitHash, e.Scope, string(resultJSON), formatTime(e.UpdatedAt))
	if err != nil {
		return err
	}
	s.hot.putSearch(e)
	return nil
}
