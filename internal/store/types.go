package store

import "time"

// PackCacheEntry is a row of the pack_cache table — a fully assembled
// context pack keyed by its compound CacheKey.
type PackCacheEntry struct {
	Key              string
	TaskFingerprint  string
	ChangedFilesHash string
	HeadCommit       string
	Provider         string
	Mode             string
	BudgetBytes      int
	PackText         string
	UpdatedAt        time.Time
}

// FileSummaryEntry is a row of the file_summary_cache table. It remains
// valid so long as ContentHash matches the current hash of the file's
// contents.
type FileSummaryEntry struct {
	Key         string
	RepoRoot    string
	FilePath    string
	ContentHash string
	Summary     string
	UpdatedAt   time.Time
}

// SearchCacheEntry is a row of the search_cache table, valid for 60
// seconds from UpdatedAt.
type SearchCacheEntry struct {
	Key         string
	RepoRoot    string
	Query       string
	CommitHash  string
	Scope       string
	ResultFiles []string
	UpdatedAt   time.Time
}

// SessionState is a row of the session_state table, one per sub-session.
type SessionState struct {
	SubSessionID         string
	LastChangedFilesHash string
	TurnsSinceSnapshot   int
	TotalInjectedBytes   int
	LastSnapshotAt       *time.Time
	UpdatedAt            time.Time
}

// ArtifactType enumerates the kinds of durable memory artifact the engine
// can write.
type ArtifactType string

const (
	ArtifactDevlog           ArtifactType = "devlog"
	ArtifactADR              ArtifactType = "adr"
	ArtifactRejectedApproach ArtifactType = "rejected-approach"
)

// ArtifactStatus enumerates the lifecycle states of an artifact. Only
// "draft" is ever written by this engine; "accepted"/"rejected" are set by
// a downstream reviewer, out of scope here.
type ArtifactStatus string

const (
	StatusDraft    ArtifactStatus = "draft"
	StatusAccepted ArtifactStatus = "accepted"
	StatusRejected ArtifactStatus = "rejected"
)

// Provenance records why an artifact was written, for dedup and audit.
type Provenance struct {
	EventFingerprint string `json:"event_fingerprint"`
	CreatedBy        string `json:"created_by"`
}

// Artifact is a row of the artifact table.
type Artifact struct {
	ID           string
	SubSessionID string
	Type         ArtifactType
	Content      string
	Status       ArtifactStatus
	Provenance   Provenance
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ArtifactPolicy enumerates how artifact commits are handled.
type ArtifactPolicy string

const (
	PolicyManualCommit ArtifactPolicy = "auto-write-manual-commit"
	PolicyMemoryBranch ArtifactPolicy = "auto-write-memory-branch"
)

// DefaultMemoryBranch is the default value of Settings.MemoryBranch.
const DefaultMemoryBranch = "memory/continuity"

// Settings is the singleton settings row.
type Settings struct {
	ArtifactPolicy           ArtifactPolicy
	AutoCommitToMemoryBranch bool
	TokenMode                string
	MemoryBranch             string
	UpdatedAt                time.Time
}

// DefaultSettings returns the documented defaults (§6 of the spec).
func DefaultSettings() Settings {
	return Settings{
		ArtifactPolicy:           PolicyManualCommit,
		AutoCommitToMemoryBranch: false,
		TokenMode:                "normal",
		MemoryBranch:             DefaultMemoryBranch,
	}
}
