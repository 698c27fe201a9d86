// Package reposcan derives RepoState (§3): the degenerate, VCS-agnostic
// snapshot of a repository's current head and pending changes that every
// pack builder and the governor key off of.
package reposcan

import (
	"context"
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/hashutil"
	"github.com/onecode-dev/continuity-engine/internal/vcs"
)

// NoChangesHash is the fixed hash used when there are no changed files,
// matching the "no VCS available" degenerate case from §3.
const NoChangesHash = "no-changes"

// State is RepoState from §3.
type State struct {
	HeadCommit       string
	ChangedFiles     []string
	ChangedFilesHash string
}

// Hash computes the changed_files_hash for an arbitrary changed-files set,
// so callers comparing against a persisted hash (e.g. the delta pack
// builder) use the same formula as Scan.
func Hash(changedFiles []string) string {
	if len(changedFiles) == 0 {
		return NoChangesHash
	}
	return hashutil.Sha256Hex(strings.Join(changedFiles, "\n"))
}

// Scan probes repoRoot via prober and assembles a State. Any probe failure
// degrades to the conservative defaults documented in §3/§4.1; Scan never
// fails the caller.
func Scan(ctx context.Context, prober vcs.Prober, repoRoot string) State {
	if prober == nil {
		return State{HeadCommit: vcs.NoGitCommit, ChangedFiles: nil, ChangedFilesHash: NoChangesHash}
	}

	head := prober.HeadCommit(ctx, repoRoot)
	if head == "" {
		head = vcs.NoGitCommit
	}
	changed := prober.ChangedFiles(ctx, repoRoot)

	return State{
		HeadCommit:       head,
		ChangedFiles:     changed,
		ChangedFilesHash: Hash(changed),
	}
}
