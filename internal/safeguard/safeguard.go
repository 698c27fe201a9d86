// Package safeguard decides whether automatic commits to a memory branch
// are permitted, gating the only side effect in the engine that would
// touch the repository's branch state.
package safeguard

import (
	"fmt"

	"github.com/onecode-dev/continuity-engine/internal/store"
)

// Decision is the safeguard's eligibility check result.
type Decision struct {
	// Requested is true when settings ask for memory-branch auto-commit.
	Requested bool
	// Allowed is true when Requested and the repo is currently on the
	// configured memory branch.
	Allowed bool
	// CurrentBranch is the branch the eligibility check was evaluated
	// against, carried through for the block-devlog fingerprint.
	CurrentBranch string
}

// Evaluate implements spec §4.12.
func Evaluate(settings store.Settings, currentBranch string) Decision {
	requested := settings.ArtifactPolicy == store.PolicyMemoryBranch && settings.AutoCommitToMemoryBranch
	allowed := requested && currentBranch == settings.MemoryBranch
	return Decision{Requested: requested, Allowed: allowed, CurrentBranch: currentBranch}
}

// BlockFingerprint is the event fingerprint for the devlog artifact
// written when a commit was requested but not allowed:
// "<head_commit>:auto-commit-blocked:<current_branch>".
func BlockFingerprint(headCommit, currentBranch string) string {
	return fmt.Sprintf("%s:auto-commit-blocked:%s", headCommit, currentBranch)
}

// BlockContent renders the devlog body recording the block.
func BlockContent(headCommit, currentBranch, memoryBranch string) string {
	return fmt.Sprintf(
		"auto-commit-blocked\nhead_commit: %s\ncurrent_branch: %s\nmemory_branch: %s\n",
		headCommit, currentBranch, memoryBranch)
}
