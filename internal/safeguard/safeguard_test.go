package safeguard

import (
	"testing"

	"github.com/onecode-dev/continuity-engine/internal/store"
)

func TestEvaluateNotRequestedWhenPolicyIsManual(t *testing.T) {
	settings := store.Settings{ArtifactPolicy: store.PolicyManualCommit, AutoCommitToMemoryBranch: true, MemoryBranch: "memory/continuity"}
	got := Evaluate(settings, "memory/continuity")
	if got.Requested {
		t.Fatal("expected Requested=false under manual-commit policy")
	}
}

func TestEvaluateScenarioFBlocked(t *testing.T) {
	settings := store.Settings{
		ArtifactPolicy:           store.PolicyMemoryBranch,
		AutoCommitToMemoryBranch: true,
		MemoryBranch:             "memory/continuity",
	}
	got := Evaluate(settings, "feature/x")
	if !got.Requested {
		t.Fatal("expected Requested=true")
	}
	if got.Allowed {
		t.Fatal("expected Allowed=false on a non-memory branch")
	}

	fp := BlockFingerprint("abc123", got.CurrentBranch)
	if fp != "abc123:auto-commit-blocked:feature/x" {
		t.Fatalf("BlockFingerprint = %q", fp)
	}
}

func TestEvaluateAllowedOnMemoryBranch(t *testing.T) {
	settings := store.Settings{
		ArtifactPolicy:           store.PolicyMemoryBranch,
		AutoCommitToMemoryBranch: true,
		MemoryBranch:             "memory/continuity",
	}
	got := Evaluate(settings, "memory/continuity")
	if !got.Requested || !got.Allowed {
		t.Fatalf("expected Requested and Allowed, got %+v", got)
	}
}
