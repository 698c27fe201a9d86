package eventdetector

import "testing"

func TestDetectNoSignalsFiresNothing(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", DiffLines: 5, ChangedFiles: []string{"a.go"}})
	if got.Devlog || got.ADR || got.RejectedApproach {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestDetectDiffOver120FiresDevlog(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", DiffLines: 120})
	if !got.Devlog {
		t.Fatal("expected devlog to fire")
	}
	if !contains(got.Reasons, reasonDiffOver120) {
		t.Fatalf("reasons = %v, want to contain %q", got.Reasons, reasonDiffOver120)
	}
}

func TestDetectChangedFilesOver6FiresDevlog(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", ChangedFiles: []string{"a", "b", "c", "d", "e", "f"}})
	if !got.Devlog {
		t.Fatal("expected devlog to fire")
	}
	if !contains(got.Reasons, reasonChangedFilesOver6) {
		t.Fatalf("reasons = %v, want to contain %q", got.Reasons, reasonChangedFilesOver6)
	}
}

func TestDetectWasErrorFiresDevlogAndRejected(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", WasError: true})
	if !got.Devlog {
		t.Fatal("expected devlog to fire")
	}
	if !got.RejectedApproach || got.RejectedReason != RejectedReasonRunError {
		t.Fatalf("expected rejected_approach with run-error, got %+v", got)
	}
	if got.ADR {
		t.Fatal("expected no ADR")
	}
}

func TestDetectBoundaryFilesFireADR(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", ChangedFiles: []string{"src/main/lib/db/schema.ts", "README.md"}})
	if !got.ADR {
		t.Fatal("expected ADR to fire")
	}
	if len(got.BoundaryFiles) != 1 || got.BoundaryFiles[0] != "src/main/lib/db/schema.ts" {
		t.Fatalf("BoundaryFiles = %v", got.BoundaryFiles)
	}
	if !contains(got.Reasons, reasonBoundaryModules) {
		t.Fatalf("reasons = %v", got.Reasons)
	}
}

func TestDetectDirectionChangeWithoutError(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", AssistantResponse: "Let's try an alternative approach here."})
	if !got.RejectedApproach || got.RejectedReason != RejectedReasonDirectionChange {
		t.Fatalf("expected rejected_approach with direction-change, got %+v", got)
	}
}

func TestDetectErrorTakesPrecedenceOverDirectionPhrase(t *testing.T) {
	got := Detect(Input{HeadCommit: "abc", WasError: true, AssistantResponse: "pivot to a new plan"})
	if got.RejectedReason != RejectedReasonRunError {
		t.Fatalf("RejectedReason = %q, want %q", got.RejectedReason, RejectedReasonRunError)
	}
}

func TestDetectFingerprintDeterministicAndSensitive(t *testing.T) {
	base := Input{HeadCommit: "abc", ChangedFilesHash: "h1", DiffLines: 10, AssistantResponse: "all good"}
	a := Detect(base)
	b := Detect(base)
	if a.EventFingerprint != b.EventFingerprint {
		t.Fatal("expected deterministic fingerprint")
	}

	changed := base
	changed.DiffLines = 11
	c := Detect(changed)
	if a.EventFingerprint == c.EventFingerprint {
		t.Fatal("expected fingerprint to change with diff_lines")
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
