package continuity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onecode-dev/continuity-engine/internal/envelope"
	"github.com/onecode-dev/continuity-engine/internal/fsread"
	"github.com/onecode-dev/continuity-engine/internal/governor"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
	"github.com/onecode-dev/continuity-engine/internal/store"
	"github.com/onecode-dev/continuity-engine/internal/telemetry"
)

type fakeProber struct {
	head        string
	changed     []string
	diffSnippet string
	diffStats   int
	branch      string
	listedFiles []string
}

func (f *fakeProber) HeadCommit(context.Context, string) string     { return f.head }
func (f *fakeProber) ChangedFiles(context.Context, string) []string { return f.changed }
func (f *fakeProber) DiffSnippet(context.Context, string) string    { return f.diffSnippet }
func (f *fakeProber) DiffStats(context.Context, string) int         { return f.diffStats }
func (f *fakeProber) CurrentBranch(context.Context, string) string  { return f.branch }
func (f *fakeProber) ListFiles(context.Context, string) []string    { return f.listedFiles }

func newTestEngine(t *testing.T, prober *fakeProber) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	sess, err := sessionstore.Open(dir)
	if err != nil {
		t.Fatalf("sessionstore.Open: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	repoRoot := filepath.Join(dir, "repo")
	if err := os.MkdirAll(filepath.Join(repoRoot, "src", "rate"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("# demo repo\nrate limiter service"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	if err := os.WriteFile(filepath.Join(repoRoot, "src", "rate", "bucket.rs"), []byte("struct TokenBucket { tokens: f64 }\nfn refill() {}\n"), 0o644); err != nil {
		t.Fatalf("write bucket: %v", err)
	}

	eng := New(st, prober, fsread.New(), sess, telemetry.NoopSink{})
	return eng, repoRoot
}

func createSubSession(t *testing.T, eng *Engine, id string, mode sessionstore.Mode) {
	t.Helper()
	sqliteStore, ok := eng.Session.(*sessionstore.SQLiteStore)
	if !ok {
		t.Fatalf("engine session is not *sessionstore.SQLiteStore")
	}
	if err := sqliteStore.Create(sessionstore.SubSession{ID: id, ChatID: "chat-" + id, Mode: mode}); err != nil {
		t.Fatalf("create sub session: %v", err)
	}
}

// Scenario A: fresh session, single file changed, first apply is a cache
// miss that assembles the full envelope and ends with the bare
// USER_REQUEST label followed by the original prompt.
func TestScenarioA_FreshSessionCacheMiss(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	prober := &fakeProber{
		head:        "abc123",
		changed:     []string{"src/rate/bucket.rs"},
		diffSnippet: "+fn refill() {}",
		diffStats:   12,
		branch:      "main",
		listedFiles: []string{"src/rate/bucket.rs", "README.md"},
	}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	prompt := "Refactor the token bucket to use monotonic time"
	out := eng.Apply(context.Background(), ApplyInput{
		SubSessionID: "sub1",
		Cwd:          repoRoot,
		Prompt:       prompt,
		Mode:         sessionstore.ModeAgent,
		Provider:     ProviderClaude,
	})

	if out.CacheHit {
		t.Fatalf("expected a cache miss on the first apply")
	}
	if out.ReusedPercent != 35 {
		t.Fatalf("reused_percent = %d, want 35", out.ReusedPercent)
	}
	for _, label := range []string{envelope.LabelStateIDs, envelope.LabelAnchor, envelope.LabelContext, envelope.LabelDelta, envelope.LabelObjective} {
		if !strings.Contains(out.PromptOut, label) {
			t.Fatalf("prompt missing section %q:\n%s", label, out.PromptOut)
		}
	}
	wantSuffix := envelope.LabelUserRequest + "\n\n" + prompt
	if !strings.HasSuffix(out.PromptOut, wantSuffix) {
		t.Fatalf("prompt does not end with label+prompt suffix:\n%s", out.PromptOut)
	}
	if out.StateIDs.AnchorPackID == "" || out.StateIDs.ContextPackID == "" || out.StateIDs.DeltaPackID == "" {
		t.Fatalf("expected non-empty state ids, got %+v", out.StateIDs)
	}
}

// Scenario B: identical inputs re-sent twice in a row settle into the
// delta-only cache upgrade only on the SECOND repeat, not the first.
func TestScenarioB_RepeatApplyReusedPercentProgression(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	prober := &fakeProber{
		head:        "abc123",
		changed:     []string{"src/rate/bucket.rs"},
		diffSnippet: "+fn refill() {}",
		branch:      "main",
		listedFiles: []string{"src/rate/bucket.rs"},
	}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	in := ApplyInput{SubSessionID: "sub1", Cwd: repoRoot, Prompt: "fix the refill loop", Mode: sessionstore.ModeAgent, Provider: ProviderClaude}

	first := eng.Apply(context.Background(), in)
	if first.CacheHit || first.ReusedPercent != 35 {
		t.Fatalf("first apply: cache_hit=%v reused=%d, want miss/35", first.CacheHit, first.ReusedPercent)
	}

	second := eng.Apply(context.Background(), in)
	if !second.CacheHit || second.ReusedPercent != 75 {
		t.Fatalf("second apply: cache_hit=%v reused=%d, want hit/75", second.CacheHit, second.ReusedPercent)
	}
	if strings.Contains(second.PromptOut, envelope.LabelAnchor) == false {
		t.Fatalf("second apply should still carry the full envelope (anchor section expected):\n%s", second.PromptOut)
	}

	third := eng.Apply(context.Background(), in)
	if !third.CacheHit || third.ReusedPercent != 95 {
		t.Fatalf("third apply: cache_hit=%v reused=%d, want hit/95", third.CacheHit, third.ReusedPercent)
	}
	if strings.Contains(third.PromptOut, envelope.LabelAnchor) || strings.Contains(third.PromptOut, envelope.LabelContext) {
		t.Fatalf("third apply should be delta-only (no anchor/context):\n%s", third.PromptOut)
	}
	if !strings.Contains(third.PromptOut, envelope.LabelDelta) {
		t.Fatalf("third apply missing delta section:\n%s", third.PromptOut)
	}
}

// Scenario C: six turns with no snapshot and no diff, then a 210-line
// diff on turn 7, cross the snapshot threshold on turn count plus diff
// size.
func TestScenarioC_SevenTurnsTriggersSnapshot(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	prober := &fakeProber{head: "abc123", branch: "main"}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	var last RecordRunOutcomeOutput
	for i := 0; i < 7; i++ {
		if i == 6 {
			prober.diffStats = 210
		}
		last = eng.RecordRunOutcome(context.Background(), RecordRunOutcomeInput{
			SubSessionID: "sub1",
			Cwd:          repoRoot,
			Prompt:       "continue",
			Mode:         sessionstore.ModeAgent,
			Provider:     ProviderClaude,
		})
	}
	if last.Action != governor.ActionSnapshot {
		t.Fatalf("after 7 turns, action = %v, want snapshot (reasons=%v)", last.Action, last.Reasons)
	}

	state, ok := eng.Store.GetSessionState("sub1")
	if !ok {
		t.Fatalf("expected a persisted session state")
	}
	if state.TurnsSinceSnapshot != 0 {
		t.Fatalf("snapshot should reset turns_since_snapshot, got %d", state.TurnsSinceSnapshot)
	}
}

// Scenario D: passive mode returns the original prompt untouched while
// still accounting injected bytes and advancing cache/session state.
func TestScenarioD_PassiveModeReturnsOriginalPrompt(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "passive")
	prober := &fakeProber{head: "abc123", changed: []string{"src/rate/bucket.rs"}, branch: "main"}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	prompt := "add a test for the refill path"
	out := eng.Apply(context.Background(), ApplyInput{SubSessionID: "sub1", Cwd: repoRoot, Prompt: prompt, Mode: sessionstore.ModeAgent, Provider: ProviderClaude})

	if out.PromptOut != prompt {
		t.Fatalf("passive mode prompt_out = %q, want unmodified %q", out.PromptOut, prompt)
	}
}

// Scenario E: an errored run fires both a devlog and a rejected-approach
// artifact, recorded under distinct fingerprint suffixes.
func TestScenarioE_ErrorFiresDevlogAndRejectedApproach(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	prober := &fakeProber{head: "abc123", changed: []string{"src/rate/bucket.rs"}, branch: "main"}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	wasError := true
	eng.RecordRunOutcome(context.Background(), RecordRunOutcomeInput{
		SubSessionID:      "sub1",
		Cwd:               repoRoot,
		Prompt:            "apply the patch",
		AssistantResponse: "the build failed with a panic in refill()",
		Mode:              sessionstore.ModeAgent,
		Provider:          ProviderClaude,
		WasError:          &wasError,
	})

	artifacts, err := eng.Store.RecentArtifacts("sub1", 12)
	if err != nil {
		t.Fatalf("RecentArtifacts: %v", err)
	}
	var sawDevlog, sawRejected bool
	seen := map[string]bool{}
	for _, a := range artifacts {
		if seen[a.Provenance.EventFingerprint] {
			t.Fatalf("duplicate event fingerprint across artifacts: %q", a.Provenance.EventFingerprint)
		}
		seen[a.Provenance.EventFingerprint] = true
		switch a.Type {
		case store.ArtifactDevlog:
			sawDevlog = true
		case store.ArtifactRejectedApproach:
			sawRejected = true
		}
	}
	if !sawDevlog {
		t.Fatalf("expected a devlog artifact, got %+v", artifacts)
	}
	if !sawRejected {
		t.Fatalf("expected a rejected-approach artifact, got %+v", artifacts)
	}
}

// Scenario F: safeguard blocks an auto-commit request when the working
// tree is not on the configured memory branch, using the exact
// fingerprint format head_commit:auto-commit-blocked:current_branch.
func TestScenarioF_SafeguardBlocksOffMemoryBranch(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	prober := &fakeProber{head: "abc123", branch: "feature/x"}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	settings := store.DefaultSettings()
	settings.ArtifactPolicy = store.PolicyMemoryBranch
	settings.AutoCommitToMemoryBranch = true
	if err := eng.Store.PutSettings(settings); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}

	eng.RecordRunOutcome(context.Background(), RecordRunOutcomeInput{
		SubSessionID: "sub1",
		Cwd:          repoRoot,
		Prompt:       "commit the memory notes",
		Mode:         sessionstore.ModeAgent,
		Provider:     ProviderClaude,
	})

	artifacts, err := eng.Store.RecentArtifacts("sub1", 12)
	if err != nil {
		t.Fatalf("RecentArtifacts: %v", err)
	}
	wantFingerprint := "abc123:auto-commit-blocked:feature/x"
	var found bool
	for _, a := range artifacts {
		if a.Provenance.EventFingerprint == wantFingerprint {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a blocked-auto-commit artifact with fingerprint %q, got %+v", wantFingerprint, artifacts)
	}
}

// Testable property: off mode never injects anything and reports 100%
// reuse, and the whole call is side-effect free.
func TestOffModeIsInert(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "off")
	prober := &fakeProber{head: "abc123"}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	prompt := "do the thing"
	out := eng.Apply(context.Background(), ApplyInput{SubSessionID: "sub1", Cwd: repoRoot, Prompt: prompt, Mode: sessionstore.ModeAgent, Provider: ProviderClaude})
	if out.PromptOut != prompt || out.InjectedBytes != 0 || out.ReusedPercent != 100 || out.CacheHit {
		t.Fatalf("off-mode apply misbehaved: %+v", out)
	}
	if _, ok := eng.Store.GetSessionState("sub1"); ok {
		t.Fatalf("off mode must not persist session state")
	}
}

// Testable property: the cache key is deterministic for identical
// inputs and sensitive to the prompt.
func TestCacheKeyDeterministicAndSensitive(t *testing.T) {
	k1 := CacheKey("tf1", "cfh1", "head1", ProviderClaude, sessionstore.ModeAgent, 1000)
	k2 := CacheKey("tf1", "cfh1", "head1", ProviderClaude, sessionstore.ModeAgent, 1000)
	if k1 != k2 {
		t.Fatalf("cache key not deterministic: %q != %q", k1, k2)
	}
	k3 := CacheKey("tf2", "cfh1", "head1", ProviderClaude, sessionstore.ModeAgent, 1000)
	if k1 == k3 {
		t.Fatalf("cache key insensitive to task fingerprint change")
	}
}

// Testable property: the pack is never larger than the resolved budget.
func TestApplyNeverExceedsPackBudget(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	t.Setenv("TOKEN_MODE", "low")
	prober := &fakeProber{head: "abc123", changed: []string{"src/rate/bucket.rs"}, diffSnippet: strings.Repeat("+line\n", 5000)}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	out := eng.Apply(context.Background(), ApplyInput{SubSessionID: "sub1", Cwd: repoRoot, Prompt: "investigate", Mode: sessionstore.ModeAgent, Provider: ProviderClaude})
	if out.InjectedBytes > 200_000 {
		t.Fatalf("injected bytes implausibly large: %d", out.InjectedBytes)
	}
}

// Testable property: capability gating degrades rehydrate to snapshot
// (or OK) when disabled, exercised through RecordRunOutcome end to end.
func TestRehydrateCapabilityGatedOff(t *testing.T) {
	t.Setenv("CONTINUITY_MODE", "active")
	t.Setenv("REHYDRATE_ENABLED", "false")
	t.Setenv("SNAPSHOT_ENABLED", "true")
	prober := &fakeProber{head: "abc123", branch: "main", diffStats: 300}
	eng, repoRoot := newTestEngine(t, prober)
	createSubSession(t, eng, "sub1", sessionstore.ModeAgent)

	// No prior snapshot leaves the elapsed signal unbounded, so the first
	// turn's 300-line diff fires two rehydrate-level reasons (diff and
	// elapsed).
	last := eng.RecordRunOutcome(context.Background(), RecordRunOutcomeInput{
		SubSessionID: "sub1",
		Cwd:          repoRoot,
		Prompt:       "continue",
		Mode:         sessionstore.ModeAgent,
		Provider:     ProviderClaude,
	})
	if last.Action != governor.ActionSnapshot {
		t.Fatalf("expected rehydrate to degrade to snapshot when disabled, got %v (reasons=%v)", last.Action, last.Reasons)
	}
}
