package continuity

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/onecode-dev/continuity-engine/internal/anchorpack"
	"github.com/onecode-dev/continuity-engine/internal/artifacts"
	"github.com/onecode-dev/continuity-engine/internal/budget"
	"github.com/onecode-dev/continuity-engine/internal/config"
	"github.com/onecode-dev/continuity-engine/internal/contextpack"
	"github.com/onecode-dev/continuity-engine/internal/deltapack"
	"github.com/onecode-dev/continuity-engine/internal/envelope"
	"github.com/onecode-dev/continuity-engine/internal/eventdetector"
	"github.com/onecode-dev/continuity-engine/internal/fsread"
	"github.com/onecode-dev/continuity-engine/internal/governor"
	"github.com/onecode-dev/continuity-engine/internal/hashutil"
	"github.com/onecode-dev/continuity-engine/internal/rehydrate"
	"github.com/onecode-dev/continuity-engine/internal/reposcan"
	"github.com/onecode-dev/continuity-engine/internal/safeguard"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
	"github.com/onecode-dev/continuity-engine/internal/store"
	"github.com/onecode-dev/continuity-engine/internal/telemetry"
	"github.com/onecode-dev/continuity-engine/internal/vcs"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// infiniteElapsed stands in for "no prior snapshot" in the governor's
// elapsed-time signal: large enough to always clear the rehydrate
// threshold, never produced by any real duration subtraction.
const infiniteElapsed = time.Duration(1) << 61

const (
	maxDevlogPromptBytes     = 900
	maxDevlogResponseBytes   = 1500
	maxDevlogChangedFiles    = 24
	maxADRBoundaryFiles      = 12
	maxRejectedPromptBytes   = 900
	maxRejectedResponseBytes = 1500
)

// Engine is the composition root: every collaborator the spec names in
// §6, wired once and shared across calls. The zero value is not usable;
// construct with New.
type Engine struct {
	Store     *store.Store
	Prober    vcs.Prober
	FS        fsread.Reader
	Session   sessionstore.Store
	Telemetry telemetry.Sink

	locks sync.Map // sub_session_id -> *sync.Mutex
}

// New constructs an Engine from its collaborators. Telemetry defaults to
// a no-op sink if nil.
func New(st *store.Store, prober vcs.Prober, fs fsread.Reader, session sessionstore.Store, sink telemetry.Sink) *Engine {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &Engine{Store: st, Prober: prober, FS: fs, Session: session, Telemetry: sink}
}

func (e *Engine) lockFor(subSessionID string) func() {
	v, _ := e.locks.LoadOrStore(subSessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// resolveConfig resolves env and the persisted settings table via
// config.Resolve, then layers on an optional continuity.yaml at the repo
// root (projectPath, or cwd if projectPath is unset): a value from the file
// replaces the resolved one for every setting whose environment variable
// is unset, including a token mode taken from the settings table.
func (e *Engine) resolveConfig(cwd string, projectPath *string) config.Config {
	cfg := config.Resolve(e.Store.GetSettings())
	dir := cwd
	if projectPath != nil && *projectPath != "" {
		dir = *projectPath
	}
	file := config.LoadFile(filepath.Join(dir, "continuity.yaml"))
	return cfg.Apply(file)
}

// Apply implements spec §4.8.
func (e *Engine) Apply(ctx context.Context, in ApplyInput) ApplyOutput {
	unlock := e.lockFor(in.SubSessionID)
	defer unlock()

	cfg := e.resolveConfig(in.Cwd, in.ProjectPath)

	if cfg.Mode == config.ModeOff {
		ids := envelope.StateIDs{}
		if in.Mode == sessionstore.ModePlan {
			ids.PlanContractID = hashutil.Sha256Hex(normalizePrompt(in.Prompt))
		}
		return ApplyOutput{PromptOut: in.Prompt, CacheHit: false, InjectedBytes: 0, ReusedPercent: 100, StateIDs: ids}
	}

	profile := budget.Resolve(cfg.TokenMode)
	taskFingerprint := TaskFingerprint(in.Prompt)
	repoState := reposcan.Scan(ctx, e.Prober, in.Cwd)
	cacheKey := CacheKey(taskFingerprint, repoState.ChangedFilesHash, repoState.HeadCommit, in.Provider, in.Mode, profile.MaxPackBytes)

	anchorPackID := hashutil.Sha256Fields(in.Cwd, "anchor", repoState.HeadCommit)
	contextPackID := hashutil.Sha256Hex(cacheKey)
	var planContractID string
	if in.Mode == sessionstore.ModePlan {
		planContractID = hashutil.Sha256Hex(normalizePrompt(in.Prompt))
	}

	prevState, hasPrevState := e.Store.GetSessionState(in.SubSessionID)
	lastChangedFilesHash := ""
	if hasPrevState {
		lastChangedFilesHash = prevState.LastChangedFilesHash
	}

	deltaResult := deltapack.Build(ctx, deltapack.Deps{Prober: e.Prober, Session: e.Session},
		in.Cwd, in.SubSessionID, in.Prompt, lastChangedFilesHash, repoState.ChangedFiles)
	deltaPackID := hashutil.Sha256Hex(deltaResult.Text)

	stateIDs := envelope.StateIDs{
		AnchorPackID:   anchorPackID,
		ContextPackID:  contextPackID,
		PlanContractID: planContractID,
		DeltaPackID:    deltaPackID,
	}
	objective := hashutil.ClampByBytes(firstNonBlankLine(in.Prompt), 200)

	entry, hit := e.Store.GetPack(cacheKey)

	var packText string
	var reused int

	if hit {
		if lastKey, ok := e.Store.LastCacheKey(in.SubSessionID); ok && lastKey == cacheKey {
			packText = envelope.BuildDeltaOnly(stateIDs, deltaResult.Text, objective)
			reused = 95
		} else {
			packText = entry.PackText
			reused = 75
		}
		e.Store.SetLastCacheKey(in.SubSessionID, cacheKey)
	} else {
		anchorText := anchorpack.Build(in.Cwd)
		contextText := contextpack.Build(ctx, contextpack.Deps{Store: e.Store, Prober: e.Prober, FS: e.FS},
			in.Cwd, repoState.HeadCommit, in.Prompt, repoState.ChangedFiles, profile)

		var planContractText string
		if in.Mode == sessionstore.ModePlan {
			planContractText = normalizePrompt(in.Prompt)
		}

		full := envelope.BuildFull(stateIDs, anchorText, contextText, planContractText, deltaResult.Text, objective)
		packText = hashutil.ClampByBytes(full, profile.MaxPackBytes)
		reused = 35

		e.Store.UpsertPack(store.PackCacheEntry{
			Key:              cacheKey,
			TaskFingerprint:  taskFingerprint,
			ChangedFilesHash: repoState.ChangedFilesHash,
			HeadCommit:       repoState.HeadCommit,
			Provider:         string(in.Provider),
			Mode:             string(in.Mode),
			BudgetBytes:      profile.MaxPackBytes,
			PackText:         packText,
		})

		newState := store.SessionState{
			SubSessionID:         in.SubSessionID,
			LastChangedFilesHash: repoState.ChangedFilesHash,
			TurnsSinceSnapshot:   prevState.TurnsSinceSnapshot,
			TotalInjectedBytes:   len(packText),
			LastSnapshotAt:       prevState.LastSnapshotAt,
		}
		e.Store.UpsertSessionState(newState)
	}

	finalPrompt := in.Prompt
	if cfg.Mode != config.ModePassive {
		finalPrompt = packText + "\n\n" + in.Prompt
	}

	injected := len(finalPrompt) - len(in.Prompt)
	if injected < 0 {
		injected = 0
	}

	e.Telemetry.Emit(telemetry.Event{
		Type: telemetry.EventPackMetrics,
		Fields: map[string]any{
			"sub_session_id": in.SubSessionID,
			"cache_hit":      hit,
			"reused_percent": reused,
			"injected_bytes": injected,
			"mode":           string(cfg.Mode),
		},
	})

	return ApplyOutput{PromptOut: finalPrompt, CacheHit: hit, InjectedBytes: injected, ReusedPercent: reused, StateIDs: stateIDs}
}

// RecordRunOutcome implements spec §4.13.
func (e *Engine) RecordRunOutcome(ctx context.Context, in RecordRunOutcomeInput) RecordRunOutcomeOutput {
	unlock := e.lockFor(in.SubSessionID)
	defer unlock()

	cfg := e.resolveConfig(in.Cwd, in.ProjectPath)
	if cfg.Mode == config.ModeOff {
		return RecordRunOutcomeOutput{Action: governor.ActionOK, Reasons: nil}
	}

	repoState := reposcan.Scan(ctx, e.Prober, in.Cwd)
	diffLines := 0
	if e.Prober != nil {
		diffLines = e.Prober.DiffStats(ctx, in.Cwd)
	}

	prevState, _ := e.Store.GetSessionState(in.SubSessionID)

	injected := 0
	if in.InjectedBytes != nil && *in.InjectedBytes > 0 {
		injected = *in.InjectedBytes
	}
	turns := prevState.TurnsSinceSnapshot + 1
	totalBytes := prevState.TotalInjectedBytes + injected

	elapsed := infiniteElapsed
	if prevState.LastSnapshotAt != nil {
		elapsed = timeNow().Sub(*prevState.LastSnapshotAt)
	}

	var settings store.Settings
	var safeguardDecision safeguard.Decision
	currentBranch := vcs.UnknownBranch
	if e.Prober != nil {
		currentBranch = e.Prober.CurrentBranch(ctx, in.Cwd)
	}
	if cfg.Mode == config.ModeActive {
		settings = e.Store.GetSettings()
		safeguardDecision = safeguard.Evaluate(settings, currentBranch)
	}

	decision := governor.Decide(governor.Signals{
		TurnsSinceSnapshot:   turns,
		TotalInjectedBytes:   totalBytes,
		ChangedFilesCount:    len(repoState.ChangedFiles),
		DiffLines:            diffLines,
		ElapsedSinceSnapshot: elapsed,
	}, governor.Capabilities{SnapshotEnabled: cfg.SnapshotEnabled, RehydrateEnabled: cfg.RehydrateEnabled})
	effectiveAction := decision.Action

	wasError := in.WasError != nil && *in.WasError
	det := eventdetector.Detect(eventdetector.Input{
		HeadCommit:        repoState.HeadCommit,
		ChangedFiles:       repoState.ChangedFiles,
		ChangedFilesHash:   repoState.ChangedFilesHash,
		DiffLines:          diffLines,
		AssistantResponse:  in.AssistantResponse,
		WasError:           wasError,
	})

	if cfg.Mode == config.ModeActive {
		writer := artifacts.Writer{Store: e.Store}
		if det.Devlog {
			content := e.renderDevlogContent(in, repoState, diffLines, det.Reasons, settings, safeguardDecision, currentBranch)
			writer.WriteIfNew(in.SubSessionID, store.ArtifactDevlog, det.EventFingerprint, content, "event-detector")
		}
		if det.ADR {
			content := renderADRContent(det.BoundaryFiles)
			writer.WriteIfNew(in.SubSessionID, store.ArtifactADR, det.EventFingerprint+":adr", content, "event-detector")
		}
		if det.RejectedApproach {
			content := renderRejectedContent(det.RejectedReason, in.Prompt, in.AssistantResponse)
			writer.WriteIfNew(in.SubSessionID, store.ArtifactRejectedApproach, det.EventFingerprint+":rejected", content, "event-detector")
		}
	}

	newState := store.SessionState{
		SubSessionID:         in.SubSessionID,
		LastChangedFilesHash: repoState.ChangedFilesHash,
	}
	if effectiveAction == governor.ActionOK {
		newState.TurnsSinceSnapshot = turns
		newState.TotalInjectedBytes = totalBytes
		newState.LastSnapshotAt = prevState.LastSnapshotAt
	} else {
		newState.TurnsSinceSnapshot = 0
		newState.TotalInjectedBytes = 0
		now := timeNow()
		newState.LastSnapshotAt = &now
	}
	e.Store.UpsertSessionState(newState)

	if cfg.Mode == config.ModeActive && effectiveAction != governor.ActionOK {
		writer := artifacts.Writer{Store: e.Store}
		fp := fmt.Sprintf("%s:governor-action:%d", effectiveAction, timeNow().UnixNano())
		content := renderGovernorActionContent(effectiveAction, decision.Reasons)
		writer.WriteIfNew(in.SubSessionID, store.ArtifactDevlog, fp, content, "governor")
	}

	if safeguardDecision.Requested {
		eventType := "auto-commit-allowed"
		if !safeguardDecision.Allowed {
			eventType = "auto-commit-blocked"
		}
		e.Telemetry.Emit(telemetry.Event{
			Type: telemetry.EventSafeguard,
			Fields: map[string]any{
				"sub_session_id": in.SubSessionID,
				"event":          eventType,
				"current_branch": currentBranch,
			},
		})
		if !safeguardDecision.Allowed {
			writer := artifacts.Writer{Store: e.Store}
			fp := safeguard.BlockFingerprint(repoState.HeadCommit, currentBranch)
			content := safeguard.BlockContent(repoState.HeadCommit, currentBranch, settings.MemoryBranch)
			writer.WriteIfNew(in.SubSessionID, store.ArtifactDevlog, fp, content, "safeguard")
		}
	}

	if cfg.Mode == config.ModeActive && effectiveAction == governor.ActionRehydrate {
		rehydrate.Run(rehydrate.Deps{Store: e.Store, Session: e.Session}, in.SubSessionID, in.Mode, decision.Reasons, in.Prompt)
	}

	e.Telemetry.Emit(telemetry.Event{
		Type: telemetry.EventGovernorAction,
		Fields: map[string]any{
			"sub_session_id": in.SubSessionID,
			"action":         string(effectiveAction),
			"reasons":        strings.Join(decision.Reasons, ";"),
		},
	})

	return RecordRunOutcomeOutput{Action: effectiveAction, Reasons: decision.Reasons}
}

func (e *Engine) renderDevlogContent(in RecordRunOutcomeInput, repoState reposcan.State, diffLines int, reasons []string,
	settings store.Settings, sg safeguard.Decision, currentBranch string) string {

	n := maxDevlogChangedFiles
	if n > len(repoState.ChangedFiles) {
		n = len(repoState.ChangedFiles)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "provider: %s\n", in.Provider)
	fmt.Fprintf(&b, "mode: %s\n", in.Mode)
	fmt.Fprintf(&b, "commit: %s\n", repoState.HeadCommit)
	b.WriteString("changed_files:\n")
	for _, f := range repoState.ChangedFiles[:n] {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "diff_lines: %d\n", diffLines)
	fmt.Fprintf(&b, "reasons: %s\n", strings.Join(reasons, ";"))
	fmt.Fprintf(&b, "artifact_policy: %s\n", settings.ArtifactPolicy)
	fmt.Fprintf(&b, "memory_branch: %s\n", settings.MemoryBranch)
	fmt.Fprintf(&b, "auto_commit_requested: %s\n", strconv.FormatBool(sg.Requested))
	fmt.Fprintf(&b, "auto_commit_allowed: %s\n", strconv.FormatBool(sg.Allowed))
	fmt.Fprintf(&b, "current_branch: %s\n", currentBranch)
	fmt.Fprintf(&b, "prompt: %s\n", hashutil.ClampByBytes(in.Prompt, maxDevlogPromptBytes))
	fmt.Fprintf(&b, "assistant_summary: %s\n", hashutil.ClampByBytes(in.AssistantResponse, maxDevlogResponseBytes))
	return b.String()
}

func renderADRContent(boundaryFiles []string) string {
	n := maxADRBoundaryFiles
	if n > len(boundaryFiles) {
		n = len(boundaryFiles)
	}
	var b strings.Builder
	b.WriteString("boundary_files:\n")
	for _, f := range boundaryFiles[:n] {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("decision: <pending review>\n")
	b.WriteString("consequences: <pending review>\n")
	return b.String()
}

func renderRejectedContent(reason, prompt, response string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "reason: %s\n", reason)
	fmt.Fprintf(&b, "prompt: %s\n", hashutil.ClampByBytes(prompt, maxRejectedPromptBytes))
	fmt.Fprintf(&b, "assistant_response: %s\n", hashutil.ClampByBytes(response, maxRejectedResponseBytes))
	return b.String()
}

func renderGovernorActionContent(action governor.Action, reasons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "action: %s\n", action)
	fmt.Fprintf(&b, "reasons: %s\n", strings.Join(reasons, ";"))
	return b.String()
}
