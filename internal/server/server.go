// Package server wires the continuity engine and its collaborators into
// an MCP server — the composition root (DIP): it creates concrete
// implementations and injects them into the tools/resources that depend
// on abstractions. No business logic lives here, only wiring, the same
// division of concerns as Hoofy's own internal/server/server.go.
package server

import (
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/onecode-dev/continuity-engine/internal/continuity"
	"github.com/onecode-dev/continuity-engine/internal/fsread"
	"github.com/onecode-dev/continuity-engine/internal/resources"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
	"github.com/onecode-dev/continuity-engine/internal/store"
	"github.com/onecode-dev/continuity-engine/internal/telemetry"
	"github.com/onecode-dev/continuity-engine/internal/tools"
	"github.com/onecode-dev/continuity-engine/internal/vcs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config selects the data directory the engine's two SQLite-backed
// stores live under.
type Config struct {
	DataDir string
}

// NewEngine opens both SQLite-backed stores under cfg.DataDir and
// returns a ready-to-use engine plus its own store, for callers (the CLI's
// apply/record subcommands) that need the engine without a full MCP
// server around it.
//
// The returned cleanup function closes both SQLite connections and must
// be called on shutdown (typically via defer). It is always non-nil and
// safe to call even if a later step failed.
func NewEngine(cfg Config) (*continuity.Engine, *store.Store, func(), error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, noop, err
	}
	cleanup := func() { st.Close() }

	sess, err := sessionstore.Open(cfg.DataDir)
	if err != nil {
		cleanup()
		return nil, nil, noop, err
	}
	cleanup = func() {
		st.Close()
		sess.Close()
	}

	prober := vcs.New()
	sink := telemetry.NewLogSink(slog.Default())
	engine := continuity.New(st, prober, fsread.New(), sess, sink)
	return engine, st, cleanup, nil
}

// New creates and configures the MCP server with the continuity_apply,
// continuity_record_run_outcome, and continuity_artifacts tools plus the
// recent-artifacts resource registered. This is the single place where
// every dependency is resolved.
//
// The returned cleanup function closes both SQLite connections and must
// be called on shutdown (typically via defer). It is always non-nil and
// safe to call even if a later step failed.
func New(cfg Config) (*mcpserver.MCPServer, func(), error) {
	engine, st, cleanup, err := NewEngine(cfg)
	if err != nil {
		return nil, noop, err
	}

	s := mcpserver.NewMCPServer(
		"continuity-engine",
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions()),
	)

	applyTool := tools.NewApplyTool(engine)
	s.AddTool(applyTool.Definition(), applyTool.Handle)

	recordTool := tools.NewRecordRunOutcomeTool(engine)
	s.AddTool(recordTool.Definition(), recordTool.Handle)

	artifactsTool := tools.NewArtifactsTool(st)
	s.AddTool(artifactsTool.Definition(), artifactsTool.Handle)

	resourceHandler := resources.NewHandler(st)
	s.AddResource(resourceHandler.ArtifactsResource(), resourceHandler.HandleArtifacts)

	return s, cleanup, nil
}

func noop() {}

func serverInstructions() string {
	return `You have access to the continuity engine, an MCP server that keeps
long-running coding sessions coherent across provider turns and context resets.

Call continuity_apply before sending a prompt to the provider — it returns a
composed prompt (or the original prompt unchanged, in passive/off mode) that
carries a cache-aware context pack: anchor facts about the repo, a bounded
context excerpt relevant to the prompt, a delta since the last turn, and a
set of state ids identifying which cached sub-packs contributed.

Call continuity_record_run_outcome after the provider turn completes, passing
the prompt, the provider's response, and whether the turn errored. This
updates governor pressure signals (turns, bytes, changed files, diff size,
elapsed time) and may trigger a snapshot or rehydrate action, along with
devlog/ADR/rejected-approach artifacts recorded to durable memory.

Call continuity_artifacts to list recent artifacts for a sub-session, or read
the continuity://artifacts/recent resource for an HTML-rendered feed across
all sub-sessions.`
}
