package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/onecode-dev/continuity-engine/internal/continuity"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
)

// Engine is the subset of the continuity engine the tool layer depends
// on. Production wiring injects *continuity.Engine; tests inject a fake.
type Engine interface {
	Apply(ctx context.Context, in continuity.ApplyInput) continuity.ApplyOutput
	RecordRunOutcome(ctx context.Context, in continuity.RecordRunOutcomeInput) continuity.RecordRunOutcomeOutput
}

// ApplyTool handles the continuity_apply MCP tool.
type ApplyTool struct {
	engine Engine
}

// NewApplyTool creates an ApplyTool wrapping engine.
func NewApplyTool(engine Engine) *ApplyTool {
	return &ApplyTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("continuity_apply",
		mcp.WithDescription(
			"Pre-run hook: call before sending a prompt to the provider. "+
				"Assembles (or reuses from cache) a continuity pack — anchor, "+
				"context, delta, and state-id sections — and returns the "+
				"composed prompt to send instead of the raw one.",
		),
		mcp.WithString("sub_session_id",
			mcp.Required(),
			mcp.Description("Identifier of the sub-session this turn belongs to"),
		),
		mcp.WithString("cwd",
			mcp.Required(),
			mcp.Description("Absolute path to the repository working tree"),
		),
		mcp.WithString("project_path",
			mcp.Description("Optional project path, if distinct from cwd"),
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The user's raw prompt for this turn"),
		),
		mcp.WithString("mode",
			mcp.Description("Conversational mode: plan or agent (default: agent)"),
		),
		mcp.WithString("provider",
			mcp.Description("Destination provider: claude or codex (default: claude)"),
		),
	)
}

// Handle processes the continuity_apply tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subSessionID := req.GetString("sub_session_id", "")
	if strings.TrimSpace(subSessionID) == "" {
		return mcp.NewToolResultError("'sub_session_id' is required"), nil
	}
	cwd := req.GetString("cwd", "")
	if strings.TrimSpace(cwd) == "" {
		return mcp.NewToolResultError("'cwd' is required"), nil
	}
	prompt := req.GetString("prompt", "")
	if prompt == "" {
		return mcp.NewToolResultError("'prompt' is required"), nil
	}

	out := t.engine.Apply(ctx, continuity.ApplyInput{
		SubSessionID: subSessionID,
		Cwd:          cwd,
		ProjectPath:  stringArgPtr(req, "project_path"),
		Prompt:       prompt,
		Mode:         parseMode(req.GetString("mode", "agent")),
		Provider:     parseProvider(req.GetString("provider", "claude")),
	})

	payload, err := json.Marshal(map[string]any{
		"prompt_out":     out.PromptOut,
		"cache_hit":      out.CacheHit,
		"injected_bytes": out.InjectedBytes,
		"reused_percent": out.ReusedPercent,
		"state_ids": map[string]string{
			"anchor_pack_id":   out.StateIDs.AnchorPackID,
			"context_pack_id":  out.StateIDs.ContextPackID,
			"plan_contract_id": out.StateIDs.PlanContractID,
			"delta_pack_id":    out.StateIDs.DeltaPackID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling apply result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func parseMode(s string) sessionstore.Mode {
	if sessionstore.Mode(s) == sessionstore.ModePlan {
		return sessionstore.ModePlan
	}
	return sessionstore.ModeAgent
}

func parseProvider(s string) continuity.Provider {
	if continuity.Provider(s) == continuity.ProviderCodex {
		return continuity.ProviderCodex
	}
	return continuity.ProviderClaude
}
