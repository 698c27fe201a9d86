package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/onecode-dev/continuity-engine/internal/continuity"
)

// RecordRunOutcomeTool handles the continuity_record_run_outcome MCP tool.
type RecordRunOutcomeTool struct {
	engine Engine
}

// NewRecordRunOutcomeTool creates a RecordRunOutcomeTool wrapping engine.
func NewRecordRunOutcomeTool(engine Engine) *RecordRunOutcomeTool {
	return &RecordRunOutcomeTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *RecordRunOutcomeTool) Definition() mcp.Tool {
	return mcp.NewTool("continuity_record_run_outcome",
		mcp.WithDescription(
			"Post-run hook: call after a provider turn completes. Updates "+
				"governor pressure signals, may emit devlog/ADR/rejected-approach "+
				"artifacts, and returns the resulting action (ok, snapshot, "+
				"or rehydrate).",
		),
		mcp.WithString("sub_session_id",
			mcp.Required(),
			mcp.Description("Identifier of the sub-session this turn belonged to"),
		),
		mcp.WithString("cwd",
			mcp.Required(),
			mcp.Description("Absolute path to the repository working tree"),
		),
		mcp.WithString("project_path",
			mcp.Description("Optional project path, if distinct from cwd"),
		),
		mcp.WithString("provider",
			mcp.Description("Destination provider: claude or codex (default: claude)"),
		),
		mcp.WithString("mode",
			mcp.Description("Conversational mode: plan or agent (default: agent)"),
		),
		mcp.WithString("prompt",
			mcp.Description("The prompt that was sent for this turn"),
		),
		mcp.WithString("assistant_response",
			mcp.Description("The provider's response text for this turn"),
		),
		mcp.WithNumber("injected_bytes",
			mcp.Description("Bytes of continuity pack injected ahead of this turn's prompt, if known"),
		),
		mcp.WithBoolean("was_error",
			mcp.Description("Whether this turn ended in an error"),
		),
	)
}

// Handle processes the continuity_record_run_outcome tool call.
func (t *RecordRunOutcomeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subSessionID := req.GetString("sub_session_id", "")
	if strings.TrimSpace(subSessionID) == "" {
		return mcp.NewToolResultError("'sub_session_id' is required"), nil
	}
	cwd := req.GetString("cwd", "")
	if strings.TrimSpace(cwd) == "" {
		return mcp.NewToolResultError("'cwd' is required"), nil
	}

	out := t.engine.RecordRunOutcome(ctx, continuity.RecordRunOutcomeInput{
		SubSessionID:      subSessionID,
		Cwd:               cwd,
		ProjectPath:       stringArgPtr(req, "project_path"),
		Provider:          parseProvider(req.GetString("provider", "claude")),
		Mode:              parseMode(req.GetString("mode", "agent")),
		Prompt:            req.GetString("prompt", ""),
		AssistantResponse: req.GetString("assistant_response", ""),
		InjectedBytes:     intArgPtr(req, "injected_bytes"),
		WasError:          boolArgPtr(req, "was_error"),
	})

	payload, err := json.Marshal(map[string]any{
		"action":  string(out.Action),
		"reasons": out.Reasons,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling record_run_outcome result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
