package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/onecode-dev/continuity-engine/internal/store"
)

// ArtifactStore is the subset of the store the artifact-listing tool
// depends on.
type ArtifactStore interface {
	RecentArtifacts(subSessionID string, limit int) ([]store.Artifact, error)
}

// ArtifactsTool handles the continuity_artifacts MCP tool: a read-only
// listing of the most recent devlog/ADR/rejected-approach artifacts for
// a sub-session.
type ArtifactsTool struct {
	store ArtifactStore
}

// NewArtifactsTool creates an ArtifactsTool wrapping store.
func NewArtifactsTool(s ArtifactStore) *ArtifactsTool {
	return &ArtifactsTool{store: s}
}

const defaultArtifactsLimit = 12

// Definition returns the MCP tool definition for registration.
func (t *ArtifactsTool) Definition() mcp.Tool {
	return mcp.NewTool("continuity_artifacts",
		mcp.WithDescription(
			"List the most recent durable-memory artifacts (devlog, ADR, "+
				"rejected-approach) the engine has written for a sub-session.",
		),
		mcp.WithString("sub_session_id",
			mcp.Required(),
			mcp.Description("Identifier of the sub-session to list artifacts for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of artifacts to return (default: 12)"),
		),
	)
}

// Handle processes the continuity_artifacts tool call.
func (t *ArtifactsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subSessionID := req.GetString("sub_session_id", "")
	if strings.TrimSpace(subSessionID) == "" {
		return mcp.NewToolResultError("'sub_session_id' is required"), nil
	}
	limit := intArg(req, "limit", defaultArtifactsLimit)

	artifacts, err := t.store.RecentArtifacts(subSessionID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing artifacts: %v", err)), nil
	}

	entries := make([]map[string]any, 0, len(artifacts))
	for _, a := range artifacts {
		entries = append(entries, map[string]any{
			"id":         a.ID,
			"type":       string(a.Type),
			"status":     string(a.Status),
			"created_at": a.CreatedAt,
			"created_by": a.Provenance.CreatedBy,
			"content":    a.Content,
		})
	}

	payload, err := json.Marshal(map[string]any{"artifacts": entries})
	if err != nil {
		return nil, fmt.Errorf("marshaling artifacts result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
