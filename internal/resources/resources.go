// Package resources implements the read-only MCP resource exposing
// recently written continuity artifacts, rendered as HTML previews —
// the way Hoofy's own resources package exposes project status as a
// single JSON resource.
package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/onecode-dev/continuity-engine/internal/artifacts"
	"github.com/onecode-dev/continuity-engine/internal/store"
)

// ArtifactStore is the subset of the store the artifacts resource
// depends on.
type ArtifactStore interface {
	RecentArtifactsAcrossSessions(limit int) ([]store.Artifact, error)
}

const recentArtifactsLimit = 20

// Handler manages continuity resource endpoints.
type Handler struct {
	store ArtifactStore
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(s ArtifactStore) *Handler {
	return &Handler{store: s}
}

// ArtifactsResource returns the MCP resource definition for the
// recent-artifacts feed.
func (h *Handler) ArtifactsResource() mcp.Resource {
	return mcp.NewResource(
		"continuity://artifacts/recent",
		"Recent Continuity Artifacts",
		mcp.WithResourceDescription("The most recently written devlog, ADR, and rejected-approach artifacts, rendered as HTML previews"),
		mcp.WithMIMEType("text/html"),
	)
}

// HandleArtifacts returns the most recent artifacts across all
// sub-sessions as one HTML document.
func (h *Handler) HandleArtifacts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	recent, err := h.store.RecentArtifactsAcrossSessions(recentArtifactsLimit)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	var b strings.Builder
	for _, a := range recent {
		fmt.Fprintf(&b, "<article data-type=%q data-sub-session=%q data-status=%q>\n", a.Type, a.SubSessionID, a.Status)
		b.WriteString(artifacts.RenderPreview(a.Content))
		b.WriteString("\n</article>\n")
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/html",
			Text:     b.String(),
		},
	}, nil
}

func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
