// Package rehydrate replaces a session's stored message log with a
// single synthetic carry-over message summarizing recent artifacts, the
// governor's reasons for acting, and the latest user prompt.
package rehydrate

import (
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/hashutil"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
	"github.com/onecode-dev/continuity-engine/internal/store"
)

const (
	label = "[1CODE_CONTINUITY_REHYDRATE]"

	maxArtifacts         = 6
	maxArtifactLineBytes = 180
	maxLatestPromptBytes = 600

	fallbackReason = "governor-pressure"
)

// Deps bundles the collaborators rehydrate needs.
type Deps struct {
	Store   *store.Store
	Session sessionstore.Store
}

// Run implements spec §4.14. reasons is the governor's reasons for the
// action that triggered rehydrate; latestUserPrompt is the prompt text
// from the turn that tipped the decision.
func Run(d Deps, subSessionID string, mode sessionstore.Mode, reasons []string, latestUserPrompt string) error {
	if d.Session == nil {
		return nil
	}
	sub, ok := d.Session.Get(subSessionID)
	if !ok {
		return nil
	}

	var artifacts []store.Artifact
	if d.Store != nil {
		var err error
		artifacts, err = d.Store.RecentArtifacts(subSessionID, maxArtifacts)
		if err != nil {
			artifacts = nil
		}
	}

	text := buildMessage(sub.Mode, reasons, artifacts, latestUserPrompt)
	return d.Session.ReplaceMessages(subSessionID, []sessionstore.Message{
		{Role: "assistant", Parts: []sessionstore.Part{{Type: "text", Text: text}}},
	})
}

func buildMessage(mode sessionstore.Mode, reasons []string, artifacts []store.Artifact, latestUserPrompt string) string {
	reasonText := fallbackReason
	if len(reasons) > 0 {
		reasonText = strings.Join(reasons, ";")
	}

	var b strings.Builder
	b.WriteString(label + "\n")
	b.WriteString("mode: " + string(mode) + "\n")
	b.WriteString("reasons: " + reasonText + "\n")

	for _, a := range artifacts {
		line := hashutil.ClampByBytes(firstNonBlankLine(a.Content), maxArtifactLineBytes)
		b.WriteString("- " + string(a.Type) + ": " + line + "\n")
	}

	b.WriteString("latest_user_prompt: " + hashutil.ClampByBytes(latestUserPrompt, maxLatestPromptBytes))
	return b.String()
}

func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
