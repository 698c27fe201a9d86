// Package continuity is the composition point for every sub-package: it
// implements the two public operations, apply and record_run_outcome,
// that a provider dispatcher calls once per turn.
package continuity

import (
	"strconv"
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/envelope"
	"github.com/onecode-dev/continuity-engine/internal/governor"
	"github.com/onecode-dev/continuity-engine/internal/hashutil"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
)

// Provider identifies which model provider a turn is destined for. The
// engine treats it as an opaque cache-key component; it never branches
// behavior on its value.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
)

// ApplyInput is the pre-run request: a prompt about to be sent to a
// provider, plus enough context to assemble and cache a pack for it.
type ApplyInput struct {
	SubSessionID string
	Cwd          string
	ProjectPath  *string
	Prompt       string
	Mode         sessionstore.Mode // plan or agent
	Provider     Provider
}

// ApplyOutput is the pre-run response.
type ApplyOutput struct {
	PromptOut     string
	CacheHit      bool
	InjectedBytes int
	ReusedPercent int
	StateIDs      envelope.StateIDs
}

// RecordRunOutcomeInput is the post-run request.
type RecordRunOutcomeInput struct {
	SubSessionID      string
	Cwd               string
	ProjectPath       *string
	Provider          Provider
	Mode              sessionstore.Mode
	Prompt            string
	AssistantResponse string
	InjectedBytes     *int
	WasError          *bool
}

// RecordRunOutcomeOutput is the post-run response.
type RecordRunOutcomeOutput struct {
	Action  governor.Action
	Reasons []string
}

// TaskFingerprint implements §3: sha256(lowercased whitespace-collapsed
// prompt).
func TaskFingerprint(prompt string) string {
	return hashutil.Sha256Hex(normalizePrompt(prompt))
}

// CacheKey implements §3's compound cache key.
func CacheKey(taskFingerprint, changedFilesHash, headCommit string, provider Provider, mode sessionstore.Mode, maxPackBytes int) string {
	return hashutil.Sha256Fields(
		taskFingerprint,
		changedFilesHash,
		headCommit,
		string(provider),
		string(mode),
		strconv.Itoa(maxPackBytes),
	)
}

func normalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
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
