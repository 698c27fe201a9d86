// Package deltapack builds the incremental per-turn payload: which files
// changed since the last recorded snapshot, a short diff, a failing-test
// digest mined from recent session messages, and the objective line.
package deltapack

import (
	"context"
	"regexp"
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/hashutil"
	"github.com/onecode-dev/continuity-engine/internal/reposcan"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
	"github.com/onecode-dev/continuity-engine/internal/vcs"
)

// Form identifies which of the three delta shapes Build produced.
type Form string

const (
	FormFirstRun  Form = "first_run"
	FormUnchanged Form = "unchanged"
	FormChanged   Form = "changed"
)

const (
	maxMessagesScanned  = 12
	maxDigestLines      = 40
	maxDigestBytes      = 2000
	maxObjectiveBytes   = 200
	maxChangedFilesList = 20
)

var failurePattern = regexp.MustCompile(`(?i)fail|failed|error|exception|assert`)

// Result is the built delta pack plus the hash callers should persist as
// the new SessionState.LastChangedFilesHash.
type Result struct {
	Form Form
	Text string
	// ChangedFilesHash is the hash of the current changed-files set,
	// always computed regardless of Form so the caller can persist it.
	ChangedFilesHash string
}

// Deps bundles the collaborators the delta pack builder needs.
type Deps struct {
	Prober  vcs.Prober
	Session sessionstore.Store
}

// Build implements spec §4.7. lastChangedFilesHash is the previously
// persisted SessionState.LastChangedFilesHash, or "" if this sub-session
// has no persisted SessionState yet.
func Build(ctx context.Context, d Deps, repoRoot, subSessionID, prompt, lastChangedFilesHash string, changedFiles []string) Result {
	changedFilesHash := reposcan.Hash(changedFiles)
	objective := hashutil.ClampByBytes(firstNonBlankLine(prompt), maxObjectiveBytes)
	digest := failingTestDigest(d.Session, subSessionID)

	var b strings.Builder
	var form Form

	switch {
	case lastChangedFilesHash == "":
		form = FormFirstRun
		b.WriteString("first_run: true\n")
		b.WriteString("objective: " + objective + "\n")
		writeChangedFiles(&b, changedFiles)
		writeDigest(&b, digest)
		writeDiff(&b, ctx, d, repoRoot)

	case changedFilesHash == lastChangedFilesHash:
		form = FormUnchanged
		b.WriteString("repo_delta: unchanged\n")
		b.WriteString("objective: " + objective + "\n")
		writeDigest(&b, digest)

	default:
		form = FormChanged
		b.WriteString("repo_delta: changed\n")
		b.WriteString("objective: " + objective + "\n")
		writeChangedFiles(&b, changedFiles)
		writeDigest(&b, digest)
		writeDiff(&b, ctx, d, repoRoot)
	}

	return Result{Form: form, Text: strings.TrimRight(b.String(), "\n"), ChangedFilesHash: changedFilesHash}
}

func writeChangedFiles(b *strings.Builder, changedFiles []string) {
	n := maxChangedFilesList
	if n > len(changedFiles) {
		n = len(changedFiles)
	}
	b.WriteString("changed_files:\n")
	for _, f := range changedFiles[:n] {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
}

func writeDigest(b *strings.Builder, digest string) {
	if digest == "" {
		return
	}
	b.WriteString("failing_tests:\n")
	b.WriteString(digest)
	b.WriteString("\n")
}

func writeDiff(b *strings.Builder, ctx context.Context, d Deps, repoRoot string) {
	if d.Prober == nil {
		return
	}
	snippet := d.Prober.DiffSnippet(ctx, repoRoot)
	if snippet == "" {
		return
	}
	b.WriteString("diff:\n")
	b.WriteString(snippet)
	b.WriteString("\n")
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

// failingTestDigest implements the §4.7 failing-test digest algorithm:
// read the last 12 stored messages of the sub-session, collect their text
// parts, keep lines matching the failure pattern, take the last 40, and
// clamp to 2,000 bytes.
func failingTestDigest(session sessionstore.Store, subSessionID string) string {
	if session == nil {
		return ""
	}
	sub, ok := session.Get(subSessionID)
	if !ok {
		return ""
	}

	messages := sub.Messages
	if len(messages) > maxMessagesScanned {
		messages = messages[len(messages)-maxMessagesScanned:]
	}

	var matched []string
	for _, m := range messages {
		for _, part := range m.Parts {
			for _, line := range strings.Split(part.Text, "\n") {
				if failurePattern.MatchString(line) {
					matched = append(matched, strings.TrimSpace(line))
				}
			}
		}
	}

	if len(matched) > maxDigestLines {
		matched = matched[len(matched)-maxDigestLines:]
	}
	if len(matched) == 0 {
		return ""
	}
	return hashutil.ClampByBytes(strings.Join(matched, "\n"), maxDigestBytes)
}
