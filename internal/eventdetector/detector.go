// Package eventdetector classifies a completed turn as devlog-worthy,
// ADR-worthy, or rejected-approach-worthy, for the artifact writer to act
// on.
package eventdetector

import (
	"sort"
	"strconv"
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/hashutil"
)

const (
	diffLinesReasonThreshold    = 120
	changedFilesReasonThreshold = 6

	reasonDiffOver120       = "diff>120"
	reasonChangedFilesOver6 = "changed_files>6"
	reasonRunError          = "run-error"
	reasonBoundaryModules   = "boundary-modules-touched"

	RejectedReasonRunError        = "run-error"
	RejectedReasonDirectionChange = "direction-change"

	responseFingerprintChars = 160
)

// boundaryPrefixes are the fixed path prefixes whose modification implies
// an architectural decision worth recording.
var boundaryPrefixes = []string{
	"src/main/lib/trpc/",
	"src/main/lib/db/",
	"src/main/lib/continuity/",
	"src/main/lib/plugins/",
	"src/main/lib/mcp-",
	"src/main/lib/oauth",
	"src/main/lib/git/",
}

var directionChangePhrases = []string{"instead", "alternative approach", "pivot"}

// Input is everything the detector needs from a completed turn.
type Input struct {
	HeadCommit        string
	ChangedFiles      []string
	ChangedFilesHash  string
	DiffLines         int
	AssistantResponse string
	WasError          bool
}

// Result is the detector's classification of the turn.
type Result struct {
	Devlog           bool
	ADR              bool
	RejectedApproach bool
	RejectedReason   string
	Reasons          []string
	BoundaryFiles    []string
	EventFingerprint string
}

// Detect implements spec §4.9.
func Detect(in Input) Result {
	var reasons []string
	var r Result

	if in.DiffLines >= diffLinesReasonThreshold {
		reasons = append(reasons, reasonDiffOver120)
	}
	if len(in.ChangedFiles) >= changedFilesReasonThreshold {
		reasons = append(reasons, reasonChangedFilesOver6)
	}
	if in.WasError {
		reasons = append(reasons, reasonRunError)
		r.RejectedApproach = true
		r.RejectedReason = RejectedReasonRunError
	}

	r.BoundaryFiles = boundaryFiles(in.ChangedFiles)
	if len(r.BoundaryFiles) > 0 {
		reasons = append(reasons, reasonBoundaryModules)
		r.ADR = true
	}

	if !in.WasError && containsAny(strings.ToLower(in.AssistantResponse), directionChangePhrases) {
		r.RejectedApproach = true
		r.RejectedReason = RejectedReasonDirectionChange
	}

	r.Reasons = reasons
	r.Devlog = len(reasons) > 0
	r.EventFingerprint = fingerprint(in)
	return r
}

func boundaryFiles(changedFiles []string) []string {
	var out []string
	for _, f := range changedFiles {
		for _, prefix := range boundaryPrefixes {
			if strings.HasPrefix(f, prefix) {
				out = append(out, f)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func fingerprint(in Input) string {
	runes := []rune(in.AssistantResponse)
	if len(runes) > responseFingerprintChars {
		runes = runes[:responseFingerprintChars]
	}
	firstChars := strings.ToLower(string(runes))

	return hashutil.Sha256Fields(
		in.HeadCommit,
		in.ChangedFilesHash,
		strconv.Itoa(in.DiffLines),
		strconv.FormatBool(in.WasError),
		firstChars,
	)
}
