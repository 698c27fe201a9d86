// Package anchorpack builds the static, repo-wide context block read from
// a fixed set of files at the repository root.
package anchorpack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/hashutil"
)

// AnchorFiles is the fixed, ordered list of repo-root files considered for
// the anchor pack.
var AnchorFiles = []string{"AGENTS.md", "CLAUDE.md", "README.md"}

// NoAnchorFiles is returned verbatim when none of AnchorFiles exist.
const NoAnchorFiles = "No anchor files found."

const maxAnchorBytes = 3000

// Build reads each existing file in AnchorFiles from repoRoot and emits
//
//	## <name>
//	<content clamped to 3000 bytes>
//
// joined with blank lines, in AnchorFiles order. If none exist, returns
// NoAnchorFiles.
func Build(repoRoot string) string {
	var sections []string

	for _, name := range AnchorFiles {
		contents, err := os.ReadFile(filepath.Join(repoRoot, name))
		if err != nil {
			continue
		}
		clamped := hashutil.ClampByBytes(string(contents), maxAnchorBytes)
		sections = append(sections, fmt.Sprintf("## %s\n%s", name, clamped))
	}

	if len(sections) == 0 {
		return NoAnchorFiles
	}
	return strings.Join(sections, "\n\n")
}
