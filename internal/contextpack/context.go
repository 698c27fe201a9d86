// Package contextpack builds the dynamic per-turn block summarizing repo
// files relevant to the current prompt.
package contextpack

import (
	"context"
	"sort"
	"strings"

	"github.com/onecode-dev/continuity-engine/internal/budget"
	"github.com/onecode-dev/continuity-engine/internal/filesum"
	"github.com/onecode-dev/continuity-engine/internal/fsread"
	"github.com/onecode-dev/continuity-engine/internal/hashutil"
	"github.com/onecode-dev/continuity-engine/internal/keywords"
	"github.com/onecode-dev/continuity-engine/internal/store"
	"github.com/onecode-dev/continuity-engine/internal/vcs"
)

// NoRelevantFiles is returned verbatim when the prompt yields no keywords.
const NoRelevantFiles = "No relevant files identified."

const (
	maxSearchHits    = 24
	firstNChanged    = 4
	scorePathHit     = 3
	scoreBasenameHit = 4
)

// Deps bundles the collaborators the context pack builder needs, so the
// engine can construct one set and reuse it across Build calls.
type Deps struct {
	Store  *store.Store
	Prober vcs.Prober
	FS     fsread.Reader
}

// Build implements spec §4.6 steps 1–5.
func Build(ctx context.Context, d Deps, repoRoot, headCommit, prompt string, changedFiles []string, profile budget.Profile) string {
	kws := keywords.Extract(prompt)
	if len(kws) == 0 {
		return NoRelevantFiles
	}

	hits := search(ctx, d, repoRoot, headCommit, kws)

	candidates := buildCandidates(changedFiles, hits, profile.MaxContextFiles)

	var parts []string
	total := 0
	for _, path := range candidates {
		summary, ok := summarize(d, repoRoot, path, profile.MaxFileReadBytes)
		if !ok {
			continue
		}

		addition := summary
		if len(parts) > 0 {
			addition = "\n\n---\n\n" + summary
		}
		if total+len(addition) > profile.MaxContextSummaryBytes {
			break
		}
		parts = append(parts, summary)
		total += len(addition)
	}

	if len(parts) == 0 {
		return NoRelevantFiles
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func buildCandidates(changedFiles, hits []string, maxFiles int) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(path string) bool {
		if seen[path] {
			return false
		}
		seen[path] = true
		out = append(out, path)
		return len(out) >= maxFiles
	}

	n := firstNChanged
	if n > len(changedFiles) {
		n = len(changedFiles)
	}
	for _, f := range changedFiles[:n] {
		if add(f) {
			return out
		}
	}
	for _, f := range hits {
		if add(f) {
			return out
		}
	}
	return out
}

type scoredFile struct {
	path  string
	score int
}

func search(ctx context.Context, d Deps, repoRoot, headCommit string, kws []string) []string {
	query := strings.Join(kws, ",")
	cacheKey := repoRoot + ":" + headCommit + ":" + query

	if d.Store != nil {
		if e, ok := d.Store.GetSearch(cacheKey); ok {
			return e.ResultFiles
		}
	}

	var listing []string
	if d.Prober != nil {
		listing = d.Prober.ListFiles(ctx, repoRoot)
	}

	var scored []scoredFile
	for _, path := range listing {
		lower := strings.ToLower(path)
		base := strings.ToLower(baseName(path))

		score := 0
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				score += scorePathHit
				if strings.Contains(base, kw) {
					score += scoreBasenameHit
				}
			}
		}
		if score > 0 {
			scored = append(scored, scoredFile{path: path, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxSearchHits {
		scored = scored[:maxSearchHits]
	}

	hits := make([]string, len(scored))
	for i, s := range scored {
		hits[i] = s.path
	}

	if d.Store != nil {
		d.Store.UpsertSearch(store.SearchCacheEntry{
			Key:         cacheKey,
			RepoRoot:    repoRoot,
			Query:       query,
			CommitHash:  headCommit,
			Scope:       "repo",
			ResultFiles: hits,
		})
	}
	return hits
}

func baseName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}

// summarize obtains a file summary via the summary cache, building it if
// absent. It reports ok=false when the file should be skipped (too large
// or not a regular file).
func summarize(d Deps, repoRoot, path string, maxFileReadBytes int) (string, bool) {
	if d.FS == nil {
		return "", false
	}

	size, isRegular, statOK := d.FS.Stat(joinPath(repoRoot, path))
	if !statOK || !isRegular || size > int64(maxFileReadBytes) {
		return "", false
	}

	contents, ok := d.FS.ReadFile(joinPath(repoRoot, path))
	if !ok {
		return "", false
	}

	contentHash := hashutil.Sha256Hex(string(contents))
	key := hashutil.Sha256Fields(repoRoot, path, contentHash)

	if d.Store != nil {
		if e, ok := d.Store.GetSummary(key); ok {
			return e.Summary, true
		}
	}

	summary := filesum.Build(path, contents)

	if d.Store != nil {
		d.Store.UpsertSummary(store.FileSummaryEntry{
			Key:         key,
			RepoRoot:    repoRoot,
			FilePath:    path,
			ContentHash: contentHash,
			Summary:     summary,
		})
	}
	return summary, true
}

func joinPath(repoRoot, path string) string {
	if repoRoot == "" {
		return path
	}
	return repoRoot + "/" + path
}
