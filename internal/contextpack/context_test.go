package contextpack

import (
	"context"
	"strings"
	"testing"

	"github.com/onecode-dev/continuity-engine/internal/budget"
)

type fakeProber struct{ files []string }

func (f fakeProber) HeadCommit(context.Context, string) string    { return "abc" }
func (f fakeProber) ChangedFiles(context.Context, string) []string { return nil }
func (f fakeProber) DiffSnippet(context.Context, string) string   { return "" }
func (f fakeProber) DiffStats(context.Context, string) int        { return 0 }
func (f fakeProber) CurrentBranch(context.Context, string) string { return "main" }
func (f fakeProber) ListFiles(context.Context, string) []string   { return f.files }

type fakeFS struct {
	contents map[string]string
}

func (f fakeFS) Stat(path string) (int64, bool, bool) {
	c, ok := f.contents[path]
	if !ok {
		return 0, false, false
	}
	return int64(len(c)), true, true
}

func (f fakeFS) ReadFile(path string) ([]byte, bool) {
	c, ok := f.contents[path]
	if !ok {
		return nil, false
	}
	return []byte(c), true
}

func TestBuildNoKeywordsReturnsNoRelevantFiles(t *testing.T) {
	got := Build(context.Background(), Deps{}, "/repo", "abc", "please this that code", nil, budget.Resolve(budget.TokenModeNormal))
	if got != NoRelevantFiles {
		t.Fatalf("Build = %q, want %q", got, NoRelevantFiles)
	}
}

func TestBuildFindsMatchingFiles(t *testing.T) {
	fs := fakeFS{contents: map[string]string{
		"/repo/src/rate/bucket.rs": "export function refill() {}\n",
		"/repo/src/unrelated.rs":   "nothing interesting here\n",
	}}
	prober := fakeProber{files: []string{"src/rate/bucket.rs", "src/unrelated.rs"}}

	got := Build(context.Background(), Deps{Prober: prober, FS: fs}, "/repo", "abc",
		"Refactor the token bucket logic", nil, budget.Resolve(budget.TokenModeNormal))

	if !strings.Contains(got, "file: src/rate/bucket.rs") {
		t.Fatalf("expected bucket.rs summary, got %q", got)
	}
	if strings.Contains(got, "unrelated.rs") {
		t.Fatalf("unexpected unrelated.rs in output: %q", got)
	}
}

func TestBuildIncludesChangedFilesFirst(t *testing.T) {
	fs := fakeFS{contents: map[string]string{
		"/repo/changed.rs": "export function changed() {}\n",
	}}
	prober := fakeProber{files: []string{"changed.rs"}}

	got := Build(context.Background(), Deps{Prober: prober, FS: fs}, "/repo", "abc",
		"refactor bucket logic", []string{"changed.rs"}, budget.Resolve(budget.TokenModeNormal))

	if !strings.Contains(got, "file: changed.rs") {
		t.Fatalf("expected changed.rs summary, got %q", got)
	}
}

func TestBuildSkipsOversizedFiles(t *testing.T) {
	big := strings.Repeat("a", 100)
	fs := fakeFS{contents: map[string]string{"/repo/bucket.rs": big}}
	prober := fakeProber{files: []string{"bucket.rs"}}

	profile := budget.Profile{MaxPackBytes: 1000, MaxContextFiles: 4, MaxContextSummaryBytes: 1000, MaxFileReadBytes: 10}
	got := Build(context.Background(), Deps{Prober: prober, FS: fs}, "/repo", "abc", "bucket refactor", nil, profile)

	if got != NoRelevantFiles {
		t.Fatalf("Build = %q, want %q (file exceeds max_file_read_bytes)", got, NoRelevantFiles)
	}
}

func TestBuildNoMatchesReturnsNoRelevantFiles(t *testing.T) {
	prober := fakeProber{files: []string{"a.go", "b.go"}}
	got := Build(context.Background(), Deps{Prober: prober, FS: fakeFS{}}, "/repo", "abc",
		"completely unrelated keywords zzzqqq", nil, budget.Resolve(budget.TokenModeNormal))
	if got != NoRelevantFiles {
		t.Fatalf("Build = %q, want %q", got, NoRelevantFiles)
	}
}
