package anchorpack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildNoFiles(t *testing.T) {
	dir := t.TempDir()
	if got := Build(dir); got != NoAnchorFiles {
		t.Fatalf("Build = %q, want %q", got, NoAnchorFiles)
	}
}

func TestBuildOrdersByAnchorFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("readme content"), 0o644)
	os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("agents content"), 0o644)

	got := Build(dir)
	agentsIdx := strings.Index(got, "## AGENTS.md")
	readmeIdx := strings.Index(got, "## README.md")
	if agentsIdx == -1 || readmeIdx == -1 || agentsIdx > readmeIdx {
		t.Fatalf("expected AGENTS.md before README.md, got %q", got)
	}
	if !strings.Contains(got, "agents content") || !strings.Contains(got, "readme content") {
		t.Fatalf("missing content: %q", got)
	}
}

func TestBuildClampsEachFile(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", 10000)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte(big), 0o644)

	got := Build(dir)
	// Section body should be clamped to 3000 bytes; allow for the "## README.md\n" header.
	if len(got) > maxAnchorBytes+32 {
		t.Fatalf("Build output too large: %d bytes", len(got))
	}
}

func TestBuildSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("claude content"), 0o644)

	got := Build(dir)
	if strings.Contains(got, "## AGENTS.md") || strings.Contains(got, "## README.md") {
		t.Fatalf("expected only CLAUDE.md section, got %q", got)
	}
	if !strings.Contains(got, "## CLAUDE.md") {
		t.Fatalf("expected CLAUDE.md section, got %q", got)
	}
}
