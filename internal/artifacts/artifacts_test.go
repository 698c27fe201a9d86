package artifacts

import (
	"strings"
	"testing"

	"github.com/onecode-dev/continuity-engine/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteIfNewInsertsOnFirstCall(t *testing.T) {
	w := Writer{Store: newTestStore(t)}

	a, created, err := w.WriteIfNew("sub1", store.ArtifactDevlog, "fp1", "some content", "governor")
	if err != nil {
		t.Fatalf("WriteIfNew: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first write")
	}
	if a.Content != "some content" {
		t.Fatalf("Content = %q", a.Content)
	}
}

func TestWriteIfNewDedupsSameFingerprint(t *testing.T) {
	w := Writer{Store: newTestStore(t)}

	_, created1, err := w.WriteIfNew("sub1", store.ArtifactDevlog, "fp1", "first", "governor")
	if err != nil || !created1 {
		t.Fatalf("first write: created=%v err=%v", created1, err)
	}

	_, created2, err := w.WriteIfNew("sub1", store.ArtifactDevlog, "fp1", "second", "governor")
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if created2 {
		t.Fatal("expected created=false on duplicate fingerprint")
	}
}

func TestWriteIfNewDistinguishesByType(t *testing.T) {
	w := Writer{Store: newTestStore(t)}

	_, created1, _ := w.WriteIfNew("sub1", store.ArtifactDevlog, "fp1", "devlog body", "governor")
	_, created2, _ := w.WriteIfNew("sub1", store.ArtifactADR, "fp1", "adr body", "governor")
	if !created1 || !created2 {
		t.Fatalf("expected both writes to succeed (distinct types): %v %v", created1, created2)
	}
}

func TestRenderPreviewProducesHTML(t *testing.T) {
	got := RenderPreview("# Title\n\nbody text")
	if !strings.Contains(got, "<h1") || !strings.Contains(got, "body text") {
		t.Fatalf("RenderPreview = %q", got)
	}
}
