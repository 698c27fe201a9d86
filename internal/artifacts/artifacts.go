// Package artifacts writes durable memory artifacts (devlogs, ADRs,
// rejected-approach records) with de-duplication by event fingerprint,
// and renders them to HTML previews for the read-only resource surface.
package artifacts

import (
	"bytes"

	"github.com/yuin/goldmark"

	"github.com/onecode-dev/continuity-engine/internal/store"
)

const recentLookback = 12

// Writer is the thin wrapper around the artifact store implementing the
// §4.11 dedup rule.
type Writer struct {
	Store *store.Store
}

// WriteIfNew reads the last 12 artifacts of this (sub_session_id, type);
// if any carries the given event fingerprint already, it is a no-op.
// Otherwise it inserts a new draft artifact and returns it.
func (w Writer) WriteIfNew(subSessionID string, typ store.ArtifactType, eventFingerprint, content, createdBy string) (store.Artifact, bool, error) {
	recent, err := w.Store.RecentArtifactsByType(subSessionID, typ, recentLookback)
	if err != nil {
		return store.Artifact{}, false, nil
	}
	for _, a := range recent {
		if a.Provenance.EventFingerprint == eventFingerprint {
			return a, false, nil
		}
	}

	a := store.Artifact{
		SubSessionID: subSessionID,
		Type:         typ,
		Content:      content,
		Status:       store.StatusDraft,
		Provenance: store.Provenance{
			EventFingerprint: eventFingerprint,
			CreatedBy:        createdBy,
		},
	}
	if err := w.Store.InsertArtifact(a); err != nil {
		return store.Artifact{}, false, err
	}
	return a, true, nil
}

// RenderPreview renders an artifact's markdown content to HTML for the
// read-only artifacts resource. Rendering failure degrades to the raw
// content, never an error, matching the engine's fail-soft contract.
func RenderPreview(content string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}
