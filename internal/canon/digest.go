package canon

import (
	"fmt"

	"github.com/roach88/tnpcore/internal/ir"
)

// Digest is the content hash of a document: policy, features with their
// parameters, inputs, canonical slots, envelopes and stable snapshots, and
// the active snapshot. The document name and shape cache are excluded.
func Digest(doc *ir.Document) (string, error) {
	h, err := ir.HashCanonical(ir.DomainDocument, documentValue(doc))
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return h, nil
}

// SummaryFingerprint hashes only the per-feature outcome:
// {id, status, code, stable_snapshot_id} in document order.
func SummaryFingerprint(doc *ir.Document) (string, error) {
	rows := make(ir.List, len(doc.Features))
	for i, f := range doc.Features {
		rows[i] = ir.Object{
			"id":                 ir.String(f.ID),
			"status":             ir.String(f.Status.Status),
			"code":               ir.String(f.Status.Code),
			"stable_snapshot_id": ir.String(f.StableSnapshot),
		}
	}
	h, err := ir.HashCanonical(ir.DomainSummary, rows)
	if err != nil {
		return "", fmt.Errorf("summary fingerprint: %w", err)
	}
	return h, nil
}

// BundleHash hashes one slot's canonical references.
func BundleHash(s ir.Slot) (string, error) {
	return ir.HashCanonical(ir.DomainBundle, slotsValue(CanonicalizeSlots([]ir.Slot{s})))
}
