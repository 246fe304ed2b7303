package canon

import (
	"cmp"
	"slices"

	"github.com/roach88/tnpcore/internal/ir"
)

// Canonicalize returns refs in canonical order with exact duplicates
// removed. The input is not modified. The order is total:
// reference_kind, shape_identity, local_index, fingerprint components,
// then the drift record (absent first).
func Canonicalize(refs []ir.ReferenceBundle) []ir.ReferenceBundle {
	out := ir.CloneBundles(refs)
	if out == nil {
		return []ir.ReferenceBundle{}
	}
	slices.SortFunc(out, CompareBundles)
	return slices.CompactFunc(out, func(a, b ir.ReferenceBundle) bool {
		return CompareBundles(a, b) == 0
	})
}

// CanonicalizeSlots returns slots ordered by name, each with canonical refs.
func CanonicalizeSlots(slots []ir.Slot) []ir.Slot {
	out := make([]ir.Slot, len(slots))
	for i, s := range slots {
		out[i] = ir.Slot{Name: s.Name, Source: s.Source, Refs: Canonicalize(s.Refs)}
	}
	slices.SortStableFunc(out, func(a, b ir.Slot) int {
		return ir.CompareUTF16(a.Name, b.Name)
	})
	return out
}

// CompareBundles is the canonical bundle order.
func CompareBundles(a, b ir.ReferenceBundle) int {
	if c := ir.CompareUTF16(string(a.Kind), string(b.Kind)); c != 0 {
		return c
	}
	if c := ir.CompareUTF16(a.ShapeIdentity, b.ShapeIdentity); c != 0 {
		return c
	}
	if c := cmp.Compare(a.LocalIndex, b.LocalIndex); c != 0 {
		return c
	}
	if c := compareFingerprints(a.Fingerprint, b.Fingerprint); c != 0 {
		return c
	}
	return compareDrift(a.Drift, b.Drift)
}

func compareFingerprints(a, b ir.Fingerprint) int {
	for _, p := range [][2]int64{
		{a.CX, b.CX}, {a.CY, b.CY}, {a.CZ, b.CZ},
		{a.NX, b.NX}, {a.NY, b.NY}, {a.NZ, b.NZ},
		{a.Extent, b.Extent},
	} {
		if c := cmp.Compare(p[0], p[1]); c != 0 {
			return c
		}
	}
	return 0
}

func compareDrift(a, b *ir.DriftRecord) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := ir.CompareUTF16(a.Reason, b.Reason); c != 0 {
		return c
	}
	return ir.CompareUTF16(string(a.Via), string(b.Via))
}
