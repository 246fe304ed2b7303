package resolve

import (
	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
)

// Context is the explicit input every resolution receives in place of any
// ambient document state.
type Context struct {
	Document *ir.Document
	Policy   ir.Policy
}

// NewContext returns the resolution context of doc.
func NewContext(doc *ir.Document) Context {
	return Context{Document: doc, Policy: doc.Policy}
}

// Tolerance returns the policy tolerance or DefaultTolerance.
func (c Context) Tolerance() ir.Tolerance {
	if c.Policy.Tolerance != nil {
		return *c.Policy.Tolerance
	}
	return DefaultTolerance
}

// Resolution is the outcome for one reference. Index is the position of
// the resolved entity in the same-kind enumeration, or -1. A Drift Failure
// accompanies a resolved Index; Missing and Mismatch never do.
type Resolution struct {
	Index      int
	Tier       Tier
	Confidence Confidence
	Via        ir.ResolvedVia
	Failure    *ir.TNPFailure
}

// Resolved reports whether the reference was located.
func (r Resolution) Resolved() bool { return r.Index >= 0 }

// Drifted reports a resolved reference with a Drift classification.
func (r Resolution) Drifted() bool {
	return r.Resolved() && r.Failure != nil && r.Failure.Category == ir.CategoryDrift
}

// Resolve locates bundle b in topo.
//
// Identity is tried first: one hit is Strong, several are a Mismatch.
// Otherwise the fingerprint tiers and the index tier produce candidate
// sets for the Arbiter. A Strong hit on a bundle that carries a drift
// record reproduces the recorded Drift, so an unchanged rebuild never
// flaps between Drift and Ok.
func Resolve(rc Context, b ir.ReferenceBundle, topo *Topology) Resolution {
	ents := topo.Of(b.Kind)
	tol := rc.Tolerance()

	ids := identityStrategy.Match(b, ents, tol)
	switch {
	case len(ids) == 1:
		r := Resolution{Index: ids[0], Tier: TierShapeIdentity, Confidence: ConfidenceStrong, Via: ir.ViaShapeIdentity}
		if b.Drift != nil {
			r.Via = b.Drift.Via
			r.Failure = drift(b.Kind, b.Drift.Reason, b.Drift.Via)
		}
		return r
	case len(ids) > 1:
		return failure(ir.CategoryMismatch, b.Kind, ir.ReasonShapeIdentityAmbiguous)
	}

	c := Candidates{Kind: b.Kind, Index: -1}
	c.Tier, c.Fingerprint = fingerprintCandidates(b, ents, tol)
	if m := indexStrategy.Match(b, ents, tol); len(m) == 1 {
		c.Index = m[0]
	}
	return Arbitrate(c, rc.Policy)
}

// SlotResult is the resolution of every reference of one slot.
type SlotResult struct {
	Slot string
	// Refs is the slot's references in canonical order; Resolutions is
	// aligned with it.
	Refs        []ir.ReferenceBundle
	Resolutions []Resolution
	// Failure is the first Missing or Mismatch, nil when all resolved.
	Failure *ir.TNPFailure
	// Drift is the first Drift among the resolved references.
	Drift *ir.TNPFailure
}

// ResolveSlot resolves a slot's references in canonical order. A nil topo
// means the slot's source feature no longer exists. Resolution stops at
// the first hard failure. A reference resolving to an entity an earlier
// reference of the slot already took is a Mismatch.
func ResolveSlot(rc Context, slot ir.Slot, topo *Topology) SlotResult {
	res := SlotResult{Slot: slot.Name, Refs: canon.Canonicalize(slot.Refs)}
	taken := make(map[entityKey]bool, len(res.Refs))
	for _, b := range res.Refs {
		var r Resolution
		if topo == nil {
			r = failure(ir.CategoryMissing, b.Kind, ir.ReasonSourceFeatureMissing)
		} else {
			r = Resolve(rc, b, topo)
		}
		if r.Resolved() {
			key := entityKey{b.Kind, r.Index}
			if taken[key] {
				r = failure(ir.CategoryMismatch, b.Kind, ir.ReasonSlotRefsCollapsed)
			}
			taken[key] = true
		}
		if r.Failure != nil {
			r.Failure.Slot = slot.Name
		}
		res.Resolutions = append(res.Resolutions, r)
		if !r.Resolved() {
			res.Failure = r.Failure
			return res
		}
		if r.Drifted() && res.Drift == nil {
			res.Drift = r.Failure
		}
	}
	return res
}

type entityKey struct {
	kind  ir.ReferenceKind
	index int
}

func failure(cat ir.Category, kind ir.ReferenceKind, reason string) Resolution {
	return Resolution{
		Index:      -1,
		Tier:       TierNone,
		Confidence: ConfidenceNone,
		Via:        ir.ViaNone,
		Failure:    &ir.TNPFailure{Category: cat, Kind: kind, Reason: reason, ResolvedVia: ir.ViaNone},
	}
}

func drift(kind ir.ReferenceKind, reason string, via ir.ResolvedVia) *ir.TNPFailure {
	return &ir.TNPFailure{Category: ir.CategoryDrift, Kind: kind, Reason: reason, ResolvedVia: via}
}
