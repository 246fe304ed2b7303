// Package resolve re-identifies stored references in a freshly rebuilt
// shape.
//
// Resolution is a pure function of (reference bundle, current topology,
// policy). Tiers are an ordered list of strategies; the Conflict Arbiter
// decides between the fingerprint and index tiers when identity fails.
package resolve

import (
	"github.com/roach88/tnpcore/internal/ir"
)

// Entity is one enumerated entity of the current shape.
type Entity struct {
	Index       int
	Identity    string
	Fingerprint ir.Fingerprint
}

// Topology is a shape's entity enumeration per kind, in kernel order.
type Topology struct {
	Faces []Entity
	Edges []Entity
}

// Of returns the entities of kind.
func (t *Topology) Of(kind ir.ReferenceKind) []Entity {
	if kind == ir.KindFace {
		return t.Faces
	}
	return t.Edges
}

// Confidence is the strength of a tier's match.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceWeak
	ConfidenceStrong
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceStrong:
		return "strong"
	case ConfidenceWeak:
		return "weak"
	default:
		return "none"
	}
}

// Tier names a resolution strategy.
type Tier string

const (
	TierShapeIdentity Tier = "shape_identity"
	TierGeometryHash  Tier = "geometry_hash"
	TierGeometric     Tier = "geometric"
	TierLocalIndex    Tier = "local_index"
	TierNone          Tier = "none"
)

// Strategy is one tier: a pure function selecting candidate positions
// among same-kind entities.
type Strategy struct {
	Tier       Tier
	Confidence Confidence
	Match      func(b ir.ReferenceBundle, ents []Entity, tol ir.Tolerance) []int
}

// identityStrategy never matches on an empty identity: a bundle without a
// persistent name, or an entity the kernel could not name, has nothing to
// compare.
var identityStrategy = Strategy{
	Tier:       TierShapeIdentity,
	Confidence: ConfidenceStrong,
	Match: func(b ir.ReferenceBundle, ents []Entity, _ ir.Tolerance) []int {
		if b.ShapeIdentity == "" {
			return nil
		}
		return filter(ents, func(e Entity) bool { return e.Identity != "" && e.Identity == b.ShapeIdentity })
	},
}

var hashStrategy = Strategy{
	Tier:       TierGeometryHash,
	Confidence: ConfidenceWeak,
	Match: func(b ir.ReferenceBundle, ents []Entity, _ ir.Tolerance) []int {
		return filter(ents, func(e Entity) bool { return e.Fingerprint == b.Fingerprint })
	},
}

var geometricStrategy = Strategy{
	Tier:       TierGeometric,
	Confidence: ConfidenceWeak,
	Match: func(b ir.ReferenceBundle, ents []Entity, tol ir.Tolerance) []int {
		return filter(ents, func(e Entity) bool { return Within(b.Kind, b.Fingerprint, e.Fingerprint, tol) })
	},
}

// fingerprintStrategies are the fingerprint tiers in precedence order.
var fingerprintStrategies = []Strategy{hashStrategy, geometricStrategy}

// fingerprintCandidates runs both fingerprint tiers. The tolerance set is
// always computed: an exact match with a second entity inside tolerance is
// ambiguous. A unique exact match names the geometry_hash tier.
func fingerprintCandidates(b ir.ReferenceBundle, ents []Entity, tol ir.Tolerance) (Tier, []int) {
	exact := hashStrategy.Match(b, ents, tol)
	near := geometricStrategy.Match(b, ents, tol)
	switch {
	case len(exact) > 1:
		return TierGeometryHash, exact
	case len(near) > 1:
		return TierGeometric, near
	case len(exact) == 1:
		return TierGeometryHash, exact
	case len(near) == 1:
		return TierGeometric, near
	}
	return TierNone, nil
}

var indexStrategy = Strategy{
	Tier:       TierLocalIndex,
	Confidence: ConfidenceWeak,
	Match: func(b ir.ReferenceBundle, ents []Entity, _ ir.Tolerance) []int {
		if b.LocalIndex < 0 || b.LocalIndex >= len(ents) {
			return nil
		}
		return []int{ents[b.LocalIndex].Index}
	},
}

// Strategies returns the tiers in evaluation order.
func Strategies() []Strategy {
	out := []Strategy{identityStrategy}
	out = append(out, fingerprintStrategies...)
	return append(out, indexStrategy)
}

func filter(ents []Entity, keep func(Entity) bool) []int {
	var out []int
	for _, e := range ents {
		if keep(e) {
			out = append(out, e.Index)
		}
	}
	return out
}
