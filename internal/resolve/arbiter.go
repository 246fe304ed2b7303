package resolve

import "github.com/roach88/tnpcore/internal/ir"

// Candidates is what the weak tiers produced for one bundle once identity
// failed. Fingerprint holds the candidates of the deciding fingerprint tier
// (Tier names it); Index is the entity at the stored local_index, or -1
// when out of range.
type Candidates struct {
	Kind        ir.ReferenceKind
	Tier        Tier
	Fingerprint []int
	Index       int
}

type tierReasons struct {
	ambiguous, confirmed, conflict, recovered string
}

var reasons = map[Tier]tierReasons{
	TierGeometryHash: {
		ambiguous: ir.ReasonGeometryHashAmbiguous,
		confirmed: ir.ReasonGeometryHashIndexConfirmed,
		conflict:  ir.ReasonGeometryHashConflict,
		recovered: ir.ReasonGeometryHashRecovered,
	},
	TierGeometric: {
		ambiguous: ir.ReasonGeometricAmbiguous,
		confirmed: ir.ReasonGeometricIndexConfirmed,
		conflict:  ir.ReasonGeometricConflict,
		recovered: ir.ReasonGeometricRecovered,
	},
}

// Arbitrate applies the tie-break policy:
//
//   - two or more fingerprint candidates: Mismatch, whatever the policy
//   - exactly one fingerprint candidate (the single_ref_pair): Drift,
//     preferring the index candidate when there is one, even when it
//     disagrees with the fingerprint
//   - no fingerprint candidate under strict policy without the legacy
//     override: Missing, no fallback
//   - otherwise legacy index recovery when the index is valid, else Missing
func Arbitrate(c Candidates, p ir.Policy) Resolution {
	switch n := len(c.Fingerprint); {
	case n >= 2:
		return failure(ir.CategoryMismatch, c.Kind, reasons[c.Tier].ambiguous)
	case n == 1:
		rs := reasons[c.Tier]
		fp := c.Fingerprint[0]
		switch {
		case c.Index < 0:
			return Resolution{Index: fp, Tier: c.Tier, Confidence: ConfidenceWeak, Via: ir.ViaShapeIdentity,
				Failure: drift(c.Kind, rs.recovered, ir.ViaShapeIdentity)}
		case c.Index == fp:
			return Resolution{Index: c.Index, Tier: TierLocalIndex, Confidence: ConfidenceWeak, Via: ir.ViaLocalIndex,
				Failure: drift(c.Kind, rs.confirmed, ir.ViaLocalIndex)}
		default:
			return Resolution{Index: c.Index, Tier: TierLocalIndex, Confidence: ConfidenceWeak, Via: ir.ViaLocalIndex,
				Failure: drift(c.Kind, rs.conflict, ir.ViaLocalIndex)}
		}
	}

	if p.StrictTopology && !p.LegacyRecovery {
		return failure(ir.CategoryMissing, c.Kind, ir.ReasonMissingStrict)
	}
	if c.Index >= 0 {
		return Resolution{Index: c.Index, Tier: TierLocalIndex, Confidence: ConfidenceWeak, Via: ir.ViaLocalIndex,
			Failure: drift(c.Kind, ir.ReasonLegacyIndexRecovery, ir.ViaLocalIndex)}
	}
	return failure(ir.CategoryMissing, c.Kind, ir.ReasonNoCandidate)
}
