package resolve

import "github.com/roach88/tnpcore/internal/ir"

// DefaultTolerance is used when a document's policy sets none: 10 µm
// centroid distance, cos θ >= 0.999 (about 2.56°), 1 % extent difference.
var DefaultTolerance = ir.Tolerance{
	CentroidUM:     10,
	MinDotPPM:      999000,
	ExtentPermille: 10,
}

// Within reports whether two fingerprints of the given kind match under
// tol. All three conditions must hold:
//
//	|c1 - c2| <= CentroidUM
//	dot(n1, n2) >= MinDotPPM * 1e6    (|dot| for edges: tangent sign is arbitrary)
//	|e1 - e2| * 1000 <= ExtentPermille * max(|e1|, |e2|)
func Within(kind ir.ReferenceKind, a, b ir.Fingerprint, tol ir.Tolerance) bool {
	dx, dy, dz := abs(a.CX-b.CX), abs(a.CY-b.CY), abs(a.CZ-b.CZ)
	c := tol.CentroidUM
	if dx > c || dy > c || dz > c {
		return false
	}
	if dx*dx+dy*dy+dz*dz > c*c {
		return false
	}

	dot := a.NX*b.NX + a.NY*b.NY + a.NZ*b.NZ
	if kind == ir.KindEdge {
		dot = abs(dot)
	}
	if dot < tol.MinDotPPM*1_000_000 {
		return false
	}

	ea, eb := abs(a.Extent), abs(b.Extent)
	return abs(ea-eb)*1000 <= tol.ExtentPermille*max(ea, eb)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
