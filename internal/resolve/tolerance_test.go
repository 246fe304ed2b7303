package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tnpcore/internal/ir"
)

func TestWithin(t *testing.T) {
	base := ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NZ: 1_000_000, Extent: 50_000}

	tests := []struct {
		name  string
		kind  ir.ReferenceKind
		other ir.Fingerprint
		want  bool
	}{
		{"identical", ir.KindFace, base, true},
		{"centroid on boundary", ir.KindFace, ir.Fingerprint{CX: 1006, CY: 1008, CZ: 1000, NZ: 1_000_000, Extent: 50_000}, true},
		{"centroid axis ok but distance over", ir.KindFace, ir.Fingerprint{CX: 1008, CY: 1008, CZ: 1000, NZ: 1_000_000, Extent: 50_000}, false},
		{"centroid far", ir.KindFace, ir.Fingerprint{CX: 2000, CY: 1000, CZ: 1000, NZ: 1_000_000, Extent: 50_000}, false},
		{"normal tilted slightly", ir.KindFace, ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NX: 40_000, NZ: 999_200, Extent: 50_000}, true},
		{"normal tilted too far", ir.KindFace, ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NX: 100_000, NZ: 995_000, Extent: 50_000}, false},
		{"face normal flipped", ir.KindFace, ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NZ: -1_000_000, Extent: 50_000}, false},
		{"edge tangent flipped", ir.KindEdge, ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NZ: -1_000_000, Extent: 50_000}, true},
		{"extent within 1%", ir.KindFace, ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NZ: 1_000_000, Extent: 50_500}, true},
		{"extent over 1%", ir.KindFace, ir.Fingerprint{CX: 1000, CY: 1000, CZ: 1000, NZ: 1_000_000, Extent: 50_600}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.kind, base, tt.other, DefaultTolerance))
			assert.Equal(t, tt.want, Within(tt.kind, tt.other, base, DefaultTolerance), "symmetric")
		})
	}
}

func TestWithinCustomTolerance(t *testing.T) {
	a := ir.Fingerprint{NZ: 1_000_000, Extent: 1000}
	b := ir.Fingerprint{CX: 50, NZ: 1_000_000, Extent: 1000}

	assert.False(t, Within(ir.KindFace, a, b, DefaultTolerance))
	assert.True(t, Within(ir.KindFace, a, b, ir.Tolerance{CentroidUM: 50, MinDotPPM: 999000, ExtentPermille: 10}))
}
