package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
)

// Fingerprints of the fixture part's referenced entities.
var (
	BoxTop  = ir.Fingerprint{CZ: 10_000, NZ: 1_000_000, Extent: 100_000_000}
	PadEdge = ir.Fingerprint{CX: 5_000, CZ: 30_000, NX: 1_000_000, Extent: 10_000}
)

// PartScript is the kernel script of the fixture part.
//
//   - box (primitive): size 10 -> box_v1, 20 -> box_v2 (the top face loses
//     its persistent name but keeps its geometry), 30 -> box_v3 (the top
//     face moves), -1 -> geometry error
//   - pad (extrude of the box top) -> pad_v1
//   - round (fillet of a pad edge): radius 1 -> round_v1, 2 -> round_v2,
//     99 -> geometry error after confirming round_partial,
//     50 -> fillet capability unavailable
const PartScript = `
shapes:
  - id: box_v1
    faces:
      - {identity: "F:box_top", fingerprint: {cz: 10000, nz: 1000000, extent: 100000000}}
      - {identity: "F:box_bottom", fingerprint: {nz: -1000000, extent: 100000000}}
    edges:
      - {identity: "E:box0", fingerprint: {cx: 5000, cz: 10000, nx: 1000000, extent: 10000}}
      - {identity: "E:box1", fingerprint: {cy: 5000, cz: 10000, ny: 1000000, extent: 10000}}
  - id: box_v2
    faces:
      - {fingerprint: {cz: 10000, nz: 1000000, extent: 100000000}}
      - {identity: "F:box_bottom", fingerprint: {nz: -1000000, extent: 100000000}}
    edges:
      - {identity: "E:box0", fingerprint: {cx: 5000, cz: 10000, nx: 1000000, extent: 10000}}
      - {identity: "E:box1", fingerprint: {cy: 5000, cz: 10000, ny: 1000000, extent: 10000}}
  - id: box_v3
    faces:
      - {fingerprint: {cz: 20000, nz: 1000000, extent: 400000000}}
      - {identity: "F:box_bottom", fingerprint: {nz: -1000000, extent: 400000000}}
  - id: pad_v1
    faces:
      - {identity: "F:pad_top", fingerprint: {cz: 30000, nz: 1000000, extent: 100000000}}
    edges:
      - {identity: "E:pad0", fingerprint: {cx: 5000, cz: 30000, nx: 1000000, extent: 10000}}
      - {identity: "E:pad1", fingerprint: {cy: 5000, cz: 30000, ny: 1000000, extent: 10000}}
  - id: round_v1
    faces:
      - {identity: "F:round", fingerprint: {cx: 5000, cz: 30000, nx: 707107, nz: 707107, extent: 15708}}
  - id: round_v2
    faces:
      - {identity: "F:round", fingerprint: {cx: 5000, cz: 30000, nx: 707107, nz: 707107, extent: 31416}}
  - id: round_partial
    faces:
      - {identity: "F:round_partial", fingerprint: {cx: 5000, cz: 30000, nx: 707107, nz: 707107, extent: 7854}}
rules:
  - {feature: box, when: {size: 10}, shape: box_v1}
  - {feature: box, when: {size: 20}, shape: box_v2}
  - {feature: box, when: {size: 30}, shape: box_v3}
  - {feature: box, when: {size: -1}, error: "non-positive size"}
  - {feature: pad, shape: pad_v1}
  - {feature: round, when: {radius: 1}, shape: round_v1}
  - {feature: round, when: {radius: 2}, shape: round_v2}
  - {feature: round, when: {radius: 99}, error: "radius exceeds edge length", partial: round_partial}
  - {feature: round, when: {radius: 50}, unavailable: BRepFilletAPI_MakeFillet}
`

// Kernel returns a fresh Memory kernel running PartScript.
func Kernel(t testing.TB) *kernel.Memory {
	t.Helper()
	s, err := kernel.ParseScript([]byte(PartScript))
	require.NoError(t, err)
	return kernel.NewMemory(s)
}

// Part returns the never-built fixture document: box -> pad -> round.
func Part() *ir.Document {
	doc := &ir.Document{
		Name:   "part",
		Policy: ir.Policy{StrictTopology: true},
		Features: []ir.Feature{
			{
				ID:     "box",
				Op:     ir.OpPrimitive,
				Params: ir.NewObject(ir.P("size", ir.Int(10))),
			},
			{
				ID:     "pad",
				Op:     ir.OpExtrude,
				Params: ir.NewObject(ir.P("depth", ir.Int(20))),
				Inputs: []string{"box"},
				Slots: []ir.Slot{{
					Name:   "profile",
					Source: "box",
					Refs: []ir.ReferenceBundle{
						{Kind: ir.KindFace, ShapeIdentity: "F:box_top", LocalIndex: 0, Fingerprint: BoxTop},
					},
				}},
			},
			{
				ID:     "round",
				Op:     ir.OpFillet,
				Params: ir.NewObject(ir.P("radius", ir.Int(1))),
				Inputs: []string{"pad"},
				Slots: []ir.Slot{{
					Name:   "edges",
					Source: "pad",
					Refs: []ir.ReferenceBundle{
						{Kind: ir.KindEdge, ShapeIdentity: "E:pad0", LocalIndex: 0, Fingerprint: PadEdge},
					},
				}},
			},
		},
	}
	doc.Normalize()
	return doc
}
