package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/ir"
)

func compileString(t *testing.T, src, path string) (*ir.Document, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileDocument(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileDocumentBasic(t *testing.T) {
	doc, err := compileString(t, partCUE, "document.part")
	require.NoError(t, err)

	assert.Equal(t, "part", doc.Name)
	assert.True(t, doc.Policy.StrictTopology)
	assert.False(t, doc.Policy.LegacyRecovery)
	require.NotNil(t, doc.Policy.Tolerance)
	assert.Equal(t, ir.Tolerance{CentroidUM: 5, MinDotPPM: 998_000, ExtentPermille: 20}, *doc.Policy.Tolerance)

	require.Len(t, doc.Features, 3)
	box, pad, round := doc.Features[0], doc.Features[1], doc.Features[2]

	assert.Equal(t, ir.OpPrimitive, box.Op)
	assert.Equal(t, ir.Object{"size": ir.Int(10)}, box.Params)
	assert.Equal(t, []string{}, box.Inputs)
	assert.Equal(t, []string{"pad"}, box.Dependents)

	assert.Equal(t, ir.Object{
		"depth": ir.Int(20),
		"taper": ir.Object{"enabled": ir.Bool(false), "steps": ir.List{ir.Int(1), ir.Int(2)}},
	}, pad.Params)
	require.Len(t, pad.Slots, 1)
	ref := pad.Slots[0].Refs[0]
	assert.Equal(t, ir.KindFace, ref.Kind)
	assert.Equal(t, "F:box_top", ref.ShapeIdentity)
	assert.Equal(t, ir.Fingerprint{CZ: 10_000, NZ: 1_000_000, Extent: 100_000_000}, ref.Fingerprint)

	assert.Empty(t, round.Slots[0].Refs[0].ShapeIdentity)
	assert.Equal(t, ir.GenesisSnapshot, doc.ActiveSnapshot)
	for _, f := range doc.Features {
		assert.Equal(t, ir.GenesisSnapshot, f.StableSnapshot, f.ID)
		assert.Empty(t, f.Status.Code, f.ID)
	}
	assert.NoError(t, doc.Validate())
}

func TestCompileDocumentQuotedName(t *testing.T) {
	doc, err := compileString(t, `
		document: "left-bracket": features: [{id: "a", operation_kind: "primitive"}]
	`, `document."left-bracket"`)
	require.NoError(t, err)
	assert.Equal(t, "left-bracket", doc.Name)
}

func TestCompileDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "missing features",
			src:  `document: d: policy: strict_topology_policy: true`,
			want: []string{"features", "required"},
		},
		{
			name: "empty features",
			src:  `document: d: features: []`,
			want: []string{"at least one feature"},
		},
		{
			name: "unknown top-level field",
			src:  `document: d: {features: [{id: "a", operation_kind: "primitive"}], polcy: {}}`,
			want: []string{"unknown field", "polcy"},
		},
		{
			name: "unknown operation",
			src:  `document: d: features: [{id: "a", operation_kind: "loft"}]`,
			want: []string{"unknown operation", "loft"},
		},
		{
			name: "missing id",
			src:  `document: d: features: [{operation_kind: "primitive"}]`,
			want: []string{"id is required"},
		},
		{
			name: "float parameter",
			src:  `document: d: features: [{id: "a", operation_kind: "primitive", parameters: {size: 1.5}}]`,
			want: []string{"float values are forbidden"},
		},
		{
			name: "null parameter",
			src:  `document: d: features: [{id: "a", operation_kind: "primitive", parameters: {size: null}}]`,
			want: []string{"null values are forbidden"},
		},
		{
			name: "parameters not a struct",
			src:  `document: d: features: [{id: "a", operation_kind: "primitive", parameters: [1]}]`,
			want: []string{"must be a struct"},
		},
		{
			name: "negative tolerance",
			src: `document: d: {
				policy: tolerance: {centroid_um: -1, min_dot_ppm: 0, extent_permille: 0}
				features: [{id: "a", operation_kind: "primitive"}]
			}`,
			want: []string{"centroid_um", "non-negative"},
		},
		{
			name: "bad reference kind",
			src: `document: d: features: [{
				id: "e", operation_kind: "extrude", inputs: ["a"]
				reference_slots: [{name: "profile", source: "a", refs: [{
					reference_kind: "vertex", local_index: 0, geometric_fingerprint: {}
				}]}]
			}]`,
			want: []string{"reference_kind"},
		},
		{
			name: "negative local index",
			src: `document: d: features: [{
				id: "e", operation_kind: "extrude", inputs: ["a"]
				reference_slots: [{name: "profile", source: "a", refs: [{
					reference_kind: "Face", local_index: -2, geometric_fingerprint: {}
				}]}]
			}]`,
			want: []string{"local_index", "non-negative"},
		},
		{
			name: "missing fingerprint",
			src: `document: d: features: [{
				id: "e", operation_kind: "extrude", inputs: ["a"]
				reference_slots: [{name: "profile", source: "a", refs: [{reference_kind: "Face", local_index: 0}]}]
			}]`,
			want: []string{"fingerprint is required"},
		},
		{
			name: "float fingerprint",
			src: `document: d: features: [{
				id: "e", operation_kind: "extrude", inputs: ["a"]
				reference_slots: [{name: "profile", source: "a", refs: [{
					reference_kind: "Face", local_index: 0, geometric_fingerprint: {cz: 0.5}
				}]}]
			}]`,
			want: []string{"float values are forbidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileString(t, tt.src, "document.d")
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
			var ce *CompileError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	err := &CompileError{Field: "features", Message: "at least one feature is required"}
	assert.Equal(t, "features: at least one feature is required", err.Error())
}

func TestCompileFeature(t *testing.T) {
	v := cuecontext.New().CompileString(`{
		id: "hole", operation_kind: "hole", inputs: ["pad"], parameters: {diameter: 4}
		reference_slots: [{name: "face", source: "pad", refs: [{
			reference_kind: "Face", shape_identity: "F:pad_top", local_index: 0
			geometric_fingerprint: {cz: 30000, nz: 1000000, extent: 100000000}
		}]}]
	}`)
	f, err := CompileFeature(v)
	require.NoError(t, err)
	assert.Equal(t, "hole", f.ID)
	assert.Equal(t, ir.OpHole, f.Op)
	assert.Equal(t, []string{"pad"}, f.Inputs)
	require.NoError(t, ir.CheckContract(&f))

	_, err = CompileFeature(cuecontext.New().CompileString(`{id: "x", operation_kind: "primitive", colour: "red"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
