package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/ir"
)

func ptr[T any](v T) *T { return &v }

func driftedOutcome() FeatureOutcome {
	return FeatureOutcome{
		ID: "sweep",
		Envelope: ir.Envelope{
			Status:      ir.StatusWarning,
			StatusClass: "warning_recoverable",
			Severity:    "warning",
			Code:        "tnp_ref_drift",
			TNPFailure: &ir.TNPFailure{
				Category:    ir.CategoryDrift,
				Reason:      "single_ref_pair_geometric_index_confirmed",
				Kind:        ir.KindFace,
				ResolvedVia: ir.ViaLocalIndex,
				Slot:        "profile",
			},
		},
	}
}

func TestMatchEnvelope(t *testing.T) {
	got := driftedOutcome()

	tests := []struct {
		name   string
		want   Expect
		fields []string
	}{
		{name: "empty expectation", want: Expect{}},
		{
			name: "all fields match",
			want: Expect{
				Status:   "Warning",
				Code:     "tnp_ref_drift",
				Category: "Drift",
				Reason:   "single_ref_pair_geometric_index_confirmed",
				Kind:     "Face",
				Via:      "LocalIndex",
				Slot:     "profile",
			},
		},
		{name: "status differs", want: Expect{Status: "Ok"}, fields: []string{"status"}},
		{name: "via differs", want: Expect{Via: "ShapeIdentity", Slot: "path"}, fields: []string{"via", "slot"}},
		{name: "capability absent", want: Expect{Capability: "BRepFilletAPI_MakeFillet"}, fields: []string{"capability"}},
		{name: "rollback absent", want: Expect{RollbackEqual: ptr(true)}, fields: []string{"rollback"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []string
			for _, m := range matchEnvelope(tt.want, &got) {
				fields = append(fields, m.field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestMatchEnvelope_Rollback(t *testing.T) {
	got := FeatureOutcome{ID: "round", Envelope: ir.Envelope{
		Status:   ir.StatusCritical,
		Rollback: &ir.Rollback{From: "s1", To: "s1"},
		RuntimeDependency: &ir.RuntimeDependency{
			Capability: "BRepFilletAPI_MakeFillet",
		},
	}}

	assert.Empty(t, matchEnvelope(Expect{RollbackEqual: ptr(true), Capability: "BRepFilletAPI_MakeFillet"}, &got))

	ms := matchEnvelope(Expect{RollbackEqual: ptr(false)}, &got)
	require.Len(t, ms, 1)
	assert.Equal(t, "rollback_equal", ms[0].field)
	assert.Equal(t, "false", ms[0].expected)
	assert.Equal(t, "true", ms[0].actual)
}

func TestCheckStep(t *testing.T) {
	sr := StepResult{
		Op:        OpSetParams,
		Evaluated: []string{"base", "sweep"},
		Digest:    "d2",
		Features:  []FeatureOutcome{driftedOutcome()},
	}

	t.Run("passing", func(t *testing.T) {
		step := Step{
			Op:        OpSetParams,
			Evaluated: []string{"base", "sweep"},
			Expect:    map[string]Expect{"sweep": {Status: "Warning"}},
		}
		assert.Empty(t, checkStep(1, step, sr, "d1"))
	})

	t.Run("evaluated order", func(t *testing.T) {
		step := Step{Op: OpSetParams, Evaluated: []string{"sweep", "base"}}
		msgs := checkStep(1, step, sr, "d1")
		require.Len(t, msgs, 1)
		assert.Equal(t, "steps[1] set_params: evaluated: expected [sweep base], got [base sweep]", msgs[0])
	})

	t.Run("digest changed", func(t *testing.T) {
		step := Step{Op: OpSetParams, DigestUnchanged: true}
		msgs := checkStep(1, step, sr, "d1")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "digest_unchanged: expected d1, got d2")
	})

	t.Run("digest without previous pass", func(t *testing.T) {
		step := Step{Op: OpSetParams, DigestUnchanged: true}
		msgs := checkStep(0, step, sr, "")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "expected a previous pass, got none")
	})

	t.Run("features in id order", func(t *testing.T) {
		step := Step{Op: OpSetParams, Expect: map[string]Expect{
			"zeta":  {Status: "Ok"},
			"alpha": {Status: "Ok"},
			"sweep": {Code: "tnp_ref_missing"},
		}}
		msgs := checkStep(2, step, sr, "d1")
		require.Len(t, msgs, 3)
		assert.Equal(t, "steps[2] set_params feature alpha: feature: expected present, got absent", msgs[0])
		assert.Equal(t, `steps[2] set_params feature sweep: code: expected "tnp_ref_missing", got "tnp_ref_drift"`, msgs[1])
		assert.Contains(t, msgs[2], "feature zeta")
	})
}

func TestAssertionError_EmptyActual(t *testing.T) {
	got := FeatureOutcome{ID: "a", Envelope: ir.Envelope{Status: ir.StatusOk}}
	ms := matchEnvelope(Expect{Reason: "geometric_ambiguous"}, &got)
	require.Len(t, ms, 1)
	assert.Equal(t, "(empty)", ms[0].actual)
}
