package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/ir"
)

func TestGolden_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Format(t *testing.T) {
	result := &Result{Steps: []StepResult{{
		Op:        OpSetParams,
		Feature:   "round",
		Token:     "t-2",
		Evaluated: []string{"round"},
		Digest:    "ignored",
		Active:    "round_partial",
		Features: []FeatureOutcome{{
			ID:     "round",
			Stable: "round_v1",
			Envelope: ir.Envelope{
				Status:      ir.StatusError,
				StatusClass: "error",
				Severity:    "error",
				Code:        "rebuild_finalize_failed",
				Message:     "fillet round: boom",
			},
			Rollback: &ir.Rollback{From: "round_v1", To: "round_partial"},
		}},
	}}}

	data, err := Snapshot("example", result)
	require.NoError(t, err)

	want := `{
  "scenario_name": "example",
  "steps": [
    {
      "active": "round_partial",
      "evaluated": [
        "round"
      ],
      "feature": "round",
      "features": [
        {
          "code": "rebuild_finalize_failed",
          "id": "round",
          "message": "fillet round: boom",
          "rollback": {
            "from": "round_v1",
            "to": "round_partial"
          },
          "severity": "error",
          "stable": "round_v1",
          "status": "Error",
          "status_class": "error"
        }
      ],
      "op": "set_params",
      "token": "t-2"
    }
  ]
}
`
	assert.Equal(t, want, string(data))
	assert.NotContains(t, string(data), "ignored")
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
