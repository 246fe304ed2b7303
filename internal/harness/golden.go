package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tnpcore/internal/ir"
)

// Snapshot renders a result as indented canonical JSON: every step's
// envelopes, with snapshot ids replaced by shape names and no digests, so
// golden files stay readable and hash-free.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Steps))
	for i, sr := range result.Steps {
		steps[i] = stepMap(sr)
	}
	canonical, err := ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"steps":         steps,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", scenarioName, err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", "  "); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", scenarioName, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func stepMap(sr StepResult) map[string]any {
	features := make([]any, len(sr.Features))
	for i, f := range sr.Features {
		features[i] = featureMap(f)
	}
	m := map[string]any{
		"op":        sr.Op,
		"token":     sr.Token,
		"evaluated": sr.Evaluated,
		"active":    sr.Active,
		"features":  features,
	}
	if sr.Feature != "" {
		m["feature"] = sr.Feature
	}
	return m
}

func featureMap(f FeatureOutcome) map[string]any {
	env := f.Envelope
	m := map[string]any{
		"id":           f.ID,
		"stable":       f.Stable,
		"status":       string(env.Status),
		"status_class": env.StatusClass,
		"severity":     env.Severity,
		"code":         env.Code,
	}
	if env.Message != "" {
		m["message"] = env.Message
	}
	if tf := env.TNPFailure; tf != nil {
		fm := map[string]any{
			"category":       string(tf.Category),
			"reference_kind": string(tf.Kind),
			"reason":         tf.Reason,
			"resolved_via":   string(tf.ResolvedVia),
		}
		if tf.Slot != "" {
			fm["slot"] = tf.Slot
		}
		m["tnp_failure"] = fm
	}
	if f.Rollback != nil {
		m["rollback"] = map[string]any{"from": f.Rollback.From, "to": f.Rollback.To}
	}
	if dep := env.RuntimeDependency; dep != nil {
		dm := map[string]any{"capability": dep.Capability}
		if dep.Detail != "" {
			dm["detail"] = dep.Detail
		}
		m["runtime_dependency"] = dm
	}
	return m
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
