package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AllScenariosPass(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ delete_source_feature")
	assert.Contains(t, out, "✓ fillet_partial_rollback")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir, "--filter", "fillet_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "fillet_partial_rollback", resp.Data.Scenarios[0].Name)
}

func TestTest_GoldenUpdateThenCompare(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")

	_, _, err := execute(t, "test", scenariosDir, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(golden, "delete_source_feature.golden"))

	_, _, err = execute(t, "test", scenariosDir, "--golden", golden)
	require.NoError(t, err)

	path := filepath.Join(golden, "fillet_partial_rollback.golden")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	out, _, err := execute(t, "test", scenariosDir, "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "do not match golden file")
}

func TestTest_MatchesHarnessGoldenFiles(t *testing.T) {
	_, _, err := execute(t, "test", scenariosDir, "--golden", filepath.Join("..", "harness", "testdata", "golden"))
	require.NoError(t, err)
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	src := `
name: wrong_status
description: "Expects a failure that does not happen"
document: |
  document: d: features: [{id: "a", operation_kind: "primitive"}]
kernel:
  shapes: [{id: a_v1}]
  rules: [{feature: a, shape: a_v1}]
steps:
  - op: rebuild
    expect:
      a: {status: Error}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_status.yaml"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: [\n"), 0o644))

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Failed)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, "broken.yml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[1].Errors[0], `status: expected "Error", got "Ok"`)
}

func TestTest_CommandErrors(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "test", scenariosDir, "--update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")
}

func TestTest_NoScenarios(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
