package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/compiler"
)

func TestValidateValidDocument(t *testing.T) {
	out, _, err := execute(t, "validate", partDoc)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 document(s) valid: part")
}

func TestValidateValidDocumentJSON(t *testing.T) {
	out, _, err := execute(t, "validate", partDoc, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"part"}, resp.Data.Documents)
}

func TestValidateNonExistentPath(t *testing.T) {
	out, _, err := execute(t, "validate", "/nonexistent/part.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), compiler.ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), compiler.ErrCodeNoFiles)
}

func TestValidateInvalidDocument(t *testing.T) {
	path := writePart(t, `inputs: ["pad"]`, `inputs: ["ghost"]`)

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrDanglingInput)
	assert.Contains(t, out, "part.")
}

func TestValidateInvalidDocumentJSON(t *testing.T) {
	path := writePart(t, `id:             "pad"`, `id:             "box"`)

	out, _, err := execute(t, "validate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, compiler.ErrDuplicateID, resp.Error.Code)
}

func TestValidateCompileErrorIsReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cue")
	src := `document: bad: features: [{id: "a", operation_kind: "lathe"}]`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrCodeCompile)
	assert.Contains(t, out, `unknown operation "lathe"`)
}
