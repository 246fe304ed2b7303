package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadCode(t *testing.T, errs []error) string {
	t.Helper()
	require.NotEmpty(t, errs)
	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	return le.Code
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "part.cue", partCUE)

	result, errs := Load(path, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, 1, result.FileCount)

	doc := result.Document("part")
	require.NotNil(t, doc)
	assert.Len(t, doc.Features, 3)
	assert.Nil(t, result.Document("missing"))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "part.cue", "package parts\n"+partCUE)
	writeFile(t, dir, "bracket.cue", `package parts

document: bracket: features: [{id: "plate", operation_kind: "primitive", parameters: {width: 40}}]
`)

	result, errs := Load(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 2, result.FileCount)
	require.Len(t, result.Documents, 2)
	assert.NotNil(t, result.Document("part"))
	assert.NotNil(t, result.Document("bracket"))
}

func TestLoadCollectAll(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mixed.cue", `
document: good: features: [{id: "a", operation_kind: "primitive"}]
document: bad1: features: [{id: "a", operation_kind: "loft"}]
document: bad2: features: []
`)

	result, errs := Load(path, LoadModeCollectAll)
	require.Len(t, errs, 2)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "good", result.Documents[0].Name)
	assert.Equal(t, ErrCodeCompile, loadCode(t, errs))
	assert.Contains(t, errs[0].Error(), "document.bad1")

	_, errs = Load(path, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, errs := Load(filepath.Join(t.TempDir(), "nope.cue"), LoadModeFailFast)
		assert.Equal(t, ErrCodeNotFound, loadCode(t, errs))
	})

	t.Run("empty directory", func(t *testing.T) {
		_, errs := Load(t.TempDir(), LoadModeFailFast)
		assert.Equal(t, ErrCodeNoFiles, loadCode(t, errs))
	})

	t.Run("unresolved reference", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "broken.cue", "x: undefinedRef\n")
		_, errs := Load(path, LoadModeFailFast)
		assert.Contains(t, []string{ErrCodeLoadFailed, ErrCodeBuildFailed}, loadCode(t, errs))
	})

	t.Run("no documents", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "other.cue", `other: 1`)
		_, errs := Load(path, LoadModeFailFast)
		assert.Equal(t, ErrCodeNoDocuments, loadCode(t, errs))
	})
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "a: 1")
	writeFile(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, filepath.Join(dir, "sub"), "b.cue", "b: 1")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
