package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_Text(t *testing.T) {
	out, _, err := execute(t, "digest", partDoc, "--script", partScript)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "digest "))
	assert.True(t, strings.HasPrefix(lines[1], "summary "))
}

func TestDigest_StableAcrossRuns(t *testing.T) {
	first, _, err := execute(t, "digest", partDoc, "--script", partScript, "--format", "json")
	require.NoError(t, err)
	second, _, err := execute(t, "digest", partDoc, "--script", partScript, "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var resp struct {
		Data DigestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &resp))
	assert.Equal(t, "part", resp.Data.Document)
	assert.Equal(t, 3, resp.Data.Features)
	assert.Len(t, resp.Data.Digest, 64)
	assert.NotEqual(t, resp.Data.Digest, resp.Data.SummaryFingerprint)
}

func TestDigest_ChangesWithParameters(t *testing.T) {
	base, _, err := execute(t, "digest", partDoc, "--script", partScript)
	require.NoError(t, err)

	edited, _, err := execute(t, "digest", writePart(t, "{radius: 1}", "{radius: 2}"), "--script", partScript)
	require.NoError(t, err)
	assert.NotEqual(t, base, edited)
}
