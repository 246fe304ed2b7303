package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/ir"
)

func graphDoc(edges map[string][]string, order ...string) *ir.Document {
	doc := &ir.Document{Name: "g"}
	for _, id := range order {
		doc.Features = append(doc.Features, ir.Feature{ID: id, Op: ir.OpExtrude, Inputs: edges[id]})
	}
	doc.Normalize()
	return doc
}

func TestFindCyclesEmpty(t *testing.T) {
	assert.Empty(t, FindCycles(&ir.Document{}))
}

func TestFindCyclesDAG(t *testing.T) {
	doc := graphDoc(map[string][]string{
		"b": {"a"},
		"c": {"a", "b"},
	}, "a", "b", "c")
	assert.Empty(t, FindCycles(doc))
}

func TestFindCyclesSelfLoop(t *testing.T) {
	doc := graphDoc(map[string][]string{"a": {"a"}}, "a")
	cycles := FindCycles(doc)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
	assert.Equal(t, "input cycle: a -> a", cycles[0].Message)
}

func TestFindCyclesThreeFeatures(t *testing.T) {
	doc := graphDoc(map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
		"d": {"a"},
	}, "a", "b", "c", "d")
	cycles := FindCycles(doc)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "c", "b", "a"}, cycles[0].Path)
}

func TestFindCyclesIgnoresUnknownInputs(t *testing.T) {
	doc := graphDoc(map[string][]string{"a": {"ghost"}}, "a")
	assert.Empty(t, FindCycles(doc))
}

func TestFindCyclesDisjoint(t *testing.T) {
	doc := graphDoc(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"x": {"y"},
		"y": {"x"},
	}, "a", "b", "x", "y")
	cycles := FindCycles(doc)
	require.Len(t, cycles, 2)
	paths := [][]string{cycles[0].Path, cycles[1].Path}
	assert.ElementsMatch(t, [][]string{{"a", "b", "a"}, {"x", "y", "x"}}, paths)
}
