package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/tnpcore/internal/ir"
)

// Cycle is a closed input path: Path[0] == Path[len(Path)-1].
type Cycle struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// FindCycles reports every input cycle of doc, in document order. Each
// path follows input edges from the cycle's earliest member back to it.
func FindCycles(doc *ir.Document) []Cycle {
	g := make(dependencyGraph, len(doc.Features))
	for _, f := range doc.Features {
		g[f.ID] = append(g[f.ID], f.Inputs...)
	}

	var out []Cycle
	for _, scc := range ir.InputCycles(doc) {
		path := reconstructCyclePath(scc, g)
		out = append(out, Cycle{
			Path:    path,
			Message: fmt.Sprintf("input cycle: %s", strings.Join(path, " -> ")),
		})
	}
	return out
}

// dependencyGraph maps feature id -> the ids it consumes.
type dependencyGraph map[string][]string

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}
	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
