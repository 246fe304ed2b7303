package rebuild

import (
	"container/heap"
	"slices"

	"github.com/roach88/tnpcore/internal/ir"
)

// graph is the feature dependency graph of one document. Nodes are
// document positions; an edge runs from an input to the feature that
// consumes it. Inputs naming deleted features contribute no edge.
type graph struct {
	ids        []string
	pos        map[string]int
	inputs     [][]int
	dependents [][]int
}

func buildGraph(doc *ir.Document) *graph {
	g := &graph{
		ids:        make([]string, len(doc.Features)),
		pos:        make(map[string]int, len(doc.Features)),
		inputs:     make([][]int, len(doc.Features)),
		dependents: make([][]int, len(doc.Features)),
	}
	for i, f := range doc.Features {
		g.ids[i] = f.ID
		g.pos[f.ID] = i
	}
	for i, f := range doc.Features {
		for _, in := range f.Inputs {
			j, ok := g.pos[in]
			if !ok || slices.Contains(g.inputs[i], j) {
				continue
			}
			g.inputs[i] = append(g.inputs[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}
	return g
}

// order is Kahn's algorithm; among ready features the earliest in the
// document goes first. The graph must be acyclic.
func (g *graph) order() []int {
	indeg := make([]int, len(g.ids))
	for i := range g.ids {
		indeg[i] = len(g.inputs[i])
	}
	ready := &posHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}
	out := make([]int, 0, len(g.ids))
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int)
		out = append(out, v)
		for _, w := range g.dependents[v] {
			indeg[w]--
			if indeg[w] == 0 {
				heap.Push(ready, w)
			}
		}
	}
	return out
}

// descendants marks v and everything downstream of it.
func (g *graph) descendants(v int, marked []bool) {
	stack := []int{v}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if marked[n] {
			continue
		}
		marked[n] = true
		stack = append(stack, g.dependents[n]...)
	}
}

// scope decides which features a pass evaluates. from < 0 selects all.
// Otherwise from and its transitive dependents are selected, then any
// upstream feature whose output the pass cannot take from the shape cache.
func (g *graph) scope(from int, cached func(int) bool) []bool {
	marked := make([]bool, len(g.ids))
	if from < 0 {
		for i := range marked {
			marked[i] = true
		}
		return marked
	}
	g.descendants(from, marked)

	var stack []int
	for i, m := range marked {
		if m {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, in := range g.inputs[n] {
			if marked[in] || cached(in) {
				continue
			}
			marked[in] = true
			stack = append(stack, in)
		}
	}
	return marked
}

type posHeap []int

func (h posHeap) Len() int           { return len(h) }
func (h posHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h posHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *posHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *posHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
