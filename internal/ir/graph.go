package ir

import "slices"

// InputCycles returns every strongly connected component of the feature
// input graph that is a cycle (more than one feature, or a feature naming
// itself). Members of a cycle are listed in document order and cycles are
// ordered by their earliest member. Inputs naming no feature contribute no
// edge. Features sharing an id are one node.
func InputCycles(d *Document) [][]string {
	var (
		ids   []string
		pos   = make(map[string]int, len(d.Features))
		edges [][]int
	)
	for _, f := range d.Features {
		if _, seen := pos[f.ID]; !seen {
			pos[f.ID] = len(ids)
			ids = append(ids, f.ID)
			edges = append(edges, nil)
		}
	}
	for _, f := range d.Features {
		v := pos[f.ID]
		for _, in := range f.Inputs {
			if w, ok := pos[in]; ok && !slices.Contains(edges[v], w) {
				edges[v] = append(edges[v], w)
			}
		}
	}

	var (
		index   = 0
		stack   []int
		indices = make([]int, len(ids))
		lowlink = make([]int, len(ids))
		onStack = make([]bool, len(ids))
		out     [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || slices.Contains(edges[v], v) {
			slices.Sort(scc)
			out = append(out, scc)
		}
	}

	for v := range ids {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}

	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	names := make([][]string, len(out))
	for i, scc := range out {
		names[i] = make([]string, len(scc))
		for j, n := range scc {
			names[i][j] = ids[n]
		}
	}
	return names
}
