package graph

// Cycles returns every non-trivial strongly-connected component (size
// >= 2) of the graph, in Tarjan discovery order, as slices of node keys.
// A single self-loop (a node linking to itself) forms a size-1
// component and is not reported.
func (g *Graph[K, E]) Cycles() [][]K {
	t := &tarjanState[K, E]{
		g:       g,
		index:   make([]int, len(g.nodes)),
		lowlink: make([]int, len(g.nodes)),
		onStack: make([]bool, len(g.nodes)),
		visited: make([]bool, len(g.nodes)),
	}
	for i := range t.index {
		t.index[i] = -1
	}

	for i := range g.nodes {
		if !t.visited[i] {
			t.strongConnect(i)
		}
	}

	out := make([][]K, 0, len(t.sccs))
	for _, scc := range t.sccs {
		if len(scc) < 2 {
			continue
		}
		keys := make([]K, len(scc))
		for j, idx := range scc {
			keys[j] = g.nodes[idx]
		}
		out = append(out, keys)
	}
	return out
}

type tarjanState[K comparable, E any] struct {
	g          *Graph[K, E]
	counter    int
	index      []int
	lowlink    []int
	onStack    []bool
	visited    []bool
	stack      []int
	sccs       [][]int
}

func (t *tarjanState[K, E]) strongConnect(v int) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.visited[v] = true
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.adj[v] {
		if t.index[w] == -1 {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			// Deliberately compare against index[w], not lowlink[w] — this
			// is the textbook Tarjan invariant: w is on the stack, so it
			// belongs to the current SCC-in-progress, and only its
			// discovery index (not a possibly-stale lowlink) is safe to
			// fold in here.
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []int
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// RemovedEdge records one edge dropped by RemoveCycles.
type RemovedEdge[K comparable] struct {
	From K
	To   K
}

// RemoveCycles applies the heuristic from spec.md §4.F to every cycle
// returned by Cycles, mutating the graph in place, and returns every
// edge it removed.
//
// For each cycle, the node whose outbound edges include the *fewest*
// that stay within the cycle is chosen, and one of its in-cycle outbound
// edges is dropped (its only edge, if it has just one). This follows the
// original implementation's actual code rather than its prose comment —
// the code picks the minimum count of in-cycle outbound edges, which is
// not quite "fewest edges that leave the cycle" as the prose states; see
// DESIGN.md for the discrepancy and why the code wins.
func (g *Graph[K, E]) RemoveCycles(cycles [][]K) []RemovedEdge[K] {
	var removed []RemovedEdge[K]

	for _, cycle := range cycles {
		inCycle := make(map[int]bool, len(cycle))
		indices := make([]int, 0, len(cycle))
		for _, k := range cycle {
			idx := g.index[k]
			inCycle[idx] = true
			indices = append(indices, idx)
		}

		best := -1
		bestCount := -1
		for _, idx := range indices {
			count := 0
			for _, t := range g.adj[idx] {
				if inCycle[t] {
					count++
				}
			}
			if best == -1 || count < bestCount {
				best = idx
				bestCount = count
			}
		}
		if best == -1 {
			continue
		}

		if len(g.adj[best]) == 1 {
			to := g.nodes[g.adj[best][0]]
			g.removeEdgeAt(best, 0)
			removed = append(removed, RemovedEdge[K]{From: g.nodes[best], To: to})
			continue
		}

		for j, t := range g.adj[best] {
			if inCycle[t] {
				to := g.nodes[t]
				g.removeEdgeAt(best, j)
				removed = append(removed, RemovedEdge[K]{From: g.nodes[best], To: to})
				break
			}
		}
	}

	return removed
}
