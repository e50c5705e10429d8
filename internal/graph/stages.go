package graph

// ParallelStages returns the graph's nodes partitioned into maximal
// independent-set layers: stage 0 contains every node whose outbound
// edges are all already-satisfied (i.e. it has none), stage 1 every
// remaining node whose outbound edges only target stage-0 nodes, and so
// on. All units within one stage may be built concurrently; a later
// stage never depends on an earlier one's *later* siblings, only on
// prior stages.
//
// The graph must be acyclic (callers should have called Cycles and,
// where appropriate, RemoveCycles first); ParallelStages does not detect
// cycles itself and will simply stop yielding once no further progress
// can be made, silently dropping any node still entangled in a cycle —
// by design this function is never handed a cyclic graph in the build
// path (spec.md §4.G: cycles are reported, not silently broken, in build
// mode).
func (g *Graph[K, E]) ParallelStages() [][]K {
	remaining := make(map[int]bool, len(g.nodes))
	for i := range g.nodes {
		remaining[i] = true
	}

	var stages [][]K
	for len(remaining) > 0 {
		var group []int
		// Iterate node indices in original insertion order (not map
		// iteration order) so stage membership is deterministic given a
		// deterministic graph construction order.
		for idx := 0; idx < len(g.nodes); idx++ {
			if !remaining[idx] {
				continue
			}
			released := true
			for _, t := range g.adj[idx] {
				if remaining[t] {
					released = false
					break
				}
			}
			if released {
				group = append(group, idx)
			}
		}
		if len(group) == 0 {
			// No progress possible — a cycle slipped through. Stop rather
			// than loop forever.
			break
		}
		for _, idx := range group {
			delete(remaining, idx)
		}
		keys := make([]K, len(group))
		for i, idx := range group {
			keys[i] = g.nodes[idx]
		}
		stages = append(stages, keys)
	}
	return stages
}
