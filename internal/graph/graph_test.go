package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelStagesPartitionsDAG(t *testing.T) {
	g := New[string, struct{}]()
	// a -> b -> c ; a -> c
	g.Link("a", "b")
	g.Link("b", "c")
	g.Link("a", "c")
	g.Add("d") // isolated node

	stages := g.ParallelStages()
	require.NotEmpty(t, stages)

	seen := map[string]int{}
	for stageIdx, stage := range stages {
		for _, n := range stage {
			seen[n] = stageIdx
		}
	}
	assert.Equal(t, 4, len(seen), "every node should appear in exactly one stage")

	// no forward edges across layers: if x->y then stage(x) > stage(y)
	for _, from := range g.Nodes() {
		for _, to := range g.EdgesFrom(from) {
			assert.Greater(t, seen[from], seen[to], "%s -> %s should not cross stages backwards", from, to)
		}
	}
}

func TestCyclesFindsNonTrivialSCC(t *testing.T) {
	g := New[string, struct{}]()
	g.Link("a", "b")
	g.Link("b", "a")
	g.Link("c", "d") // acyclic edge, not part of any cycle

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	members := map[string]bool{}
	for _, n := range cycles[0] {
		members[n] = true
	}
	assert.True(t, members["a"])
	assert.True(t, members["b"])
}

func TestRemoveCyclesBreaksCycle(t *testing.T) {
	g := New[string, struct{}]()
	g.Link("a", "b")
	g.Link("b", "a")

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	removed := g.RemoveCycles(cycles)
	assert.Len(t, removed, 1)
	assert.Empty(t, g.Cycles())

	// Now the graph is a DAG: ParallelStages should terminate and partition it.
	stages := g.ParallelStages()
	total := 0
	for _, s := range stages {
		total += len(s)
	}
	assert.Equal(t, 2, total)
}

func TestLinkIsIdempotent(t *testing.T) {
	g := New[string, int]()
	e1 := g.Link("a", "b")
	*e1 = 5
	e2 := g.Link("a", "b")
	assert.Equal(t, 5, *e2)
	assert.Len(t, g.EdgesFrom("a"), 1)
}
