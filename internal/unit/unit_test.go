package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage(name, root string) *Package {
	id := NewPackageId(name, nil, NewSourceId(root))
	return &Package{Id: id}
}

func TestBuildGraphLibraryDependencyOrder(t *testing.T) {
	// Package A: static lib "alib"; Package B: bin "b" depending on alib.
	a := testPackage("a", "/ws/a")
	alib := &Target{Name: "alib", Package: a.Id, Kind: Static, Sources: []string{"/ws/a/a.c"}}
	a.Targets = append(a.Targets, alib)

	b := testPackage("b", "/ws/b")
	b.Dependencies = append(b.Dependencies, Dependency{Name: "a", SourceId: a.Id.Source()})
	bbin := &Target{
		Name:    "b",
		Package: b.Id,
		Kind:    Bin,
		Sources: []string{"/ws/b/b.c"},
		Depends: []PublicPrivate[TargetName]{Private(NewTargetName("a", "alib"))},
	}
	b.Targets = append(b.Targets, bbin)

	pm := NewPackageMap([]*Package{a, b})
	um, err := FromPackageMap(pm)
	require.NoError(t, err)

	g := um.BuildGraph([]*Target{bbin})
	stages := g.ParallelStages()
	require.NotEmpty(t, stages)

	stageOf := map[Unit]int{}
	for i, stage := range stages {
		for _, u := range stage {
			stageOf[u] = i
		}
	}

	assert.Less(t, stageOf[FromTarget(alib)], stageOf[FromTarget(bbin)], "alib must be built before b")
}

func TestBuildGraphDetectsCycle(t *testing.T) {
	a := testPackage("a", "/ws/a")
	ta := &Target{Name: "a", Package: a.Id, Kind: Static}
	tb := &Target{Name: "b", Package: a.Id, Kind: Static}
	ta.Depends = []PublicPrivate[TargetName]{Private(NewTargetName("a", "b"))}
	tb.Depends = []PublicPrivate[TargetName]{Private(NewTargetName("a", "a"))}
	a.Targets = []*Target{ta, tb}

	pm := NewPackageMap([]*Package{a})
	um, err := FromPackageMap(pm)
	require.NoError(t, err)

	g := um.BuildGraph([]*Target{ta})
	cycles := g.Cycles()
	assert.Len(t, cycles, 1)
}

func TestFromPackageMapUnresolvedDependencyErrors(t *testing.T) {
	a := testPackage("a", "/ws/a")
	ta := &Target{Name: "a", Package: a.Id, Depends: []PublicPrivate[TargetName]{Private(NewTargetName("a", "missing"))}}
	a.Targets = []*Target{ta}

	pm := NewPackageMap([]*Package{a})
	_, err := FromPackageMap(pm)
	assert.Error(t, err)
}

func TestStepTargetEdge(t *testing.T) {
	p := testPackage("p", "/ws/p")
	gen := &Step{Name: "gen", Package: p.Id, Outputs: []string{"/ws/p/generated.h"}}
	foo := &Target{Name: "foo", Package: p.Id, Sources: []string{"/ws/p/generated.h", "/ws/p/foo.c"}}
	p.Steps = []*Step{gen}
	p.Targets = []*Target{foo}

	pm := NewPackageMap([]*Package{p})
	um, err := FromPackageMap(pm)
	require.NoError(t, err)

	g := um.BuildGraph([]*Target{foo})
	stages := g.ParallelStages()
	stageOf := map[Unit]int{}
	for i, stage := range stages {
		for _, u := range stage {
			stageOf[u] = i
		}
	}
	assert.Less(t, stageOf[FromStep(gen)], stageOf[FromTarget(foo)])
}
