package unit

import "ccargo/internal/graph"

// BuildGraph constructs the unit dependency graph for a selected set of
// root targets, per spec.md §4.G:
//
//  1. add every selected target's transitive dependency closure, walking
//     ForEachDep;
//  2. for every Target in the unit map, for each source path that
//     matches a Step's output, add an edge Target -> Step;
//  3. for every Step, if its Program is a target reference add an edge
//     Step -> Target; for each input matching another Step's output add
//     an edge Step -> Step.
//
// The resulting graph need not be acyclic — Graph.Cycles() detects
// cycles and the caller decides policy (report-and-fail for a normal
// build, per spec.md §4.G).
func (m *UnitMap) BuildGraph(selected []*Target) *UnitGraph {
	g := NewUnitGraph()

	visited := map[Unit]bool{}
	var walk func(u Unit)
	walk = func(u Unit) {
		if visited[u] {
			return
		}
		visited[u] = true
		g.Add(u)
		pkg := u.Package()
		u.ForEachDep(func(name TargetName) {
			dep, ok := m.Get(name, pkg)
			if !ok {
				dep, ok = m.Named(name)
				if !ok {
					return
				}
			}
			g.Link(u, dep)
			walk(dep)
		})
	}
	for _, t := range selected {
		walk(FromTarget(t))
	}

	// Step 2/3: data-flow edges, considered across the *whole* unit set
	// (not just the reachable closure) — a target's source might be
	// produced by a step that nothing else reaches yet, and vice versa.
	for u := range m.units {
		if t, ok := u.AsTarget(); ok {
			for _, src := range t.Sources {
				if s, ok := m.StepWithOutput(src); ok {
					g.Link(u, FromStep(s))
				}
			}
		}
	}
	for u := range m.units {
		s, ok := u.AsStep()
		if !ok {
			continue
		}
		if name, ok := s.Target(); ok {
			if dep, ok := m.Get(name, s.Package); ok {
				g.Link(u, dep)
			} else if dep, ok := m.Named(name); ok {
				g.Link(u, dep)
			}
		}
		for _, in := range s.Inputs {
			if depStep, ok := m.StepWithOutput(in); ok && depStep != s {
				g.Link(u, FromStep(depStep))
			}
		}
	}

	return g
}

// NewUnitGraph constructs an empty unit graph; exported so the executor
// can build a graph out-of-band for tests without a full UnitMap.
func NewUnitGraph() *UnitGraph {
	return graph.New[Unit, struct{}]()
}
