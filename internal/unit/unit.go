package unit

import (
	"github.com/pkg/errors"

	"ccargo/internal/graph"
)

// UnitKind discriminates the Unit tagged union.
type UnitKind int

const (
	UnitTarget UnitKind = iota
	UnitStep
)

// Unit is the tagged union {Target, Step}; the atomic scheduling entity.
// Unit is a plain comparable struct (not an interface) so it can be used
// directly as a graph node key and a map key.
type Unit struct {
	kind   UnitKind
	target *Target
	step   *Step
}

// FromTarget wraps a Target as a Unit.
func FromTarget(t *Target) Unit { return Unit{kind: UnitTarget, target: t} }

// FromStep wraps a Step as a Unit.
func FromStep(s *Step) Unit { return Unit{kind: UnitStep, step: s} }

func (u Unit) IsTarget() bool { return u.kind == UnitTarget }
func (u Unit) IsStep() bool   { return u.kind == UnitStep }

// AsTarget returns the wrapped Target, if this unit is one.
func (u Unit) AsTarget() (*Target, bool) {
	if u.kind == UnitTarget {
		return u.target, true
	}
	return nil, false
}

// AsStep returns the wrapped Step, if this unit is one.
func (u Unit) AsStep() (*Step, bool) {
	if u.kind == UnitStep {
		return u.step, true
	}
	return nil, false
}

// Package returns the owning package id.
func (u Unit) Package() PackageId {
	if t, ok := u.AsTarget(); ok {
		return t.Package
	}
	s, _ := u.AsStep()
	return s.Package
}

// FullName returns the unit's namespaced TargetName.
func (u Unit) FullName() TargetName {
	if t, ok := u.AsTarget(); ok {
		return t.FullName()
	}
	s, _ := u.AsStep()
	return s.FullName()
}

// FingerprintPath returns the unit's persisted fingerprint hash path.
func (u Unit) FingerprintPath(layout Layout) string {
	if t, ok := u.AsTarget(); ok {
		return t.FingerprintPath(layout)
	}
	s, _ := u.AsStep()
	return s.FingerprintPath(layout)
}

// ForEachDep invokes fn for every TargetName this unit directly depends
// on: a Target's declared Depends (only the names; visibility is
// consulted by the fingerprint/build-deps pipeline, not graph
// construction itself), or a Step's declared Depends plus, if its
// Program is a target reference, that target too.
func (u Unit) ForEachDep(fn func(TargetName)) {
	if t, ok := u.AsTarget(); ok {
		for _, d := range t.Depends {
			fn(d.Value())
		}
		return
	}
	s, _ := u.AsStep()
	for _, d := range s.Depends {
		fn(d)
	}
	if name, ok := s.Target(); ok {
		fn(name)
	}
}

// UnitGraph is the unit dependency graph: an edge a->b means a depends
// on (must be built after) b.
type UnitGraph = graph.Graph[Unit, struct{}]

// UnitMap holds the three indices described in spec.md §3: by
// (TargetName, calling-package context), by target output path, and by
// step output path.
type UnitMap struct {
	units map[Unit]struct{}
	// byName[name][pkgId] resolves a dependency reference made from
	// within package pkgId.
	byName map[TargetName]map[PackageId]Unit
	// outputToTarget resolves a source path that is actually another
	// target's output (e.g. a generated source copied out by a prior
	// target) back to the producing unit.
	outputToTarget map[string]Unit
	// outputToStep resolves a path to the step that produces it.
	outputToStep map[string]*Step
}

func (m *UnitMap) Len() int { return len(m.units) }

// Units returns every unit in the map (unordered).
func (m *UnitMap) Units() []Unit {
	out := make([]Unit, 0, len(m.units))
	for u := range m.units {
		out = append(out, u)
	}
	return out
}

// Get resolves name as seen from the perspective of a unit belonging to
// pkg (e.g. a Target's `depends` entry), first checking pkg's own
// package, matching the original's `unit_map.get(name, src)` contract.
func (m *UnitMap) Get(name TargetName, pkg PackageId) (Unit, bool) {
	byPkg, ok := m.byName[name]
	if !ok {
		return Unit{}, false
	}
	if u, ok := byPkg[pkg]; ok {
		return u, true
	}
	// Fall back to resolving unambiguously across all packages if the
	// name isn't registered under the caller's own package (e.g. the
	// referenced target lives in a different package than its own name
	// would suggest, as with cross-package TargetName lookups that are
	// already fully namespaced).
	for _, u := range byPkg {
		if u.FullName() == name {
			return u, true
		}
	}
	return Unit{}, false
}

// Named resolves a TargetName unambiguously across the whole map, if
// exactly one package registers it (used when a reference does not
// carry its own calling-package context).
func (m *UnitMap) Named(name TargetName) (Unit, bool) {
	byPkg, ok := m.byName[name]
	if !ok || len(byPkg) != 1 {
		return Unit{}, false
	}
	for _, u := range byPkg {
		return u, true
	}
	return Unit{}, false
}

// WithOutput resolves a source path to the target that produces it, if any.
func (m *UnitMap) WithOutput(path string) (Unit, bool) {
	u, ok := m.outputToTarget[path]
	return u, ok
}

// StepWithOutput resolves a path to the step that produces it, if any.
func (m *UnitMap) StepWithOutput(path string) (*Step, bool) {
	s, ok := m.outputToStep[path]
	return s, ok
}

// FromPackageMap builds the UnitMap's indices from every package's
// targets and steps, resolving each declared dependency name against
// the owning package's Dependencies list and then the referenced
// package's own targets/steps.
func FromPackageMap(packages *PackageMap) (*UnitMap, error) {
	m := &UnitMap{
		units:          map[Unit]struct{}{},
		byName:         map[TargetName]map[PackageId]Unit{},
		outputToTarget: map[string]Unit{},
		outputToStep:   map[string]*Step{},
	}

	register := func(u Unit, pkg PackageId) {
		m.units[u] = struct{}{}
		name := u.FullName()
		if m.byName[name] == nil {
			m.byName[name] = map[PackageId]Unit{}
		}
		m.byName[name][pkg] = u
	}

	for _, p := range packages.Iter() {
		for _, t := range p.Targets {
			register(FromTarget(t), p.Id)
		}
		for _, s := range p.Steps {
			u := FromStep(s)
			register(u, p.Id)
			for _, out := range s.Outputs {
				m.outputToStep[out] = s
			}
		}
	}

	// Validate that every declared dependency resolves, matching the
	// original's "Cannot find dependency `{name}`" failure.
	for _, p := range packages.Iter() {
		resolve := func(name TargetName) error {
			// Same-package reference.
			if name.Package == p.Name() {
				if _, ok := m.Get(name, p.Id); ok {
					return nil
				}
			}
			// Cross-package reference: must be a declared dependency.
			for _, dep := range p.Dependencies {
				if dep.Name != name.Package {
					continue
				}
				depPkg, ok := packages.Named(dep.Name, dep.SourceId)
				if !ok {
					continue
				}
				if _, ok := m.Get(name, depPkg.Id); ok {
					return nil
				}
			}
			if _, ok := m.Named(name); ok {
				return nil
			}
			return errors.Errorf("cannot find dependency `%s` (referenced from package `%s`)", name, p.Name())
		}

		for _, t := range p.Targets {
			for _, d := range t.Depends {
				if err := resolve(d.Value()); err != nil {
					return nil, err
				}
			}
		}
		for _, s := range p.Steps {
			for _, d := range s.Depends {
				if err := resolve(d); err != nil {
					return nil, err
				}
			}
			if name, ok := s.Target(); ok {
				if err := resolve(name); err != nil {
					return nil, err
				}
			}
		}
	}

	return m, nil
}
