package unit

// Dependency names another package this package depends on, as declared
// in the manifest (name + the SourceId it resolved to — location
// resolution itself is out of the core's scope).
type Dependency struct {
	Name     string
	SourceId SourceId
}

// Package owns its identity, targets, steps, declared dependencies, and
// any non-fatal warnings accumulated while its manifest was loaded.
// Package is always handled by pointer (*Package); identity-based
// equality, like Target and Step.
type Package struct {
	Id           PackageId
	Targets      []*Target
	Steps        []*Step
	Dependencies []Dependency
	Warnings     []string

	// Package-level include/define: parsed from the manifest but, per
	// the original's actual (if surprising) behavior, never applied to
	// targets. Kept here only so a manifest parser has somewhere to put
	// them; the unit model never reads these fields. See SPEC_FULL.md §5.
	Includes []string
	Defines  []Define
}

func (p *Package) Name() string { return p.Id.Name() }
func (p *Package) Root() string { return p.Id.Root() }

// TargetByName finds a target by its bare (un-namespaced) name within this package.
func (p *Package) TargetByName(name string) (*Target, bool) {
	for _, t := range p.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// StepByName finds a step by its bare name within this package.
func (p *Package) StepByName(name string) (*Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// PackageMap indexes a workspace's packages by id and disambiguates
// same-named dependencies across subgraphs.
type PackageMap struct {
	byId    map[PackageId]*Package
	byName  map[string][]*Package
	ordered []*Package
}

// NewPackageMap builds an index over packages.
func NewPackageMap(packages []*Package) *PackageMap {
	m := &PackageMap{
		byId:   map[PackageId]*Package{},
		byName: map[string][]*Package{},
	}
	for _, p := range packages {
		m.byId[p.Id] = p
		m.byName[p.Name()] = append(m.byName[p.Name()], p)
		m.ordered = append(m.ordered, p)
	}
	return m
}

func (m *PackageMap) Len() int { return len(m.ordered) }

// Get resolves a package by its interned id.
func (m *PackageMap) Get(id PackageId) (*Package, bool) {
	p, ok := m.byId[id]
	return p, ok
}

// Iter returns every package in insertion order.
func (m *PackageMap) Iter() []*Package { return m.ordered }

// Named resolves a dependency's name against the SourceId a calling
// package's Dependency entry points at, disambiguating same-named
// packages sourced from different locations.
func (m *PackageMap) Named(name string, src SourceId) (*Package, bool) {
	for _, p := range m.byName[name] {
		if p.Id.Source() == src {
			return p, true
		}
	}
	return nil, false
}

// MaybeNamed resolves a dependency's name only if exactly one package
// with that name exists across the whole map.
func (m *PackageMap) MaybeNamed(name string) (*Package, bool) {
	candidates := m.byName[name]
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return nil, false
}
