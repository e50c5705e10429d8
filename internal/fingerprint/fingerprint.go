// Package fingerprint implements component I: the up-to-date check that
// decides, for every Unit, whether its previous build output can be
// reused or whether it must be recompiled/rerun. A Fingerprint records
// the hashes that drove a prior build (compiler, target/step
// configuration, profile) plus enough filesystem-derived state (dep-info
// derived header lists, rerun-if-changed lists, output mtimes) to answer
// that question without re-running the unit.
package fingerprint

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"ccargo/internal/ccpath"
	"ccargo/internal/depinfo"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

// State accumulates the filesystem-derived update information discovered
// while preparing a Fingerprint: which input files were found to be
// newer than their unit's prior output ("dirty") and whether a full
// relink/rerun is required regardless of individual file staleness.
type State struct {
	Files map[string]bool
	Link  bool
}

func newState() *State { return &State{Files: map[string]bool{}} }

// IsFresh reports whether this State recorded no filesystem changes at
// all (the unit can be skipped entirely, not merely relinked).
func (s *State) IsFresh() bool { return len(s.Files) == 0 && !s.Link }

// fsStatusKind discriminates FsStatus's two states.
type fsStatusKind uint8

const (
	fsStale fsStatusKind = iota
	fsUpToDate
)

// FsStatus records whether a Fingerprint's filesystem inputs were found
// up to date the last time check_filesystem ran, and if so, the mtimes
// of its outputs (so a dependent unit can compare its own output
// against them).
type FsStatus struct {
	kind   fsStatusKind
	mtimes map[string]time.Time
}

func (f FsStatus) upToDate() bool { return f.kind == fsUpToDate }

// DepFingerprint is one dependency edge recorded in a Fingerprint: the
// dependency's package identity, its full name (so a rename is detected
// even if the hash happens to collide), and its own recursively
// computed Fingerprint.
type DepFingerprint struct {
	PkgID       uint64
	Name        string
	Fingerprint *Fingerprint
}

// LocalFingerprintKind discriminates LocalFingerprint's two forms.
type LocalFingerprintKind uint8

const (
	// KindCheckDepInfo: consult an internal dep-info blob (itself derived
	// from the compiler's native .d output) listing every header this
	// unit's sources transitively include.
	KindCheckDepInfo LocalFingerprintKind = iota
	// KindRerunIfChanged: consult an explicit, step-declared list of
	// paths that should trigger a rerun if any is newer than the step's
	// last recorded output.
	KindRerunIfChanged
)

func (k LocalFingerprintKind) String() string {
	if k == KindCheckDepInfo {
		return "dep-info"
	}
	return "rerun-if-changed"
}

// LocalFingerprint is something used to detect direct changes to a
// Fingerprint, independent of its dependency edges.
type LocalFingerprint struct {
	Kind LocalFingerprintKind

	// KindCheckDepInfo fields.
	DepInfo  string // path to the internal dep-info blob, relative to target_root
	CheckAll bool   // Target: true (report every stale header); Step: false (stop at first)

	// KindRerunIfChanged fields.
	Output string   // relative to target_root
	Paths  []string // relative to pkg_root
}

// Fingerprint is a short summary of the state of the world that produced
// a Unit's prior build output: hashes of the compiler, the unit's own
// (stable, workspace-relative) configuration, and the active profile,
// plus recursive dependency fingerprints and local filesystem checks.
type Fingerprint struct {
	CompilerHash uint64
	TargetHash   uint64
	ProfileHash  uint64

	FsStatus FsStatus
	Deps     []DepFingerprint
	Local    []LocalFingerprint
	Outputs  []string

	memoMu  sync.Mutex
	memoHas bool
	memo    uint64
}

// HashU64 returns this Fingerprint's hash, memoizing the result (the
// same Fingerprint may be asked for its hash many times while walking a
// dependent's own fingerprint computation).
func (f *Fingerprint) HashU64() uint64 {
	f.memoMu.Lock()
	defer f.memoMu.Unlock()
	if f.memoHas {
		return f.memo
	}
	f.memo = f.computeHash()
	f.memoHas = true
	return f.memo
}

// computeHash mirrors the original's manual Hash impl for Fingerprint:
// compiler/target/profile hashes and Local entries, then every
// dependency's (pkg id, name, recursive hash) — fs_status and Outputs
// are deliberately excluded, exactly as upstream.
func (f *Fingerprint) computeHash() uint64 {
	h := newHasher()
	h.writeU64(f.CompilerHash)
	h.writeU64(f.TargetHash)
	h.writeU64(f.ProfileHash)
	for _, l := range f.Local {
		h.writeLocal(l)
	}
	h.writeU64(uint64(len(f.Deps)))
	for _, dep := range f.Deps {
		h.writeU64(dep.PkgID)
		h.writeString(dep.Name)
		h.writeU64(dep.Fingerprint.HashU64())
	}
	return h.h
}

// Deps describes a Target's resolved dependency library outputs, as
// far as the fingerprint engine needs to see them.
type Deps struct {
	// Libs is the set of dependency unit output paths a Target links against.
	Libs []string
}

// TargetIO is the resolved output path and side-artifact list for one
// Target, precomputed once per build by the executor (component J).
type TargetIO struct {
	Output    string
	Artifacts []toolchain.Artifact
}

// Resolver is the narrow slice of the executor's (component J's)
// context a Fingerprint calculation needs: looking up a path's producing
// unit, and a Target's precomputed dependency library list / output
// description. Kept as an explicit interface rather than a concrete
// Context type so this package has no dependency on the executor
// package.
type Resolver interface {
	// UnitWithOutput resolves a path to the unit (Target or Step) that
	// produces it, if any.
	UnitWithOutput(path string) (unit.Unit, bool)
	// UnitNamed resolves a dependency/step reference to its unit.
	UnitNamed(name unit.TargetName, pkg unit.PackageId) (unit.Unit, bool)
	// TargetDeps returns the resolved library dependency paths for a Target.
	TargetDeps(t *unit.Target) Deps
	// TargetOutput returns the resolved output path/artifacts for a Target.
	TargetOutput(t *unit.Target) TargetIO
}

// Calculator computes and caches Fingerprints for a build, one per Unit,
// memoizing recursive dependency computation (cx.fingerprints in the
// original).
type Calculator struct {
	Layout    unit.Layout
	Toolchain *toolchain.Toolchain
	Profile   unit.Profile
	Resolver  Resolver

	mu    sync.Mutex
	cache map[unit.Unit]*Fingerprint
}

// NewCalculator constructs a Calculator ready to compute Fingerprints
// for the given build configuration.
func NewCalculator(layout unit.Layout, tc *toolchain.Toolchain, profile unit.Profile, resolver Resolver) *Calculator {
	return &Calculator{
		Layout:    layout,
		Toolchain: tc,
		Profile:   profile,
		Resolver:  resolver,
		cache:     map[unit.Unit]*Fingerprint{},
	}
}

// Prepare computes u's Fingerprint and compares it against whatever was
// last persisted at fingerprintPath. fresh reports whether the
// comparison succeeded (the unit can be skipped entirely); state
// accumulates whatever individual files check_filesystem found to be
// stale along the way, for a dirty unit's caller to use for partial
// invalidation — a unit can come back dirty (fresh==false) yet still
// report an empty/no-op state, when the only reason it's dirty is that
// no fingerprint was persisted yet to compare against (first build), or
// persisted configuration (compiler/profile/target) differs with no
// filesystem change at all.
//
// The original folds this into a single return value plus a printed
// "fresh"/"dirty" message; splitting the explicit boolean out here
// avoids callers having to infer the freshness verdict from whether
// State happens to look empty.
func (c *Calculator) Prepare(u unit.Unit, fingerprintPath string) (fp *Fingerprint, fresh bool, state *State, err error) {
	state = newState()
	fp, err = c.calculate(u, state)
	if err != nil {
		return nil, false, nil, err
	}

	if err := compareOldFingerprint(fp, fingerprintPath); err == nil {
		return fp, true, newState(), nil
	}

	if ccpath.Exists(fingerprintPath) {
		if err := ccpath.Write(fingerprintPath, nil); err != nil {
			return nil, false, nil, err
		}
	}
	return fp, false, state, nil
}

// WriteToDisk persists fp's hash (as hex text, for compareOldFingerprint
// to compare cheaply) and its full binary serialization (for a later
// diagnostic compare) to fingerprintPath and fingerprintPath+".bin".
func WriteToDisk(fp *Fingerprint, fingerprintPath string) error {
	if err := ccpath.Write(fingerprintPath, []byte(toHex(fp.HashU64()))); err != nil {
		return err
	}
	return ccpath.Write(fingerprintPath+".bin", fp.serialize())
}

func (c *Calculator) calculate(u unit.Unit, state *State) (*Fingerprint, error) {
	c.mu.Lock()
	if fp, ok := c.cache[u]; ok {
		c.mu.Unlock()
		return fp, nil
	}
	c.mu.Unlock()

	targetRoot := c.Layout.Target()
	pkgRoot := u.Package().Root()

	var (
		sources []string
		fp      *Fingerprint
		err     error
	)
	if t, ok := u.AsTarget(); ok {
		sources, fp, err = c.calculateTarget(t, pkgRoot, targetRoot, state)
	} else {
		s, _ := u.AsStep()
		sources, fp, err = c.calculateStep(s, pkgRoot, targetRoot, state)
	}
	if err != nil {
		return nil, err
	}

	if err := fp.checkFilesystem(pkgRoot, targetRoot, sources, state); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[u] = fp
	c.mu.Unlock()
	return fp, nil
}

func (c *Calculator) calculateTarget(target *unit.Target, pkgRoot, targetRoot string, state *State) ([]string, *Fingerprint, error) {
	var deps []DepFingerprint
	td := c.Resolver.TargetDeps(target)
	for _, depPath := range td.Libs {
		depUnit, ok := c.Resolver.UnitWithOutput(depPath)
		if !ok {
			continue
		}
		dep, err := c.newDepFingerprint(depUnit, state)
		if err != nil {
			return nil, nil, err
		}
		deps = append(deps, dep)
	}
	sortDeps(deps)

	depInfoPath := target.DepInfoPath(c.Layout)
	depInfoRel := relTo(depInfoPath, targetRoot)
	local := []LocalFingerprint{{Kind: KindCheckDepInfo, DepInfo: depInfoRel, CheckAll: true}}

	io := c.Resolver.TargetOutput(target)
	outputs := []string{io.Output}
	for _, a := range io.Artifacts {
		if !a.IsAuxiliary() {
			outputs = append(outputs, withExt(io.Output, a.Ext()))
		}
	}

	fp := &Fingerprint{
		Deps:         deps,
		Local:        local,
		Outputs:      outputs,
		FsStatus:     FsStatus{kind: fsStale},
		CompilerHash: c.Toolchain.StableHash(),
		TargetHash:   target.StableHash(pkgRoot),
		ProfileHash:  c.Profile.StableHash(),
	}
	return target.Sources, fp, nil
}

func (c *Calculator) calculateStep(step *unit.Step, pkgRoot, targetRoot string, state *State) ([]string, *Fingerprint, error) {
	var deps []DepFingerprint
	for _, input := range step.Inputs {
		depUnit, ok := c.Resolver.UnitWithOutput(input)
		if !ok {
			continue
		}
		dep, err := c.newDepFingerprint(depUnit, state)
		if err != nil {
			return nil, nil, err
		}
		deps = append(deps, dep)
	}
	for _, depName := range step.Depends {
		depUnit, ok := c.Resolver.UnitNamed(depName, step.Package)
		if !ok {
			continue
		}
		dep, err := c.newDepFingerprint(depUnit, state)
		if err != nil {
			return nil, nil, err
		}
		deps = append(deps, dep)
	}
	sortDeps(deps)

	depInfoPath := step.DepInfoPath(c.Layout)
	depInfoRel := relTo(depInfoPath, targetRoot)
	local := []LocalFingerprint{{Kind: KindCheckDepInfo, DepInfo: depInfoRel, CheckAll: false}}

	fp := &Fingerprint{
		Deps:        deps,
		Local:       local,
		Outputs:     append([]string(nil), step.Outputs...),
		FsStatus:    FsStatus{kind: fsStale},
		TargetHash:  step.StableHash(pkgRoot),
		ProfileHash: c.Profile.StableHash(),
	}
	return step.Inputs, fp, nil
}

func (c *Calculator) newDepFingerprint(u unit.Unit, state *State) (DepFingerprint, error) {
	fp, err := c.calculate(u, state)
	if err != nil {
		return DepFingerprint{}, err
	}
	pkgID := hashString(u.Package().Name())
	return DepFingerprint{PkgID: pkgID, Fingerprint: fp, Name: u.FullName().String()}, nil
}

// AddRerunIfChanged replaces (or adds) this Fingerprint's
// rerun-if-changed local entry, for a Step that has just finished
// running and reported its own rerun-if-changed paths.
func (f *Fingerprint) AddRerunIfChanged(output string, paths []string) {
	for i, l := range f.Local {
		if l.Kind == KindRerunIfChanged {
			f.Local[i] = LocalFingerprint{Kind: KindRerunIfChanged, Output: output, Paths: paths}
			return
		}
	}
	f.Local = append(f.Local, LocalFingerprint{Kind: KindRerunIfChanged, Output: output, Paths: paths})
}

// checkFilesystem dynamically inspects the local filesystem to decide
// whether f's outputs are up to date, populating f.FsStatus and state.
func (f *Fingerprint) checkFilesystem(pkgRoot, targetRoot string, sources []string, state *State) error {
	allDirty := func() error {
		for _, s := range sources {
			state.Files[s] = true
		}
		state.Link = true
		return nil
	}

	mtimes := map[string]time.Time{}
	for _, output := range f.Outputs {
		mtime, err := ccpath.Mtime(output)
		if err != nil {
			return allDirty()
		}
		mtimes[output] = mtime
	}

	maxMtime, ok := maxTime(mtimes)
	if !ok {
		f.FsStatus = FsStatus{kind: fsUpToDate, mtimes: mtimes}
		return nil
	}

	for _, dep := range f.Deps {
		if !dep.Fingerprint.FsStatus.upToDate() {
			state.Link = true
			break
		}
		depMax, ok := maxTime(dep.Fingerprint.FsStatus.mtimes)
		if !ok {
			continue
		}
		if !depMax.Before(maxMtime) {
			state.Link = true
			break
		}
	}

	for _, local := range f.Local {
		item, err := local.findStaleItem(pkgRoot, targetRoot, state.Files)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		if _, missing := item.(staleMissingFile); missing {
			return allDirty()
		}
		state.Link = true
		return nil
	}

	if !state.Link {
		f.FsStatus = FsStatus{kind: fsUpToDate, mtimes: mtimes}
	}
	return nil
}

func maxTime(mtimes map[string]time.Time) (time.Time, bool) {
	var max time.Time
	found := false
	for _, t := range mtimes {
		if !found || t.After(max) {
			max = t
			found = true
		}
	}
	return max, found
}

// compare produces a diagnostic error explaining why self differs from
// old; it never returns nil.
func (f *Fingerprint) compare(old *Fingerprint) error {
	if f.CompilerHash != old.CompilerHash {
		return errors.New("compiler has changed")
	}
	if f.TargetHash != old.TargetHash {
		return errors.New("target configuration has changed")
	}
	if f.ProfileHash != old.ProfileHash {
		return errors.New("profile configuration has changed")
	}
	if len(f.Local) != len(old.Local) {
		return errors.New("local lens changed")
	}
	if len(f.Deps) != len(old.Deps) {
		return errors.New("number of dependencies has changed")
	}
	for i, newLocal := range f.Local {
		oldLocal := old.Local[i]
		if newLocal.Kind != oldLocal.Kind {
			return errors.Errorf("local fingerprint type has changed (%s => %s)", oldLocal.Kind, newLocal.Kind)
		}
		switch newLocal.Kind {
		case KindCheckDepInfo:
			if newLocal.DepInfo != oldLocal.DepInfo {
				return errors.Errorf("dep info output changed: previously %q, now %q", oldLocal.DepInfo, newLocal.DepInfo)
			}
		case KindRerunIfChanged:
			if newLocal.Output != oldLocal.Output {
				return errors.Errorf("rerun-if-changed output changed: previously %q, now %q", oldLocal.Output, newLocal.Output)
			}
			if !stringsEqual(newLocal.Paths, oldLocal.Paths) {
				return errors.Errorf("rerun-if-changed output changed: previously %v, now %v", oldLocal.Paths, newLocal.Paths)
			}
		}
	}

	for i, a := range f.Deps {
		b := old.Deps[i]
		if a.Name != b.Name {
			return errors.Errorf("unit dependency name changed: %q != %q", a.Name, b.Name)
		}
		if a.Fingerprint.HashU64() != b.Fingerprint.HashU64() {
			return errors.Errorf("unit dependency information changed: new (%s/%x) != old (%s/%x)",
				a.Name, a.Fingerprint.HashU64(), b.Name, b.Fingerprint.HashU64())
		}
	}

	if !f.FsStatus.upToDate() {
		return errors.New("current filesystem status shows we're outdated")
	}

	return errors.New("two fingerprint comparison turned up nothing obvious")
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// compareOldFingerprint loads the fingerprint previously persisted at
// fingerprintPath and compares it against fp; it only ever returns nil
// (meaning fp is still fresh) or a diagnostic error (meaning stale).
func compareOldFingerprint(fp *Fingerprint, fingerprintPath string) error {
	oldHash, err := ccpath.ReadString(fingerprintPath)
	if err != nil {
		return err
	}
	newHash := toHex(fp.HashU64())
	if oldHash == newHash && fp.FsStatus.upToDate() {
		return nil
	}

	oldBytes, err := ccpath.ReadBytes(fingerprintPath + ".bin")
	if err != nil {
		return err
	}
	old, ok := deserializeFingerprint(ccpath.NewBinaryReader(oldBytes))
	if !ok {
		return errors.New("failed to parse fingerprint")
	}
	return fp.compare(old)
}

// staleItem is the diagnostic result of finding one or more stale
// filesystem inputs. It is returned only to decide stale-vs-missing
// routing in checkFilesystem/findStaleItem; logging it (staleItem.log in
// the original) is not wired up anywhere in ccargo's CLI yet, matching
// upstream's own `if false` guard around the only call site.
type staleItem interface {
	log()
}

type staleList []staleItem

func (s staleList) log() {
	for _, item := range s {
		item.log()
	}
}

type staleMissingFile string

func (s staleMissingFile) log() { logPrintf("stale: missing %s", string(s)) }

type staleChangedFile struct {
	reference, stale             string
	referenceMtime, staleMtime time.Time
}

func (s staleChangedFile) log() {
	logPrintf("stale: changed %s", s.stale)
	logPrintf("          (vs) %s", s.reference)
	logPrintf("               %s < %s", s.referenceMtime, s.staleMtime)
}

// findStaleItem checks dynamically at runtime whether l has a stale
// item, recording every source path it determines to be updated into
// updated.
func (l LocalFingerprint) findStaleItem(pkgRoot, targetRoot string, updated map[string]bool) (staleItem, error) {
	switch l.Kind {
	case KindRerunIfChanged:
		reference := join(targetRoot, l.Output)
		var paths []string
		for _, p := range l.Paths {
			paths = append(paths, join(pkgRoot, p))
		}
		return findStaleFile(reference, paths), nil

	default: // KindCheckDepInfo
		depInfoPath := join(targetRoot, l.DepInfo)

		data, err := ccpath.ReadBytes(depInfoPath)
		if err != nil {
			return staleMissingFile(depInfoPath), nil
		}
		info, err := depinfo.Deserialize(data)
		if err != nil {
			return staleMissingFile(depInfoPath), nil
		}

		paths := make([]string, info.PathCount())
		for i := 0; i < info.PathCount(); i++ {
			kind, p := info.Path(i)
			if isAbs(p) {
				paths[i] = p
			} else if kind == depinfo.PackageRootRelative {
				paths[i] = join(pkgRoot, p)
			} else {
				paths[i] = join(targetRoot, p)
			}
		}

		depInfoMtime, err := ccpath.Mtime(depInfoPath)
		if err != nil {
			return staleMissingFile(depInfoPath), nil
		}

		var items staleList
		for _, path := range paths {
			if item := staleItemFor(depInfoPath, depInfoMtime, path); item != nil {
				updated[path] = true
				if !l.CheckAll {
					return item, nil
				}
				items = append(items, item)
			}
		}

		for _, obj := range info.Objects {
			src := paths[obj.FileIdx]
			for _, inputIdx := range obj.InputIdxs {
				input := paths[inputIdx]
				if item := staleItemFor(depInfoPath, depInfoMtime, input); item != nil {
					updated[src] = true
					if !l.CheckAll {
						return item, nil
					}
					items = append(items, item)
					break
				}
			}
		}

		switch len(items) {
		case 0:
			return nil, nil
		case 1:
			return items[0], nil
		default:
			return items, nil
		}
	}
}

// findStaleFile reports the first path (if any) that is at least as new
// as reference.
func findStaleFile(reference string, paths []string) staleItem {
	referenceMtime, err := ccpath.Mtime(reference)
	if err != nil {
		return staleMissingFile(reference)
	}
	for _, p := range paths {
		if item := staleItemFor(reference, referenceMtime, p); item != nil {
			return item
		}
	}
	return nil
}

func staleItemFor(reference string, referenceMtime time.Time, path string) staleItem {
	pathMtime, err := ccpath.Mtime(path)
	if err != nil {
		return staleMissingFile(path)
	}
	if !pathMtime.Before(referenceMtime) {
		return staleChangedFile{
			reference:      reference,
			referenceMtime: referenceMtime,
			stale:          path,
			staleMtime:     pathMtime,
		}
	}
	return nil
}
