// Package unit implements the data model shared by every build-engine
// component: interned PackageId/SourceId, Package/Target/Step records,
// PublicPrivate visibility tagging, the Layout on disk, and the Unit
// graph itself (component G of the build engine).
package unit

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver"
)

// sourceIdData is the interned payload behind a SourceId.
type sourceIdData struct {
	path string // absolute package root
}

// SourceId identifies where a package's manifest was loaded from.
// Currently only local filesystem paths are supported ("path" sources);
// remote source kinds are out of the core's scope (manifest/location
// resolution is an explicit Non-goal).
//
// SourceId is a pointer to a process-global interned value: two SourceIds
// for the same path compare equal with plain `==`, matching the
// original's process-global interning design (spec.md §9 design note,
// option (a): global interner guarded by a mutex, stable handles).
type SourceId struct {
	data *sourceIdData
}

var (
	sourceInterner   = map[string]*sourceIdData{}
	sourceInternerMu sync.Mutex
)

// NewSourceId interns (or returns the existing interned handle for) an
// absolute package-root path.
func NewSourceId(path string) SourceId {
	abs := filepath.Clean(path)
	sourceInternerMu.Lock()
	defer sourceInternerMu.Unlock()
	if d, ok := sourceInterner[abs]; ok {
		return SourceId{data: d}
	}
	d := &sourceIdData{path: abs}
	sourceInterner[abs] = d
	return SourceId{data: d}
}

// Path returns the package root this source refers to.
func (s SourceId) Path() string { return s.data.path }

// IsZero reports whether this SourceId was never initialized via NewSourceId.
func (s SourceId) IsZero() bool { return s.data == nil }

// StableHash returns a hash of the source's path relative to workspace,
// so absolute paths (which vary per-machine/per-checkout) do not poison
// fingerprints computed from it.
func (s SourceId) StableHash(workspace string) uint64 {
	rel, err := filepath.Rel(workspace, s.data.path)
	if err != nil {
		rel = s.data.path
	}
	return hashString(filepath.ToSlash(rel))
}

// packageIdData is the interned payload behind a PackageId.
type packageIdData struct {
	name    string
	version *semver.Version
	source  SourceId
}

// PackageId is (name, version, SourceId), interned so equality and
// hashing are cheap pointer operations.
type PackageId struct {
	data *packageIdData
}

var (
	packageInterner   = map[string]*packageIdData{}
	packageInternerMu sync.Mutex
)

// NewPackageId interns (or returns the existing handle for) a package
// identity. version may be nil (unversioned local packages).
func NewPackageId(name string, version *semver.Version, source SourceId) PackageId {
	key := name + "@"
	if version != nil {
		key += version.String()
	}
	key += "#" + source.Path()

	packageInternerMu.Lock()
	defer packageInternerMu.Unlock()
	if d, ok := packageInterner[key]; ok {
		return PackageId{data: d}
	}
	d := &packageIdData{name: name, version: version, source: source}
	packageInterner[key] = d
	return PackageId{data: d}
}

func (p PackageId) Name() string           { return p.data.name }
func (p PackageId) Version() *semver.Version { return p.data.version }
func (p PackageId) Source() SourceId       { return p.data.source }
func (p PackageId) IsZero() bool           { return p.data == nil }

// Root is the package's root directory on disk (convenience alias of Source().Path()).
func (p PackageId) Root() string { return p.data.source.Path() }

// UniqueName formats "<name>-<16-hex stable hash of (name, version)>",
// used to namespace a package's slice of the target/ layout.
func (p PackageId) UniqueName() string {
	v := ""
	if p.data.version != nil {
		v = p.data.version.String()
	}
	h := hashString(p.data.name + "@" + v)
	return fmt.Sprintf("%s-%016x", p.data.name, h)
}

// StableHash hashes (name, version, source-stable-hash) relative to workspace.
func (p PackageId) StableHash(workspace string) uint64 {
	v := ""
	if p.data.version != nil {
		v = p.data.version.String()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(p.data.name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(v))
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p.data.source.StableHash(workspace))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// ParseVersion is a small convenience wrapper so callers outside this
// package don't need to import Masterminds/semver directly just to build
// a PackageId.
func ParseVersion(s string) (*semver.Version, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return semver.NewVersion(s)
}
