// Package depinfo implements the dependency-info codec: reading
// compiler-emitted header dependency files (GNU .d and MSVC
// -showIncludes listings) and serializing the unified internal dep-info
// blob consumed by the fingerprint engine's CheckDepInfo rule.
package depinfo

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"ccargo/internal/ccpath"
)

// WindowsHeader marks a CCargo-synthesized Windows header listing file.
const WindowsHeader = "@DEPS@"

// PathKind distinguishes how a pooled path is anchored, so the
// fingerprint engine can re-resolve it against either the package root
// or the target (build output) root.
type PathKind uint8

const (
	PackageRootRelative PathKind = iota
	TargetRootRelative
)

// Object maps one compiled source file to the set of header paths (by
// index into the DepInfo path pool) it transitively includes.
type Object struct {
	FileIdx   int
	InputIdxs []int
}

// pooledPath is one entry of the internal dep-info's path pool.
type pooledPath struct {
	Kind PathKind
	Path string
}

// DepInfo is the internal, compact, binary-serializable dependency
// index: a pool of (kind, path) pairs plus, per compiled object, the set
// of pool indices naming its header inputs.
type DepInfo struct {
	pool    []pooledPath
	byPath  map[string]int
	Objects []Object
}

// New returns an empty DepInfo ready for incremental construction via Intern/AddObject.
func New() *DepInfo {
	return &DepInfo{byPath: map[string]int{}}
}

// Intern registers path (if not already present) and returns its pool index.
func (d *DepInfo) Intern(kind PathKind, path string) int {
	key := string(rune(kind)) + "\x00" + path
	if idx, ok := d.byPath[key]; ok {
		return idx
	}
	idx := len(d.pool)
	d.pool = append(d.pool, pooledPath{Kind: kind, Path: path})
	d.byPath[key] = idx
	return idx
}

// AddObject records a compiled file's transitive header set.
func (d *DepInfo) AddObject(fileIdx int, inputIdxs []int) {
	d.Objects = append(d.Objects, Object{FileIdx: fileIdx, InputIdxs: inputIdxs})
}

// Path returns the pooled path at idx.
func (d *DepInfo) Path(idx int) (PathKind, string) {
	p := d.pool[idx]
	return p.Kind, p.Path
}

// PathCount returns the number of pooled paths.
func (d *DepInfo) PathCount() int { return len(d.pool) }

// Serialize writes the internal dep-info wire format: u32 path count,
// then (u8 kind, length-prefixed path) per entry; u32 object count, then
// (u32 file_idx, u32 input count, u32... input_idx) per object. Counts
// are u32 here (not the general u64-length-prefix convention) matching
// the original implementation's dep-info-specific wire format.
func (d *DepInfo) Serialize() []byte {
	w := ccpath.NewBinaryWriter(256)
	w.WriteU32(uint32(len(d.pool)))
	for _, p := range d.pool {
		w.WriteU8(uint8(p.Kind))
		w.WritePath(p.Path)
	}
	w.WriteU32(uint32(len(d.Objects)))
	for _, o := range d.Objects {
		w.WriteU32(uint32(o.FileIdx))
		w.WriteU32(uint32(len(o.InputIdxs)))
		for _, idx := range o.InputIdxs {
			w.WriteU32(uint32(idx))
		}
	}
	return w.Bytes()
}

// Deserialize parses the wire format written by Serialize. Any error
// (truncation, corruption) should be treated by the caller as "no usable
// dep-info" — i.e. force a rebuild, per the fingerprint engine's
// no-forward-compatibility contract.
func Deserialize(b []byte) (*DepInfo, error) {
	r := ccpath.NewBinaryReader(b)
	pathCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading dep-info path count")
	}
	d := New()
	for i := uint32(0); i < pathCount; i++ {
		kind, err := r.ReadU8()
		if err != nil {
			return nil, errors.Wrap(err, "reading dep-info path kind")
		}
		p, err := r.ReadPath()
		if err != nil {
			return nil, errors.Wrap(err, "reading dep-info path")
		}
		d.pool = append(d.pool, pooledPath{Kind: PathKind(kind), Path: p})
	}
	objCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading dep-info object count")
	}
	for i := uint32(0); i < objCount; i++ {
		fileIdx, err := r.ReadU32()
		if err != nil {
			return nil, errors.Wrap(err, "reading dep-info object file index")
		}
		n, err := r.ReadU32()
		if err != nil {
			return nil, errors.Wrap(err, "reading dep-info input count")
		}
		inputs := make([]int, 0, n)
		for j := uint32(0); j < n; j++ {
			idx, err := r.ReadU32()
			if err != nil {
				return nil, errors.Wrap(err, "reading dep-info input index")
			}
			inputs = append(inputs, int(idx))
		}
		d.Objects = append(d.Objects, Object{FileIdx: int(fileIdx), InputIdxs: inputs})
	}
	return d, nil
}

// ParseUnixDepFile parses a GNU-style ".d" file: whitespace-separated
// tokens with trailing "\" line continuations. The first two non-empty
// tokens are the output object path and the primary source path; every
// remaining token is a header dependency path.
func ParseUnixDepFile(data []byte) []string {
	joined := strings.ReplaceAll(string(data), "\\\n", " ")
	fields := strings.Fields(joined)

	var headers []string
	skipped := 0
	for _, tok := range fields {
		tok = strings.Trim(tok, "\\")
		if tok == "" {
			continue
		}
		if skipped < 2 {
			// first token may be "object:" with a trailing colon
			tok = strings.TrimSuffix(tok, ":")
			skipped++
			continue
		}
		headers = append(headers, tok)
	}
	return headers
}

// ParseWindowsDepFile parses a CCargo-synthesized Windows header
// listing: "@DEPS@\n" followed by one absolute path per line.
func ParseWindowsDepFile(data []byte) ([]string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return nil, false
	}
	if strings.TrimRight(scanner.Text(), "\r") != WindowsHeader {
		return nil, false
	}
	var paths []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, true
}

// ReadDependencyFile detects and parses either dep-file format.
func ReadDependencyFile(data []byte) []string {
	if paths, ok := ParseWindowsDepFile(data); ok {
		return paths
	}
	return ParseUnixDepFile(data)
}

// WriteWindowsDepFile synthesizes the header-listing format ccargo
// writes on Windows when harvesting -showIncludes output.
func WriteWindowsDepFile(includes []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(WindowsHeader)
	buf.WriteByte('\n')
	for i, inc := range includes {
		buf.WriteString(inc)
		if i != len(includes)-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}
