package unit

import (
	"hash/fnv"
	"path/filepath"
)

// hasher is the tiny subset of hash/fnv's interface the stable-hash
// writers below need; kept as a concrete type (not an interface) since
// every caller constructs exactly one fnv64a instance per hash.
type hasher struct {
	h uint64
}

func newHasher() *hasher {
	f := fnv.New64a()
	return &hasher{h: f.Sum64()}
}

func (h *hasher) write(b []byte) {
	f := fnv.New64a()
	var buf [8]byte
	putUint64(buf[:], h.h)
	_, _ = f.Write(buf[:])
	_, _ = f.Write(b)
	h.h = f.Sum64()
}

func putUint64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func (h *hasher) writeString(s string) { h.write([]byte(s)) }
func (h *hasher) writeU64(v uint64) {
	var buf [8]byte
	putUint64(buf[:], v)
	h.write(buf[:])
}
func (h *hasher) writeBool(b bool) {
	if b {
		h.write([]byte{1})
	} else {
		h.write([]byte{0})
	}
}
func (h *hasher) writeInt(v int) { h.writeU64(uint64(v)) }

func relOrSelf(path, workspace string) string {
	rel, err := filepath.Rel(workspace, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (h *hasher) writeOptions(o Options) {
	h.writeInt(int(o.Std.C))
	h.writeInt(int(o.Std.Cxx))
	h.writeString(o.Std.CxxStdlib)
	h.writeBool(o.Std.Gnu)
	h.writeInt(int(o.Crt))
	h.writeInt(int(o.Warnings.Level))
	h.writeBool(o.Warnings.Errors)
	for _, e := range o.Warnings.Extra {
		h.writeString(e)
	}
	for _, d := range o.Defines {
		h.writeString(d)
	}
	for _, f := range o.CCFlags {
		h.writeString(f)
	}
	for _, f := range o.LDFlags {
		h.writeString(f)
	}
	for _, f := range o.ARFlags {
		h.writeString(f)
	}
	for _, f := range o.AsmFlags {
		h.writeString(f)
	}
	h.writeBool(o.Unix.Pic)
	h.writeBool(o.Unix.Plt)
	h.writeBool(o.Unix.ForceFramePointer)
}

// StableHash hashes this target's definition relative to workspace, the
// way the original's TargetStableHash does: every absolute path is
// stripped to a workspace-relative one first so the hash is reproducible
// across checkouts/machines. Includes are deliberately omitted, matching
// the original (they don't participate in target_hash there either).
func (t *Target) StableHash(workspace string) uint64 {
	h := newHasher()
	h.writeString(t.Name)
	h.writeInt(int(t.Kind))
	h.writeOptions(t.Options)
	for _, d := range t.Depends {
		h.writeString(d.Value().String())
		h.writeBool(d.IsPublic())
	}
	for _, d := range t.Defines {
		h.writeString(d.Value().Name)
		h.writeString(d.Value().Value)
		h.writeBool(d.Value().HasValue)
		h.writeBool(d.IsPublic())
	}
	h.writeString(t.Rpath)
	h.writeU64(t.Package.StableHash(workspace))
	if t.ExportHeader != "" {
		h.writeString(relOrSelf(t.ExportHeader, workspace))
	}
	for _, s := range t.Sources {
		h.writeString(relOrSelf(s, workspace))
	}
	return h.h
}

// StableHash hashes this profile's configuration. Profiles carry no
// workspace-relative paths so, unlike Target/Step, this needs no
// workspace argument.
func (p Profile) StableHash() uint64 {
	h := newHasher()
	h.writeBool(p.Debug)
	h.writeBool(p.Incremental)
	h.writeBool(p.Exceptions)
	h.writeInt(int(p.OptLevel))
	h.writeInt(int(p.Lto))
	h.writeString(p.DirName)
	h.writeString(p.Rpath)
	return h.h
}

// StableHash hashes this step's definition relative to workspace,
// mirroring the original's StepStableHash.
func (s *Step) StableHash(workspace string) uint64 {
	h := newHasher()
	h.writeString(s.Name)
	for _, d := range s.Depends {
		h.writeString(d.String())
	}
	h.writeU64(s.Package.StableHash(workspace))
	for _, a := range s.Args {
		h.writeString(a)
	}
	for _, in := range s.Inputs {
		h.writeString(relOrSelf(in, workspace))
	}
	for _, out := range s.Outputs {
		h.writeString(relOrSelf(out, workspace))
	}
	switch s.Program.Kind {
	case ProgramTargetRef:
		h.writeString(s.Program.Target.String())
	case ProgramBinary:
		h.writeString(relOrSelf(s.Program.Binary, workspace))
	case ProgramScript:
		h.writeString(relOrSelf(s.Program.Tool, workspace))
		h.writeString(relOrSelf(s.Program.Script, workspace))
	}
	return h.h
}
