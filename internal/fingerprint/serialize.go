package fingerprint

import "ccargo/internal/ccpath"

// serialize returns f's binary form for persisting to fingerprintPath's
// ".bin" sidecar file.
func (f *Fingerprint) serialize() []byte {
	w := ccpath.NewBinaryWriter(256)
	f.writeTo(w)
	return w.Bytes()
}

// writeTo appends f's binary form directly onto w: compiler/target/
// profile hashes, then deps, then local entries, recursively inline
// (not length-prefixed) — matching the original's (de)serialize pair.
// fs_status and Outputs are never persisted; they're always recomputed
// from the live filesystem on the next run.
func (f *Fingerprint) writeTo(w *ccpath.BinaryWriter) {
	w.WriteU64(f.CompilerHash)
	w.WriteU64(f.TargetHash)
	w.WriteU64(f.ProfileHash)
	w.WriteU32(uint32(len(f.Deps)))
	w.WriteU32(uint32(len(f.Local)))
	for _, dep := range f.Deps {
		dep.writeTo(w)
	}
	for _, local := range f.Local {
		local.writeTo(w)
	}
}

func deserializeFingerprint(r *ccpath.BinaryReader) (*Fingerprint, bool) {
	var f Fingerprint
	var err error
	if f.CompilerHash, err = r.ReadU64(); err != nil {
		return nil, false
	}
	if f.TargetHash, err = r.ReadU64(); err != nil {
		return nil, false
	}
	if f.ProfileHash, err = r.ReadU64(); err != nil {
		return nil, false
	}
	nDeps, err := r.ReadU32()
	if err != nil {
		return nil, false
	}
	nLocal, err := r.ReadU32()
	if err != nil {
		return nil, false
	}
	for i := uint32(0); i < nDeps; i++ {
		dep, ok := deserializeDepFingerprint(r)
		if !ok {
			return nil, false
		}
		f.Deps = append(f.Deps, dep)
	}
	for i := uint32(0); i < nLocal; i++ {
		local, ok := deserializeLocal(r)
		if !ok {
			return nil, false
		}
		f.Local = append(f.Local, local)
	}
	return &f, true
}

func (d DepFingerprint) writeTo(w *ccpath.BinaryWriter) {
	w.WriteU64(d.PkgID)
	w.WriteBytes([]byte(d.Name))
	d.Fingerprint.writeTo(w)
}

func deserializeDepFingerprint(r *ccpath.BinaryReader) (DepFingerprint, bool) {
	pkgID, err := r.ReadU64()
	if err != nil {
		return DepFingerprint{}, false
	}
	name, err := r.ReadBytes()
	if err != nil {
		return DepFingerprint{}, false
	}
	fp, ok := deserializeFingerprint(r)
	if !ok {
		return DepFingerprint{}, false
	}
	return DepFingerprint{PkgID: pkgID, Name: string(name), Fingerprint: fp}, true
}

func (l LocalFingerprint) writeTo(w *ccpath.BinaryWriter) {
	switch l.Kind {
	case KindCheckDepInfo:
		w.WriteU8(0)
		if l.CheckAll {
			w.WriteU8(1)
		} else {
			w.WriteU8(0)
		}
		w.WritePath(l.DepInfo)
	case KindRerunIfChanged:
		w.WriteU8(1)
		w.WritePath(l.Output)
		w.WriteU32(uint32(len(l.Paths)))
		for _, p := range l.Paths {
			w.WritePath(p)
		}
	}
}

func deserializeLocal(r *ccpath.BinaryReader) (LocalFingerprint, bool) {
	kind, err := r.ReadU8()
	if err != nil {
		return LocalFingerprint{}, false
	}
	switch kind {
	case 0:
		checkAllByte, err := r.ReadU8()
		if err != nil {
			return LocalFingerprint{}, false
		}
		depInfo, err := r.ReadPath()
		if err != nil {
			return LocalFingerprint{}, false
		}
		return LocalFingerprint{Kind: KindCheckDepInfo, DepInfo: depInfo, CheckAll: checkAllByte == 1}, true
	case 1:
		output, err := r.ReadPath()
		if err != nil {
			return LocalFingerprint{}, false
		}
		n, err := r.ReadU32()
		if err != nil {
			return LocalFingerprint{}, false
		}
		paths := make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			p, err := r.ReadPath()
			if err != nil {
				return LocalFingerprint{}, false
			}
			paths = append(paths, p)
		}
		return LocalFingerprint{Kind: KindRerunIfChanged, Output: output, Paths: paths}, true
	default:
		return LocalFingerprint{}, false
	}
}
