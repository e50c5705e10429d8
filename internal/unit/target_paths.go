package unit

import "path/filepath"

// OutputPath is where this target's compiled artifact lives under the
// layout's per-package output directory.
func (t *Target) OutputPath(layout Layout, ext string) string {
	return filepath.Join(layout.OutputDir(t.Package), t.OutputName(ext))
}

// DepInfoPath is the internal dep-info file for this target:
// .fingerprint/<pkg-unique>/<target>.d
func (t *Target) DepInfoPath(layout Layout) string {
	return filepath.Join(layout.Fingerprint(), t.Package.UniqueName(), t.Name+".d")
}

// FingerprintPath is the persisted fingerprint hash file:
// .fingerprint/<pkg-unique>/<target>.hash
func (t *Target) FingerprintPath(layout Layout) string {
	return filepath.Join(layout.Fingerprint(), t.Package.UniqueName(), t.Name+".hash")
}

// RuntimePath is where a shared-library dependent's rpath override
// places a copy of this target at runtime, if Rpath is set.
func (t *Target) RuntimePath(layout Layout, ext string) (string, bool) {
	if t.Rpath == "" {
		return "", false
	}
	p := layout.Target()
	if t.Rpath != "." {
		p = filepath.Join(p, t.Rpath)
	}
	return filepath.Join(p, t.OutputName(ext)), true
}
