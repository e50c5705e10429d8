package unit

import "path/filepath"

// OutputPath is where the step's sentinel file lives.
func (s *Step) OutputPath(layout Layout) string {
	return filepath.Join(layout.OutputDir(s.Package), s.OutputName())
}

// DepInfoPath is the step's internal rerun-if-changed dep-info file.
func (s *Step) DepInfoPath(layout Layout) string {
	return filepath.Join(layout.Fingerprint(), s.Package.UniqueName(), s.Name+".d")
}

// FingerprintPath is the step's persisted fingerprint hash file.
func (s *Step) FingerprintPath(layout Layout) string {
	return filepath.Join(layout.Fingerprint(), s.Package.UniqueName(), s.Name+".hash")
}
