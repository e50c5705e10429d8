package unit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TargetName is a namespaced identifier "package::target", both halves
// interned implicitly by being plain strings held on a comparable
// struct (cheap enough not to need explicit interning in Go).
type TargetName struct {
	Package string
	Target  string
}

// NewTargetName builds a TargetName directly (no parsing/validation).
func NewTargetName(pkg, target string) TargetName {
	return TargetName{Package: pkg, Target: target}
}

// ParseTargetName parses the "pkg::target" wire format.
func ParseTargetName(s string) (TargetName, error) {
	idx := strings.Index(s, "::")
	if idx < 0 {
		return TargetName{}, errors.Errorf("invalid target name %q: missing `::`", s)
	}
	pkg := s[:idx]
	rest := s[idx+2:]
	if pkg == "" {
		return TargetName{}, errors.Errorf("invalid target name %q: empty package", s)
	}
	if rest == "" {
		return TargetName{}, errors.Errorf("invalid target name %q: empty target", s)
	}
	if strings.Contains(rest, "::") {
		return TargetName{}, errors.Errorf("invalid target name %q: unexpected extra `::`", s)
	}
	return TargetName{Package: pkg, Target: rest}, nil
}

func (t TargetName) String() string {
	return fmt.Sprintf("%s::%s", t.Package, t.Target)
}
