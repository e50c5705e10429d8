package executor

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ccargo/internal/build"
	"ccargo/internal/unit"
)

// outputSet collects every compiled target's runtime artifact locations
// across a build, so they can be copied into the target directory in
// one pass after every unit has finished — mirroring the original's
// Outputs/Output pair in core::compile.
type outputSet struct {
	mu      sync.Mutex
	outputs []copyEntry
}

type copyEntry struct {
	src     string
	dst     string // empty means "layout.Target()/<basename of src>"
	updated bool
}

// add records result's primary output (and any debug-info side
// artifacts) for target, skipping static libraries entirely — a static
// archive is only ever consumed by a further link step, never copied out
// to the target directory on its own.
func (s *outputSet) add(cx *Context, target *unit.Target, result *build.Result) {
	if target.Kind == unit.Static {
		return
	}

	runtimeDst, hasRpath := target.RuntimePath(cx.Layout, filepath.Ext(result.Path))

	s.mu.Lock()
	defer s.mu.Unlock()

	dst := ""
	if hasRpath {
		dst = runtimeDst
	}
	s.outputs = append(s.outputs, copyEntry{src: result.Path, dst: dst, updated: result.DidLink})

	for _, extra := range result.Extra {
		ext := filepath.Ext(extra)
		extraDst := ""
		if hasRpath {
			extraDst = strings.TrimSuffix(runtimeDst, filepath.Ext(runtimeDst)) + ext
		}
		s.outputs = append(s.outputs, copyEntry{src: extra, dst: extraDst, updated: result.DidLink})
	}
}

// copyTo copies every recorded, freshly-linked output into dst (the
// layout's target directory), or to its own declared rpath override
// destination if one was set.
func (s *outputSet) copyTo(dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.outputs {
		if !o.updated {
			continue
		}
		target := o.dst
		if target == "" {
			target = filepath.Join(dst, filepath.Base(o.src))
		}
		if err := copyFile(o.src, target); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
