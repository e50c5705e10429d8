// Package build implements component H: the driver that turns a Target
// or Step's resolved sources, options, and toolchain into actual
// compiler/linker/archiver invocations, one Builder per unit, fanning
// compilation out across goroutines and funneling ordered output back
// through a msgqueue.Writer.
package build

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"ccargo/internal/ccerr"
	"ccargo/internal/msgqueue"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

// Object pairs a source file with its compiled object destination.
type Object struct {
	Src string
	Dst string
}

// DepPath is where this object's native dependency file is written.
func (o Object) DepPath() string { return withExt(o.Dst, ".o.d") }

// StderrCachePath is where this object's captured stderr is cached, so
// an unchanged object can replay its prior diagnostics without
// recompiling.
func (o Object) StderrCachePath() string { return withExt(o.Dst, ".stderr") }

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Result is the outcome of a full Builder.Compile invocation.
type Result struct {
	Objects []Object
	Path    string
	Extra   []string // side artifacts (pdb, dSYM, import lib...)
	DidLink bool
}

// Builder drives the source -> object -> linked-artifact pipeline for
// one Target. Each field mirrors a configuration knob the original
// exposed on its Build type; Go callers set them directly rather than
// through a chained builder API.
type Builder struct {
	Name      string
	Kind      unit.TargetKind
	Toolchain *toolchain.Toolchain
	Profile   unit.Profile
	Options   unit.Options

	Files     []string // relative to SrcDir
	Includes  []string
	Libraries []string
	Objects   []string // pre-built objects to link in directly

	SrcDir   string
	OutDir   string
	ObjDir   string
	Colored  bool
	SkipDeps bool

	Stdout *msgqueue.Queue
	Stderr *msgqueue.Queue

	lang       unit.Language
	syntaxOnly bool
}

// NewBuilder constructs a Builder with the spec's documented default
// layout: objects under "<out_dir>/<name>.dir/", colored output, and
// dependency files enabled.
func NewBuilder(name string, kind unit.TargetKind, tc *toolchain.Toolchain) *Builder {
	return &Builder{
		Name:      name,
		Kind:      kind,
		Toolchain: tc,
		Profile:   unit.Profile{DirName: "debug"},
		Options:   unit.Options{Unix: unit.DefaultUnixFlags()},
		Colored:   true,
		Stdout:    msgqueue.NewQueue(0, os.Stdout),
		Stderr:    msgqueue.NewQueue(0, os.Stderr),
	}
}

func (b *Builder) target() string { return b.Toolchain.Target() }

func (b *Builder) objDir() string {
	if b.ObjDir != "" {
		return b.ObjDir
	}
	return filepath.Join(b.OutDir, b.Name+".dir")
}

func (b *Builder) outputName() string {
	ext := toolchain.ExtensionsFor(b.target())
	switch b.Kind {
	case unit.Static:
		return b.Name + ext.Static
	case unit.Shared:
		return b.Name + ext.Shared
	default:
		return b.Name + ext.Exe
	}
}

func (b *Builder) outputPath() string {
	return filepath.Join(b.OutDir, b.outputName())
}

// detectLanguage resolves which compiler to use: the first C++ source
// found forces C++ unless the caller never declared any; an all-C file
// set resolves to C. This mirrors the original's auto-detection, which
// exists because a single Target's sources are usually homogeneous but
// the language choice affects which Tool (and which default flags) the
// rest of the pipeline uses.
func (b *Builder) detectLanguage() unit.Language {
	for _, f := range b.Files {
		if unit.DetectLanguage(f).IsCxx() {
			return unit.LangCxx
		}
	}
	return unit.LangC
}

func (b *Builder) resolveLanguage() error {
	b.lang = b.detectLanguage()
	if !b.Toolchain.Supports(b.lang) {
		return ccerr.InvalidArg("toolchain does not support %s", b.lang)
	}
	return nil
}

// objectPaths computes one Object per source file, hashing the parent
// directory into the object's filename so that two same-named files in
// different source directories don't collide once flattened into the
// single object directory.
func (b *Builder) objectPaths() ([]Object, error) {
	objDir := b.objDir()
	var objs []Object
	for _, file := range b.Files {
		name := file
		if parent := filepath.Dir(file); parent != "." {
			h := fnv.New64a()
			_, _ = h.Write([]byte(parent))
			name = fmt.Sprintf("%016x_%s", h.Sum64(), filepath.Base(file))
		}
		dst := filepath.Join(objDir, withExt(name, ".o"))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, ccerr.IO(err, "failed to create object directory for %q", dst)
		}
		src := filepath.Join(b.SrcDir, file)
		if _, err := os.Stat(src); err != nil {
			return nil, ccerr.InvalidArg("target %q cannot find input source file %q", b.Name, src)
		}
		objs = append(objs, Object{Src: src, Dst: dst})
	}
	return objs, nil
}

func (b *Builder) staticCrt() bool {
	switch b.Options.Crt {
	case unit.CrtStatic:
		return true
	case unit.CrtShared:
		return false
	default:
		ext := toolchain.ExtensionsFor(b.target()).Shared
		for _, lib := range b.Libraries {
			if filepath.Ext(lib) == ext {
				return false
			}
		}
		return true
	}
}

// Check runs the compiler in syntax-only mode over every source file and
// discards the would-be object output, matching the original's
// Build::check: useful for a fast "does this parse" pass without paying
// for codegen or linking.
func (b *Builder) Check(ctx context.Context) error {
	if err := b.resolveLanguage(); err != nil {
		return err
	}
	objs, err := b.objectPaths()
	if err != nil {
		return err
	}
	b.Stdout.Resize(len(objs))
	b.Stderr.Resize(len(objs))

	b.syntaxOnly = true
	defer func() { b.syntaxOnly = false }()
	return b.compileObjects(ctx, objs)
}

// Expand preprocesses every source file and returns its expanded text,
// matching the original's Build::expand. No object files are produced.
func (b *Builder) Expand(ctx context.Context) ([]Expanded, error) {
	if err := b.resolveLanguage(); err != nil {
		return nil, err
	}
	tools, ok := b.Toolchain.ToolsFor(b.lang)
	if !ok {
		return nil, ccerr.InvalidArg("no %s compiler resolved for target %q", b.lang, b.target())
	}

	out := make([]Expanded, len(b.Files))
	for i, file := range b.Files {
		src := filepath.Join(b.SrcDir, file)
		text, err := b.expandSource(ctx, tools.CC, src)
		if err != nil {
			return nil, err
		}
		out[i] = Expanded{Src: src, Text: text}
	}
	return out, nil
}

// Expanded is one source file's preprocessed output.
type Expanded struct {
	Src  string
	Text []byte
}

// Compile runs the full pipeline: resolve the language, compute object
// paths, compile every source in parallel, then link (unless this is a
// header-only target with no sources and no extra objects).
func (b *Builder) Compile(ctx context.Context) (*Result, error) {
	if err := b.resolveLanguage(); err != nil {
		return nil, err
	}
	dst := b.outputPath()
	objs, err := b.objectPaths()
	if err != nil {
		return nil, err
	}

	b.Stdout.Resize(1 + len(objs))
	b.Stderr.Resize(1 + len(objs))

	if err := b.compileObjects(ctx, objs); err != nil {
		return nil, err
	}

	didLink := len(objs) > 0 || len(b.Objects) > 0
	var extra []string
	if didLink {
		if err := b.link(ctx, dst, objs); err != nil {
			return nil, err
		}
		for _, a := range b.artifacts() {
			extra = append(extra, withExt(dst, a.Ext()))
		}
	}

	return &Result{Objects: objs, Path: dst, Extra: extra, DidLink: didLink}, nil
}

func (b *Builder) artifacts() []toolchain.Artifact {
	tools, _ := b.Toolchain.ToolsFor(b.lang)
	family := toolchain.Gnu
	if tools != nil {
		family = tools.CC.Family()
	}
	return toolchain.OutputArtifacts(family, b.target(), b.Kind, b.Profile)
}

// flagContext builds the toolchain.FlagContext this Builder's
// configuration corresponds to.
func (b *Builder) flagContext() toolchain.FlagContext {
	opts := b.Options
	if opts.Crt == unit.CrtDefault {
		if b.staticCrt() {
			opts.Crt = unit.CrtStatic
		} else {
			opts.Crt = unit.CrtShared
		}
	}
	return toolchain.FlagContext{
		Target:   b.target(),
		Options:  opts,
		Profile:  b.Profile,
		Kind:     b.Kind,
		Colored:  b.Colored,
		SkipDeps: b.SkipDeps,
	}
}

