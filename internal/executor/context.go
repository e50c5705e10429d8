// Package executor implements component J: the build executor that
// turns a resolved unit graph into actual compiler/linker/step
// invocations, deciding per unit whether a prior fingerprint lets it be
// skipped, and running every independent stage of the graph
// concurrently.
//
// This is the Go-idiomatic analogue of the original's core::compile
// module: Context there borrows a &Config/&Layout/&Toolchain/&Profile
// for the duration of one build and owns the unit graph plus the
// per-target dependency/IO maps computed from it. Go has no borrow
// checker, so Context here simply holds plain values/pointers and
// relies on the caller not mutating the packages/layout out from under
// a build in progress, same as any other single-shot CLI invocation.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"ccargo/internal/build"
	"ccargo/internal/ccpath"
	"ccargo/internal/fingerprint"
	"ccargo/internal/msgqueue"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

// Context is the fully-resolved, ready-to-build state for one
// invocation: every unit reachable from the selected targets, their
// computed dependency libraries/includes/defines, and their expected
// output paths.
type Context struct {
	Layout    unit.Layout
	Toolchain *toolchain.Toolchain
	Profile   unit.Profile
	Packages  *unit.PackageMap

	Units      *unit.UnitMap
	UnitGraph  *unit.UnitGraph
	ColorCache *ColorCache

	mu         sync.Mutex
	targetDeps map[*unit.Target]TargetDeps
	targetIO   map[*unit.Target]TargetIO
}

// TargetIO is a target's resolved output path and the side-artifacts
// (pdb/dSYM/import-lib) its toolchain+profile combination is expected to
// produce alongside it.
type TargetIO struct {
	Output    string
	Artifacts []toolchain.Artifact
}

// TargetDeps is a target's resolved transitive build inputs, collected
// by walking its Depends edges: the dependency libraries to link
// against, and the public includes/defines those dependencies (and their
// own public dependencies) contribute.
type TargetDeps struct {
	Libs     []string
	Includes []string // de-duplicated, first-seen order
	Defines  map[string]unit.Define
}

// New resolves packages into a full Context for the given selected root
// target names: it builds the unit map and graph, then computes every
// target's TargetDeps/TargetIO up front so the fingerprint engine and
// the build pipeline never need to re-derive them mid-build.
func New(layout unit.Layout, tc *toolchain.Toolchain, profile unit.Profile, packages *unit.PackageMap, selected []*unit.Target) (*Context, error) {
	units, err := unit.FromPackageMap(packages)
	if err != nil {
		return nil, err
	}

	cx := &Context{
		Layout:     layout,
		Toolchain:  tc,
		Profile:    profile,
		Packages:   packages,
		Units:      units,
		ColorCache: NewColorCache(),
		targetDeps: map[*unit.Target]TargetDeps{},
		targetIO:   map[*unit.Target]TargetIO{},
	}

	cx.UnitGraph = units.BuildGraph(selected)
	if cycles := cx.UnitGraph.Cycles(); len(cycles) > 0 {
		return nil, errors.Errorf("dependency cycle detected involving %d unit(s)", len(cycles[0]))
	}

	var targets []*unit.Target
	for _, u := range cx.UnitGraph.Nodes() {
		if t, ok := u.AsTarget(); ok {
			targets = append(targets, t)
		}
	}

	// Collecting each target's deps needs its dependencies' public
	// includes/defines, but newTargetDeps walks the dependency edges
	// through cx.Units directly rather than reading other targets'
	// entries in cx.targetDeps, so every target can be computed
	// independently of the others.
	var g errgroup.Group
	for _, t := range targets {
		t := t
		g.Go(func() error {
			deps := newTargetDeps(cx, t)
			cx.mu.Lock()
			cx.targetDeps[t] = deps
			cx.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range targets {
		cx.targetIO[t] = newTargetIO(t, layout, tc, profile, cx.targetDeps[t])
	}

	return cx, nil
}

// newTargetIO computes a target's output path and expected side
// artifacts, mirroring the original's TargetIO::from_target.
func newTargetIO(t *unit.Target, layout unit.Layout, tc *toolchain.Toolchain, profile unit.Profile, deps TargetDeps) TargetIO {
	lang := unit.LangC
	for _, s := range t.Sources {
		if unit.DetectLanguage(s).IsCxx() {
			lang = unit.LangCxx
			break
		}
	}
	ext := toolchain.ExtensionsFor(tc.Target())
	var name string
	switch t.Kind {
	case unit.Static:
		name = t.OutputName(ext.Static)
	case unit.Shared:
		name = t.OutputName(ext.Shared)
	default:
		name = t.OutputName(ext.Exe)
	}
	output := filepath.Join(layout.OutputDir(t.Package), name)

	family := toolchain.Gnu
	if tools, ok := tc.ToolsFor(lang); ok {
		family = tools.CC.Family()
	}
	artifacts := toolchain.OutputArtifacts(family, tc.Target(), t.Kind, profile)

	return TargetIO{Output: output, Artifacts: artifacts}
}

// newTargetDeps walks t's declared dependency edges, collecting every
// transitive dependency's output library, plus whatever includes/defines
// each dependency marked public. Own includes/defines are added last so
// a target can override an inherited define with its own, matching the
// original's TargetDeps::new.
func newTargetDeps(cx *Context, t *unit.Target) TargetDeps {
	deps := TargetDeps{Defines: map[string]unit.Define{}}
	seenInclude := map[string]bool{}
	seenLib := map[*unit.Target]bool{}

	var collect func(target *unit.Target)
	collect = func(target *unit.Target) {
		for _, d := range target.Depends {
			dep, ok := cx.Units.Get(d.Value(), target.Package)
			if !ok {
				dep, ok = cx.Units.Named(d.Value())
				if !ok {
					continue
				}
			}
			depTarget, ok := dep.AsTarget()
			if !ok || seenLib[depTarget] {
				continue
			}
			seenLib[depTarget] = true

			deps.Libs = append(deps.Libs, depTarget.OutputPath(cx.Layout, linkExtension(depTarget.Kind, cx.Toolchain)))
			for _, inc := range depTarget.Includes {
				if inc.IsPublic() && !seenInclude[inc.Value()] {
					seenInclude[inc.Value()] = true
					deps.Includes = append(deps.Includes, inc.Value())
				}
			}
			for _, def := range depTarget.Defines {
				if def.IsPublic() {
					deps.Defines[def.Value().Name] = def.Value()
				}
			}
			collect(depTarget)
		}
	}
	collect(t)

	for _, inc := range t.Includes {
		if !seenInclude[inc.Value()] {
			seenInclude[inc.Value()] = true
			deps.Includes = append(deps.Includes, inc.Value())
		}
	}
	for _, def := range t.Defines {
		deps.Defines[def.Value().Name] = def.Value()
	}

	return deps
}

// resolver adapts Context to fingerprint.Resolver.
type resolver struct{ cx *Context }

func (r resolver) UnitWithOutput(path string) (unit.Unit, bool) { return r.cx.Units.WithOutput(path) }
func (r resolver) UnitNamed(name unit.TargetName, pkg unit.PackageId) (unit.Unit, bool) {
	return r.cx.Units.Get(name, pkg)
}
func (r resolver) TargetDeps(t *unit.Target) fingerprint.Deps {
	return fingerprint.Deps{Libs: r.cx.targetDeps[t].Libs}
}
func (r resolver) TargetOutput(t *unit.Target) fingerprint.TargetIO {
	io := r.cx.targetIO[t]
	return fingerprint.TargetIO{Output: io.Output, Artifacts: io.Artifacts}
}

// calculator builds a fingerprint.Calculator wired against this Context.
func (cx *Context) calculator() *fingerprint.Calculator {
	return fingerprint.NewCalculator(cx.Layout, cx.Toolchain, cx.Profile, resolver{cx: cx})
}

// Compile drives the full build: every parallel stage of the unit graph
// runs concurrently, each unit within a stage compiled/run independently
// via errgroup, and the collected runtime outputs are copied into the
// layout's target directory once every stage completes.
func (cx *Context) Compile(ctx context.Context) error {
	calc := cx.calculator()
	nUnits := cx.Units.Len()
	stdout := msgqueue.NewQueue(nUnits, os.Stdout)
	stderr := msgqueue.NewQueue(nUnits, os.Stderr)
	outputs := &outputSet{}

	for _, stage := range cx.UnitGraph.ParallelStages() {
		g, gctx := errgroup.WithContext(ctx)
		for _, u := range stage {
			u := u
			g.Go(func() error {
				return cx.compileUnit(gctx, calc, u, outputs, stdout, stderr)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return outputs.copyTo(cx.Layout.Target())
}

func (cx *Context) compileUnit(ctx context.Context, calc *fingerprint.Calculator, u unit.Unit, outputs *outputSet, stdout, stderr *msgqueue.Queue) error {
	fpPath := u.FingerprintPath(cx.Layout)
	fp, fresh, _, err := calc.Prepare(u, fpPath)
	if err != nil {
		return err
	}
	if fresh {
		return nil
	}

	switch {
	case u.IsTarget():
		target, _ := u.AsTarget()
		writeStatus(stdout.Writer(), "Compiling", target.FullName().String(), cx.ColorCache.PrefixColor(target.Package.Name()))

		result, err := cx.compileTarget(ctx, target, stdout, stderr)
		if err != nil {
			return err
		}
		outputs.add(cx, target, result)

	case u.IsStep():
		step, _ := u.AsStep()
		writeStatus(stdout.Writer(), "Running", step.FullName().String(), cx.ColorCache.PrefixColor(step.Package.Name()))

		if err := cx.runStep(ctx, step, stdout, stderr); err != nil {
			return err
		}
	}

	return fingerprint.WriteToDisk(fp, fpPath)
}

func (cx *Context) compileTarget(ctx context.Context, target *unit.Target, stdout, stderr *msgqueue.Queue) (*build.Result, error) {
	b := cx.builderFor(target, stdout, stderr)
	return b.Compile(ctx)
}

// builderFor assembles the build.Builder for target, folding in its
// resolved transitive includes/defines/link libraries. Shared by the
// fingerprint-gated Compile path and the direct Check/Expand entry
// points below.
func (cx *Context) builderFor(target *unit.Target, stdout, stderr *msgqueue.Queue) *build.Builder {
	deps := cx.targetDeps[target]

	b := build.NewBuilder(target.Name, target.Kind, cx.Toolchain)
	b.Profile = cx.Profile
	b.Options = target.Options
	b.SrcDir = target.Package.Root()
	b.OutDir = cx.Layout.OutputDir(target.Package)
	b.Files = relativeTo(target.Sources, b.SrcDir)
	b.Includes = append(append([]string{}, ownIncludes(target)...), deps.Includes...)
	b.Libraries = deps.Libs
	b.Stdout = stdout
	b.Stderr = stderr

	for name, def := range deps.Defines {
		b.Options.Defines = append(b.Options.Defines, defineString(def))
		_ = name
	}
	return b
}

// Check runs a syntax-only pass over every selected target's sources,
// skipping codegen and linking entirely — a fast way to surface parse
// errors without paying for a full build.
func (cx *Context) Check(ctx context.Context) error {
	stdout := msgqueue.NewQueue(0, os.Stdout)
	stderr := msgqueue.NewQueue(0, os.Stderr)

	var g errgroup.Group
	for _, u := range cx.UnitGraph.Nodes() {
		target, ok := u.AsTarget()
		if !ok {
			continue
		}
		target := target
		g.Go(func() error {
			return cx.builderFor(target, stdout, stderr).Check(ctx)
		})
	}
	return g.Wait()
}

// Expand preprocesses every selected target's sources and returns each
// target's expanded translation units, keyed by the target's namespaced
// name.
func (cx *Context) Expand(ctx context.Context) (map[unit.TargetName][]build.Expanded, error) {
	stdout := msgqueue.NewQueue(0, os.Stdout)
	stderr := msgqueue.NewQueue(0, os.Stderr)

	out := make(map[unit.TargetName][]build.Expanded)
	var mu sync.Mutex
	var g errgroup.Group
	for _, u := range cx.UnitGraph.Nodes() {
		target, ok := u.AsTarget()
		if !ok {
			continue
		}
		target := target
		g.Go(func() error {
			expanded, err := cx.builderFor(target, stdout, stderr).Expand(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			out[target.FullName()] = expanded
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// linkExtension is the file extension a dependency target is linked in
// with: its own static/shared artifact extension, falling back to the
// executable extension for the (invalid-as-a-dependency, but harmless)
// case of a binary appearing in another target's Depends.
func linkExtension(kind unit.TargetKind, tc *toolchain.Toolchain) string {
	ext := toolchain.ExtensionsFor(tc.Target())
	switch kind {
	case unit.Static:
		return ext.Static
	case unit.Shared:
		return ext.Shared
	default:
		return ext.Exe
	}
}

func ownIncludes(t *unit.Target) []string {
	out := make([]string, 0, len(t.Includes))
	for _, inc := range t.Includes {
		out = append(out, inc.Value())
	}
	return out
}

func defineString(d unit.Define) string {
	if !d.HasValue {
		return d.Name
	}
	return d.Name + "=" + d.Value
}

func relativeTo(paths []string, root string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil {
			out[i] = rel
		} else {
			out[i] = p
		}
	}
	return out
}

// Run executes target's output binary in place of the current process
// (on platforms that support it) so signals, stdio, and the exit code
// pass straight through to the caller's shell, matching the original's
// Command::exec_replace usage.
func (cx *Context) Run(target *unit.Target, args []string) error {
	if target.Kind == unit.Static || target.Kind == unit.Shared {
		return errors.Errorf("cannot run library target `%s`", target.FullName())
	}
	io, ok := cx.targetIO[target]
	if !ok {
		return errors.Errorf("target `%s` has not been built", target.FullName())
	}
	if !ccpath.Exists(io.Output) {
		return errors.Errorf("target `%s` has not been built yet (expected output at %s)", target.FullName(), io.Output)
	}
	return execReplace(io.Output, args)
}

// writeStatus prints a right-justified, colored status line matching
// the "   Compiling foo" style: verb bold+colored, right-justified to
// 12 columns, followed by the unit's full name.
func writeStatus(w *msgqueue.Writer, verb, name string, colorize colorFn) {
	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint(colorize(fmt.Sprintf("%12s", verb))), name)
}
