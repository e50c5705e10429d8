// Package manifest reads a single package's CCargo.toml into the core's
// Package/Target/Step data model. Manifest parsing is explicitly out of
// the core build engine's scope (spec.md §1) — this package exists
// because a runnable CLI still has to get a *unit.Package from
// somewhere, and the original Rust implementation's own manifest format
// (original_source/ccargo/src/toml/mod.rs) is the closest grounding
// available, short of inventing one.
package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"ccargo/internal/unit"
)

// FileName is the manifest file every package directory must contain.
const FileName = "CCargo.toml"

type tomlManifest struct {
	Package      *tomlPackage             `toml:"package"`
	Lib          []tomlTarget             `toml:"lib"`
	Bin          []tomlTarget             `toml:"bin"`
	Step         []tomlStep               `toml:"step"`
	Dependencies map[string]tomlDependency `toml:"dependencies"`
}

type tomlPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type tomlTarget struct {
	Name           string   `toml:"name"`
	Sources        []string `toml:"sources"`
	DefinePublic   []string `toml:"define-public"`
	DefinePrivate  []string `toml:"define-private"`
	IncludePublic  []string `toml:"include-public"`
	IncludePrivate []string `toml:"include-private"`
	DependsPublic  []string `toml:"depends-public"`
	DependsPrivate []string `toml:"depends-private"`
	ExportHeader   string   `toml:"export-header"`
	Shared         bool     `toml:"shared"`
	// Runtime mirrors the original's StringOrBool: either a bool
	// (`runtime = true`) or a destination path (`runtime = "lib/"`).
	// go-toml/v2 decodes an untyped TOML value into string/bool/int64
	// on its own, so no custom unmarshaler is needed.
	Runtime interface{}    `toml:"runtime"`
	Options *tomlOptions   `toml:"options"`
}

type tomlStep struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Inputs  []string `toml:"inputs"`
	Outputs []string `toml:"outputs"`
	Depends []string `toml:"depends"`
}

// tomlDependency supports only the detailed, path-based form
// (`pkg = { path = "../pkg" }`), matching the original's own
// `unimplemented!("Only path dependencies for now")` for the bare
// version-string form — CCargo has no package registry to resolve a
// bare version against, in the original or here.
type tomlDependency struct {
	Path string `toml:"path"`
}

type tomlOptions struct {
	Std       *tomlStd      `toml:"std"`
	Warnings  *tomlWarnings `toml:"warnings"`
	StaticCrt *bool         `toml:"static-crt"`
	CCFlags   []string      `toml:"cc-flags"`
	LDFlags   []string      `toml:"ld-flags"`
	ARFlags   []string      `toml:"ar-flags"`
	AsmFlags  []string      `toml:"asm-flags"`
	Unix      *tomlUnix     `toml:"unix"`
}

type tomlStd struct {
	C         string `toml:"c"`
	Cxx       string `toml:"cxx"`
	CxxStdlib string `toml:"cxx-stdlib"`
	Gnu       bool   `toml:"gnu"`
}

type tomlWarnings struct {
	Level  string   `toml:"level"`
	Errors bool     `toml:"errors"`
	Extra  []string `toml:"extra"`
}

type tomlUnix struct {
	Pic               *bool `toml:"pic"`
	Plt               *bool `toml:"plt"`
	ForceFramePointer *bool `toml:"force-frame-pointer"`
}

// Load reads and converts the CCargo.toml at dir/FileName into a
// *unit.Package. The returned package's SourceId is dir itself.
func Load(dir string) (*unit.Package, error) {
	path := filepath.Join(dir, FileName)
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var m tomlManifest
	if err := toml.Unmarshal(contents, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if m.Package == nil {
		return nil, errors.Errorf("%s: no `package` section found", path)
	}
	name := strings.TrimSpace(m.Package.Name)
	if name == "" {
		return nil, errors.Errorf("%s: package name cannot be an empty string", path)
	}

	version, err := unit.ParseVersion(m.Package.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: invalid package version %q", path, m.Package.Version)
	}
	id := unit.NewPackageId(name, version, unit.NewSourceId(dir))

	var targets []*unit.Target
	for _, t := range m.Lib {
		target, err := t.toReal(dir, id, false)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: lib %q", path, t.Name)
		}
		targets = append(targets, target)
	}
	for _, t := range m.Bin {
		target, err := t.toReal(dir, id, true)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: bin %q", path, t.Name)
		}
		targets = append(targets, target)
	}

	var steps []*unit.Step
	for _, s := range m.Step {
		step, err := s.toReal(dir, id, targets)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: step %q", path, s.Name)
		}
		steps = append(steps, step)
	}

	var deps []unit.Dependency
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dep := m.Dependencies[name]
		if dep.Path == "" {
			return nil, errors.Errorf("%s: dependency %q has no `path` (only path dependencies are supported)", path, name)
		}
		deps = append(deps, unit.Dependency{Name: name, SourceId: unit.NewSourceId(absPath(dir, dep.Path))})
	}

	return &unit.Package{
		Id:           id,
		Targets:      targets,
		Steps:        steps,
		Dependencies: deps,
	}, nil
}

func (t tomlTarget) toReal(root string, pkg unit.PackageId, isBin bool) (*unit.Target, error) {
	kind := unit.Static
	switch {
	case isBin:
		kind = unit.Bin
	case t.Runtime != nil || t.Shared:
		kind = unit.Shared
	}

	var rpath string
	switch v := t.Runtime.(type) {
	case string:
		rpath = v
	case bool:
		if v {
			rpath = "."
		}
	}

	options := unit.Options{}
	if t.Options != nil {
		options = t.Options.toReal(kind)
	}

	sources, err := expandSources(root, t.Sources)
	if err != nil {
		return nil, err
	}

	var includes []unit.PublicPrivate[string]
	for _, v := range t.IncludePublic {
		includes = append(includes, unit.Public(absPath(root, v)))
	}
	for _, v := range t.IncludePrivate {
		includes = append(includes, unit.Private(absPath(root, v)))
	}

	var defines []unit.PublicPrivate[unit.Define]
	for _, v := range t.DefinePublic {
		defines = append(defines, unit.Public(parseDefine(v)))
	}
	for _, v := range t.DefinePrivate {
		defines = append(defines, unit.Private(parseDefine(v)))
	}

	var depends []unit.PublicPrivate[unit.TargetName]
	for _, v := range t.DependsPublic {
		depends = append(depends, unit.Public(parseTargetDependency(pkg, v)))
	}
	for _, v := range t.DependsPrivate {
		depends = append(depends, unit.Private(parseTargetDependency(pkg, v)))
	}

	if kind == unit.Shared {
		defines = append(defines,
			unit.Public(unit.Define{Name: strings.ToUpper(t.Name) + "_SHARED"}),
			unit.Private(unit.Define{Name: strings.ToUpper(t.Name) + "_EXPORTS"}),
		)
	}

	exportHeader := ""
	if t.ExportHeader != "" {
		exportHeader = absPath(root, t.ExportHeader)
	}

	return &unit.Target{
		Name:         t.Name,
		Package:      pkg,
		Kind:         kind,
		Sources:      sources,
		Options:      options,
		Depends:      depends,
		Includes:     includes,
		Defines:      defines,
		Rpath:        rpath,
		ExportHeader: exportHeader,
	}, nil
}

func (s tomlStep) toReal(root string, pkg unit.PackageId, targets []*unit.Target) (*unit.Step, error) {
	if s.Command == "" {
		return nil, errors.New("step has no `command`")
	}
	fields := strings.Fields(s.Command)
	cmd := fields[0]
	args := fields[1:]

	for _, t := range targets {
		if t.Name == cmd {
			cmd = unit.NewTargetName(pkg.Name(), t.Name).String()
			break
		}
	}
	program := unit.ParseProgram(cmd)

	var inputs, outputs []string
	for _, v := range s.Inputs {
		inputs = append(inputs, absPath(root, v))
	}
	for _, v := range s.Outputs {
		outputs = append(outputs, absPath(root, v))
	}
	var depends []unit.TargetName
	for _, v := range s.Depends {
		depends = append(depends, parseTargetDependency(pkg, v))
	}

	return &unit.Step{
		Name:    s.Name,
		Package: pkg,
		Inputs:  inputs,
		Outputs: outputs,
		Depends: depends,
		Program: program,
		Args:    args,
	}, nil
}

func (o tomlOptions) toReal(kind unit.TargetKind) unit.Options {
	opts := unit.Options{Unix: unit.DefaultUnixFlags()}
	if kind == unit.Shared {
		opts.Crt = unit.CrtShared
	}
	if o.StaticCrt != nil {
		if *o.StaticCrt {
			opts.Crt = unit.CrtStatic
		} else {
			opts.Crt = unit.CrtShared
		}
	}
	opts.CCFlags = append(unit.FlagSet{}, o.CCFlags...)
	opts.LDFlags = append(unit.FlagSet{}, o.LDFlags...)
	opts.ARFlags = append(unit.FlagSet{}, o.ARFlags...)
	opts.AsmFlags = append(unit.FlagSet{}, o.AsmFlags...)
	if o.Std != nil {
		opts.Std = unit.Std{
			C:         parseStdC(o.Std.C),
			Cxx:       parseStdCxx(o.Std.Cxx),
			CxxStdlib: o.Std.CxxStdlib,
			Gnu:       o.Std.Gnu,
		}
	}
	if o.Warnings != nil {
		opts.Warnings = unit.Warnings{
			Level:  parseWarningLevel(o.Warnings.Level),
			Errors: o.Warnings.Errors,
			Extra:  append([]string{}, o.Warnings.Extra...),
		}
	}
	if o.Unix != nil {
		def := unit.DefaultUnixFlags()
		u := def
		if o.Unix.Pic != nil {
			u.Pic = *o.Unix.Pic
		}
		if o.Unix.Plt != nil {
			u.Plt = *o.Unix.Plt
		}
		if o.Unix.ForceFramePointer != nil {
			u.ForceFramePointer = *o.Unix.ForceFramePointer
		}
		opts.Unix = u
	}
	return opts
}

func parseStdC(s string) unit.StdC {
	switch s {
	case "c89":
		return unit.StdC89
	case "c99":
		return unit.StdC99
	case "c17":
		return unit.StdC17
	case "c20":
		return unit.StdC20
	default:
		return unit.StdC11
	}
}

func parseStdCxx(s string) unit.StdCxx {
	switch s {
	case "c++98":
		return unit.StdCxx98
	case "c++11":
		return unit.StdCxx11
	case "c++14":
		return unit.StdCxx14
	case "c++20":
		return unit.StdCxx20
	default:
		return unit.StdCxx17
	}
}

func parseWarningLevel(s string) unit.WarningLevel {
	switch s {
	case "none":
		return unit.WarnNone
	case "extra":
		return unit.WarnExtra
	case "all":
		return unit.WarnAll
	default:
		return unit.WarnDefault
	}
}

// parseDefine splits a "NAME" or "NAME=VALUE" define string, matching
// the original's plain-string defines.
func parseDefine(s string) unit.Define {
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		return unit.Define{Name: s[:idx], Value: s[idx+1:], HasValue: true}
	}
	return unit.Define{Name: s}
}

// parseTargetDependency mirrors TomlTargetDependency::to_real: a
// "pkg::target" reference names another package's target directly, a
// bare name resolves against the declaring package.
func parseTargetDependency(pkg unit.PackageId, s string) unit.TargetName {
	if name, err := unit.ParseTargetName(s); err == nil {
		return name
	}
	return unit.NewTargetName(pkg.Name(), s)
}

// absPath resolves v (as written in the manifest) against root, the
// directory the manifest file lives in — the original's paths::abs.
func absPath(root, v string) string {
	if filepath.IsAbs(v) {
		return filepath.Clean(v)
	}
	return filepath.Clean(filepath.Join(root, v))
}

// expandSources resolves each declared source entry against root,
// expanding any entry that contains glob metacharacters into every
// matching file under root — a supplement to the original, which only
// supports an explicit file list; CCargo.toml authors would otherwise
// have to name every source file individually.
func expandSources(root string, entries []string) ([]string, error) {
	var out []string
	for _, entry := range entries {
		if !strings.ContainsAny(entry, "*?[") {
			out = append(out, absPath(root, entry))
			continue
		}
		g, err := glob.Compile(entry, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid source glob %q", entry)
		}
		matches, err := globMatches(root, g)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

func globMatches(root string, g glob.Glob) ([]string, error) {
	var matches []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if g.Match(filepath.ToSlash(rel)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to expand source glob under %s", root)
	}
	sort.Strings(matches)
	return matches, nil
}
