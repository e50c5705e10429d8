// Package cmd holds the root cobra command that drives ccargo: it wires
// manifest loading/workspace discovery, toolchain resolution, and the
// executor together behind "build", "run", "check", and "expand"
// subcommands, matching the way the teacher's internal/cmd wires its own
// subpackages into one cobra tree.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"ccargo/internal/config"
	"ccargo/internal/executor"
	"ccargo/internal/manifest"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
	"ccargo/internal/workspace"
)

// globalFlags holds the persistent flags shared by every subcommand:
// where the workspace lives, which target triple/compilers to build
// for, and which profile to build in.
type globalFlags struct {
	root    string
	target  string
	ccPath  string
	cxxPath string
	release bool
	verbose bool
}

// profile derives the unit.Profile these flags select: "release" turns
// on -O2 and disables incremental compilation, matching spec.md's
// release/debug profile split.
func (g *globalFlags) profile() unit.Profile {
	if g.release {
		return unit.Profile{DirName: "release", OptLevel: unit.OptO2}
	}
	return unit.Profile{DirName: "debug", Incremental: true}
}

// resolve loads every package reachable from g.root, resolves the
// toolchain, selects the root targets named by args (every declared
// target when args is empty), and returns a ready-to-drive executor
// Context.
func (g *globalFlags) resolve(args []string) (*config.Config, *executor.Context, []*unit.Target, error) {
	cfg, err := config.New(g.verbose)
	if err != nil {
		return nil, nil, nil, err
	}

	root := g.root
	if root == "" {
		root = cfg.Cwd
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, nil, nil, err
	}

	packages, err := loadPackages(root)
	if err != nil {
		return nil, nil, nil, err
	}
	if packages.Len() == 0 {
		return nil, nil, nil, errors.Errorf("no %s found under %q", manifest.FileName, root)
	}

	tc, err := toolchain.New(toolchain.Options{Target: g.target, CCPath: g.ccPath, CXXPath: g.cxxPath})
	if err != nil {
		return nil, nil, nil, err
	}

	selected, err := selectTargets(packages, args)
	if err != nil {
		return nil, nil, nil, err
	}

	layout := unit.NewLayout(root, g.profile(), g.target)
	cx, err := executor.New(layout, tc, g.profile(), packages, selected)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, cx, selected, nil
}

// loadPackages treats root as a single package when it directly holds a
// CCargo.toml, and otherwise falls back to a full workspace discovery
// walk — the common single-project layout never pays for a tree walk.
func loadPackages(root string) (*unit.PackageMap, error) {
	if _, err := os.Stat(filepath.Join(root, manifest.FileName)); err == nil {
		pkg, err := manifest.Load(root)
		if err != nil {
			return nil, err
		}
		return unit.NewPackageMap([]*unit.Package{pkg}), nil
	}
	return workspace.Discover(root)
}

// selectTargets resolves each name ("pkg::target", or a bare target name
// when it is unambiguous across the workspace) against packages,
// defaulting to every declared target when names is empty.
func selectTargets(packages *unit.PackageMap, names []string) ([]*unit.Target, error) {
	if len(names) == 0 {
		var all []*unit.Target
		for _, pkg := range packages.Iter() {
			all = append(all, pkg.Targets...)
		}
		if len(all) == 0 {
			return nil, errors.New("workspace declares no targets")
		}
		return all, nil
	}

	out := make([]*unit.Target, 0, len(names))
	for _, name := range names {
		t, err := resolveTargetName(packages, name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func resolveTargetName(packages *unit.PackageMap, name string) (*unit.Target, error) {
	if full, err := unit.ParseTargetName(name); err == nil {
		for _, pkg := range packages.Iter() {
			if pkg.Name() != full.Package {
				continue
			}
			if t, ok := pkg.TargetByName(full.Target); ok {
				return t, nil
			}
			return nil, errors.Errorf("package `%s` has no target named `%s`", full.Package, full.Target)
		}
		return nil, errors.Errorf("no package named `%s`", full.Package)
	}

	var match *unit.Target
	for _, pkg := range packages.Iter() {
		if t, ok := pkg.TargetByName(name); ok {
			if match != nil {
				return nil, errors.Errorf("target `%s` is ambiguous across packages; qualify it as `pkg::%s`", name, name)
			}
			match = t
		}
	}
	if match == nil {
		return nil, errors.Errorf("no target named `%s`", name)
	}
	return match, nil
}
