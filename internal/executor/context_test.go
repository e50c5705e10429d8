package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

func testToolchain(t *testing.T) *toolchain.Toolchain {
	t.Helper()
	tc, err := toolchain.New(toolchain.Options{CCPath: "/bin/echo", CXXPath: "/bin/echo"})
	require.NoError(t, err)
	return tc
}

// libAndBin builds a tiny two-package graph: a static library "core"
// with a public include dir, and a binary "app" depending on it — just
// enough to exercise New's dependency/IO resolution and a full Compile
// pass end to end.
func libAndBin(t *testing.T) *unit.PackageMap {
	t.Helper()
	root := t.TempDir()

	libRoot := filepath.Join(root, "core")
	require.NoError(t, os.MkdirAll(filepath.Join(libRoot, "include"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libRoot, "core.c"), []byte("int core(){return 0;}"), 0o644))

	binRoot := filepath.Join(root, "app")
	require.NoError(t, os.MkdirAll(binRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binRoot, "main.c"), []byte("int main(){return 0;}"), 0o644))

	libPkgID := unit.NewPackageId("core", nil, unit.NewSourceId(libRoot))
	libTarget := &unit.Target{
		Name:     "core",
		Package:  libPkgID,
		Kind:     unit.Static,
		Sources:  []string{filepath.Join(libRoot, "core.c")},
		Includes: []unit.PublicPrivate[string]{unit.Public(filepath.Join(libRoot, "include"))},
	}
	libPkg := &unit.Package{Id: libPkgID, Targets: []*unit.Target{libTarget}}

	binPkgID := unit.NewPackageId("app", nil, unit.NewSourceId(binRoot))
	binTarget := &unit.Target{
		Name:    "app",
		Package: binPkgID,
		Kind:    unit.Bin,
		Sources: []string{filepath.Join(binRoot, "main.c")},
		Depends: []unit.PublicPrivate[unit.TargetName]{
			unit.Private(unit.NewTargetName("core", "core")),
		},
	}
	binPkg := &unit.Package{
		Id:           binPkgID,
		Targets:      []*unit.Target{binTarget},
		Dependencies: []unit.Dependency{{Name: "core", SourceId: unit.NewSourceId(libRoot)}},
	}

	return unit.NewPackageMap([]*unit.Package{libPkg, binPkg})
}

func TestNewResolvesTransitiveIncludesAndLibs(t *testing.T) {
	packages := libAndBin(t)

	var binTarget *unit.Target
	for _, p := range packages.Iter() {
		if p.Name() == "app" {
			binTarget, _ = p.TargetByName("app")
		}
	}
	require.NotNil(t, binTarget)

	layout := unit.NewLayout(t.TempDir(), unit.Profile{DirName: "debug"}, "")
	cx, err := executorNew(t, layout, packages, []*unit.Target{binTarget})
	require.NoError(t, err)

	deps := cx.targetDeps[binTarget]
	require.Len(t, deps.Libs, 1)
	require.Len(t, deps.Includes, 1)
	assert.Contains(t, deps.Includes[0], "include")
}

func TestUnitGraphOrdersLibraryBeforeDependent(t *testing.T) {
	packages := libAndBin(t)

	var libTarget, binTarget *unit.Target
	for _, p := range packages.Iter() {
		switch p.Name() {
		case "core":
			libTarget, _ = p.TargetByName("core")
		case "app":
			binTarget, _ = p.TargetByName("app")
		}
	}
	require.NotNil(t, libTarget)
	require.NotNil(t, binTarget)

	layout := unit.NewLayout(t.TempDir(), unit.Profile{DirName: "debug"}, "")
	cx, err := executorNew(t, layout, packages, []*unit.Target{binTarget})
	require.NoError(t, err)

	stages := cx.UnitGraph.ParallelStages()
	require.NotEmpty(t, stages)
	libStage, binStage := -1, -1
	for i, stage := range stages {
		for _, u := range stage {
			if t, ok := u.AsTarget(); ok && t == libTarget {
				libStage = i
			}
			if t, ok := u.AsTarget(); ok && t == binTarget {
				binStage = i
			}
		}
	}
	assert.True(t, libStage >= 0 && binStage >= 0)
	assert.Less(t, libStage, binStage, "core must be built before app depends on it")
}

func executorNew(t *testing.T, layout unit.Layout, packages *unit.PackageMap, selected []*unit.Target) (*Context, error) {
	t.Helper()
	return New(layout, testToolchain(t), unit.Profile{DirName: "debug"}, packages, selected)
}
