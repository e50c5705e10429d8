package build

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
	// /bin/echo stands in for a real compiler: these tests only exercise
	// path/flag computation, never actually invoking the resolved tool.
	tc, err := toolchain.New(toolchain.Options{CCPath: "/bin/echo", CXXPath: "/bin/echo"})
	require.NoError(t, err)
	return tc
}

func TestObjectPathsHashesNestedDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "nested", "a.cpp"), []byte("// a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "b.cpp"), []byte("// b"), 0o644))

	b := NewBuilder("mylib", unit.Static, testToolchain(t))
	b.SrcDir = filepath.Join(dir, "src")
	b.OutDir = filepath.Join(dir, "out")
	b.Files = []string{"nested/a.cpp", "b.cpp"}

	objs, err := b.objectPaths()
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.NotEqual(t, objs[0].Dst, objs[1].Dst)
	assert.Equal(t, ".o", filepath.Ext(objs[0].Dst))
	assert.Equal(t, filepath.Join(b.SrcDir, "nested/a.cpp"), objs[0].Src)
	// the flattened top-level file keeps its plain name
	assert.Equal(t, "b.o", filepath.Base(objs[1].Dst))
}

func TestObjectPathsMissingSourceErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	b := NewBuilder("mylib", unit.Static, testToolchain(t))
	b.SrcDir = dir
	b.OutDir = filepath.Join(dir, "out")
	b.Files = []string{"missing.cpp"}

	_, err := b.objectPaths()
	require.Error(t, err)
}

func TestOutputNamePerKind(t *testing.T) {
	tc := testToolchain(t)
	static := NewBuilder("foo", unit.Static, tc)
	shared := NewBuilder("foo", unit.Shared, tc)
	bin := NewBuilder("foo", unit.Bin, tc)

	ext := toolchain.ExtensionsFor(tc.Target())
	assert.Equal(t, "foo"+ext.Static, static.outputName())
	assert.Equal(t, "foo"+ext.Shared, shared.outputName())
	assert.Equal(t, "foo"+ext.Exe, bin.outputName())
}

func TestStaticCrtInfersFromSharedLibraryExtension(t *testing.T) {
	tc := testToolchain(t)
	b := NewBuilder("foo", unit.Bin, tc)
	assert.True(t, b.staticCrt(), "no shared libs linked means static by default")

	b.Libraries = []string{"libfoo" + toolchain.ExtensionsFor(tc.Target()).Shared}
	assert.False(t, b.staticCrt())
}

func TestDetectLanguagePrefersCxxWhenMixed(t *testing.T) {
	b := NewBuilder("foo", unit.Bin, testToolchain(t))
	b.Files = []string{"a.c", "b.cpp"}
	assert.True(t, b.detectLanguage().IsCxx())

	b.Files = []string{"a.c", "b.c"}
	assert.True(t, b.detectLanguage().IsC())
}
