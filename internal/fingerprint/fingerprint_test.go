package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccargo/internal/ccpath"
	"ccargo/internal/depinfo"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

func testToolchain(t *testing.T) *toolchain.Toolchain {
	t.Helper()
	tc, err := toolchain.New(toolchain.Options{CCPath: "/bin/echo", CXXPath: "/bin/echo"})
	require.NoError(t, err)
	return tc
}

// stubResolver is a minimal Resolver with no dependency edges, enough to
// drive Target fingerprint calculation end to end.
type stubResolver struct {
	io map[*unit.Target]TargetIO
}

func (s *stubResolver) UnitWithOutput(string) (unit.Unit, bool) { return unit.Unit{}, false }
func (s *stubResolver) UnitNamed(unit.TargetName, unit.PackageId) (unit.Unit, bool) {
	return unit.Unit{}, false
}
func (s *stubResolver) TargetDeps(*unit.Target) Deps { return Deps{} }
func (s *stubResolver) TargetOutput(t *unit.Target) TargetIO { return s.io[t] }

func newTestTarget(t *testing.T, root string) (*unit.Target, unit.Layout, *stubResolver) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.c"), []byte("int main(){return 0;}"), 0o644))

	pkg := unit.NewPackageId("demo", nil, unit.NewSourceId(root))
	target := &unit.Target{
		Name:    "demo",
		Package: pkg,
		Kind:    unit.Bin,
		Sources: []string{filepath.Join(root, "a.c")},
	}
	layout := unit.NewLayout(root, unit.Profile{DirName: "debug"}, "")
	output := filepath.Join(layout.OutputDir(pkg), "demo")
	resolver := &stubResolver{io: map[*unit.Target]TargetIO{
		target: {Output: output},
	}}
	return target, layout, resolver
}

// writeEmptyDepInfo satisfies the target's CheckDepInfo local fingerprint
// entry with a valid-but-empty dep-info blob, so check_filesystem's
// dep-info pass finds nothing stale.
func writeEmptyDepInfo(t *testing.T, target *unit.Target, layout unit.Layout) {
	t.Helper()
	path := target.DepInfoPath(layout)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, depinfo.New().Serialize(), 0o644))
}

func TestPrepareIsDirtyOnFirstRun(t *testing.T) {
	root := t.TempDir()
	target, layout, resolver := newTestTarget(t, root)
	writeEmptyDepInfo(t, target, layout)

	calc := NewCalculator(layout, testToolchain(t), unit.Profile{DirName: "debug"}, resolver)
	fp, fresh, state, err := calc.Prepare(unit.FromTarget(target), target.FingerprintPath(layout))
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.False(t, state.IsFresh())
	assert.NotNil(t, fp)
}

func TestPrepareIsFreshAfterWriteToDiskAndUnchangedOutput(t *testing.T) {
	root := t.TempDir()
	target, layout, resolver := newTestTarget(t, root)
	writeEmptyDepInfo(t, target, layout)
	profile := unit.Profile{DirName: "debug"}

	io := resolver.io[target]
	require.NoError(t, os.MkdirAll(filepath.Dir(io.Output), 0o755))
	require.NoError(t, os.WriteFile(io.Output, []byte("binary"), 0o755))

	fpPath := target.FingerprintPath(layout)

	calc1 := NewCalculator(layout, testToolchain(t), profile, resolver)
	fp1, _, _, err := calc1.Prepare(unit.FromTarget(target), fpPath)
	require.NoError(t, err)
	require.NoError(t, WriteToDisk(fp1, fpPath))

	calc2 := NewCalculator(layout, testToolchain(t), profile, resolver)
	_, fresh2, _, err := calc2.Prepare(unit.FromTarget(target), fpPath)
	require.NoError(t, err)
	assert.True(t, fresh2, "unchanged inputs/outputs should report fresh on the second run")
}

func TestPrepareDetectsCompilerChange(t *testing.T) {
	root := t.TempDir()
	target, layout, resolver := newTestTarget(t, root)
	writeEmptyDepInfo(t, target, layout)
	profile := unit.Profile{DirName: "debug"}

	io := resolver.io[target]
	require.NoError(t, os.MkdirAll(filepath.Dir(io.Output), 0o755))
	require.NoError(t, os.WriteFile(io.Output, []byte("binary"), 0o755))

	fpPath := target.FingerprintPath(layout)
	calc1 := NewCalculator(layout, testToolchain(t), profile, resolver)
	fp1, _, _, err := calc1.Prepare(unit.FromTarget(target), fpPath)
	require.NoError(t, err)
	require.NoError(t, WriteToDisk(fp1, fpPath))

	otherTc, err := toolchain.New(toolchain.Options{CCPath: "/bin/cat", CXXPath: "/bin/cat"})
	require.NoError(t, err)
	calc2 := NewCalculator(layout, otherTc, profile, resolver)
	_, fresh2, _, err := calc2.Prepare(unit.FromTarget(target), fpPath)
	require.NoError(t, err)
	assert.False(t, fresh2, "switching compilers should force a rebuild")
}

func TestFingerprintHashExcludesOutputsAndFsStatus(t *testing.T) {
	base := &Fingerprint{CompilerHash: 1, TargetHash: 2, ProfileHash: 3}
	variant := &Fingerprint{CompilerHash: 1, TargetHash: 2, ProfileHash: 3, Outputs: []string{"/different"}, FsStatus: FsStatus{kind: fsUpToDate}}
	assert.Equal(t, base.HashU64(), variant.HashU64())
}

func TestFingerprintHashChangesWithLocal(t *testing.T) {
	a := &Fingerprint{CompilerHash: 1, Local: []LocalFingerprint{{Kind: KindCheckDepInfo, DepInfo: "x.d", CheckAll: true}}}
	b := &Fingerprint{CompilerHash: 1, Local: []LocalFingerprint{{Kind: KindCheckDepInfo, DepInfo: "y.d", CheckAll: true}}}
	assert.NotEqual(t, a.HashU64(), b.HashU64())
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	fp := &Fingerprint{
		CompilerHash: 10,
		TargetHash:   20,
		ProfileHash:  30,
		Local: []LocalFingerprint{
			{Kind: KindCheckDepInfo, DepInfo: "a.d", CheckAll: true},
			{Kind: KindRerunIfChanged, Output: "out", Paths: []string{"p1", "p2"}},
		},
		Deps: []DepFingerprint{
			{PkgID: 5, Name: "pkg::lib", Fingerprint: &Fingerprint{CompilerHash: 99}},
		},
	}

	bytes := fp.serialize()
	got, ok := deserializeFingerprint(ccpath.NewBinaryReader(bytes))
	require.True(t, ok)
	assert.Equal(t, fp.HashU64(), got.HashU64())
	assert.Equal(t, fp.Local, got.Local)
	require.Len(t, got.Deps, 1)
	assert.Equal(t, uint64(5), got.Deps[0].PkgID)
	assert.Equal(t, "pkg::lib", got.Deps[0].Name)
}

func TestToHexIsSixteenLowercaseHexDigits(t *testing.T) {
	s := toHex(0x0123456789abcdef)
	assert.Len(t, s, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", s)
}
