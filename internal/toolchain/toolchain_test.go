package toolchain

import (
	"testing"

	"ccargo/internal/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionsForTriples(t *testing.T) {
	assert.Equal(t, BinExt{Static: ".lib", Shared: ".dll", Exe: ".exe"}, ExtensionsFor("x86_64-pc-windows-msvc"))
	assert.Equal(t, BinExt{Static: ".a", Shared: ".dylib", Exe: ""}, ExtensionsFor("aarch64-apple-darwin"))
	assert.Equal(t, BinExt{Static: ".a", Shared: ".so", Exe: ""}, ExtensionsFor("x86_64-unknown-linux-gnu"))
}

func TestValidateTarget(t *testing.T) {
	require.NoError(t, ValidateTarget("x86_64-unknown-linux-gnu"))
	require.Error(t, ValidateTarget("garbage"))
}

func TestClassifyFamily(t *testing.T) {
	assert.Equal(t, Msvc, classifyFamily(`C:\tools\cl.exe`))
	assert.Equal(t, Clang, classifyFamily("/usr/bin/clang++"))
	assert.Equal(t, Gnu, classifyFamily("/usr/bin/x86_64-linux-gnu-gcc-12"))
}

func TestResolveCompilerUserPathMustExist(t *testing.T) {
	_, err := resolveCompiler(HostTriple(), unit.LangC, "/nonexistent/path/to/cc")
	require.Error(t, err)
}

func TestToolCloneIsIndependent(t *testing.T) {
	cc := NewTool(KindCompiler, Gnu, "/usr/bin/gcc").Arg("-O2")
	ld := cc.Clone(KindLinker)
	ld.Arg("-shared")
	assert.Equal(t, []string{"-O2"}, cc.Args())
	assert.Equal(t, []string{"-O2", "-shared"}, ld.Args())
	assert.Equal(t, KindLinker, ld.Kind())
}

func TestAddWarningsGnuLevels(t *testing.T) {
	tool := NewTool(KindCompiler, Gnu, "/usr/bin/gcc")
	AddWarnings(tool, unit.Warnings{Level: unit.WarnExtra, Errors: false})
	assert.Contains(t, tool.Args(), "-Wall")
	assert.Contains(t, tool.Args(), "-Wextra")
	assert.Contains(t, tool.Args(), "-Wpedantic")
	assert.NotContains(t, tool.Args(), "-Wconversion")
}

func TestAddWarningsMsvc(t *testing.T) {
	tool := NewTool(KindCompiler, Msvc, `C:\cl.exe`)
	AddWarnings(tool, unit.Warnings{Level: unit.WarnAll, Errors: true})
	assert.Contains(t, tool.Args(), "-Wall")
	assert.Contains(t, tool.Args(), "-WX")
}

func TestAddOptLevelFlagsMsvcCapsO3ToO2(t *testing.T) {
	tool := NewTool(KindCompiler, Msvc, `C:\cl.exe`)
	AddOptLevelFlags(tool, unit.OptO3)
	assert.Contains(t, tool.Args(), "-O2")
}

func TestAddLtoFlagsClangSkipsWindows(t *testing.T) {
	tool := NewTool(KindCompiler, Clang, "/usr/bin/clang")
	AddLtoFlags(tool, unit.LtoThin, "x86_64-pc-windows-msvc")
	assert.Empty(t, tool.Args())
}

func TestDefaultCompileFlagsPicOnSharedUnix(t *testing.T) {
	ctx := FlagContext{
		Target:  "x86_64-unknown-linux-gnu",
		Options: unit.Options{Unix: unit.DefaultUnixFlags()},
		Profile: unit.Profile{OptLevel: unit.OptO2},
		Kind:    unit.Shared,
	}
	tool := NewTool(KindCompiler, Gnu, "/usr/bin/gcc")
	ctx.AddDefaultCompileFlags(tool, unit.LangCxx)
	assert.Contains(t, tool.Args(), "-fPIC")
	assert.Contains(t, tool.Args(), "-fvisibility-inlines-hidden")
}

func TestOutputArtifactsMsvcSharedDebug(t *testing.T) {
	profile := unit.Profile{Debug: true, Incremental: true, OptLevel: unit.OptO0}
	arts := OutputArtifacts(Msvc, "x86_64-pc-windows-msvc", unit.Shared, profile)
	assert.Contains(t, arts, ArtifactPdb)
	assert.Contains(t, arts, ArtifactIlk)
	assert.Contains(t, arts, ArtifactLib)
	assert.Contains(t, arts, ArtifactExp)
}
