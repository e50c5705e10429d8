package toolchain

import (
	"fmt"
	"strings"

	"ccargo/internal/unit"
)

// FlagContext bundles everything the flag translator needs to turn a
// semantic Options/Profile pair into family-specific argv. This is
// component C's "meat": every other piece of the toolchain package
// exists to get a Tool of the right Family into this translator's hands.
type FlagContext struct {
	Target   string
	Options  unit.Options
	Profile  unit.Profile
	Kind     unit.TargetKind
	Colored  bool
	SkipDeps bool
}

func (c FlagContext) isShared() bool { return c.Kind == unit.Shared }
func (c FlagContext) isLibrary() bool {
	return c.Kind == unit.Static || c.Kind == unit.Shared
}

// staticCrt mirrors the original's static_crt(): explicit Crt wins, and
// CrtDefault counts as static. The build driver replaces CrtDefault with
// the mode inferred from the target's linked libraries before it builds
// a FlagContext, so that inference is not repeated here.
func (c FlagContext) staticCrt() bool {
	switch c.Options.Crt {
	case unit.CrtStatic:
		return true
	case unit.CrtShared:
		return false
	default:
		return true
	}
}

// AddWarnings appends warning-level argv to tool.
func AddWarnings(tool *Tool, opts unit.Warnings) {
	if tool.Family().IsMsvc() {
		switch opts.Level {
		case unit.WarnNone:
			tool.Arg("-W0")
		case unit.WarnDefault:
			tool.Arg("-W3")
		case unit.WarnExtra:
			tool.Arg("-W4")
		case unit.WarnAll:
			tool.Arg("-Wall")
		}
		if opts.Errors {
			tool.Arg("-WX")
		}
	} else {
		defaultErrors := []string{"-Wall"}
		extraErrors := []string{"-Wextra", "-Wpedantic"}
		allErrors := []string{"-Wconversion"}

		var groups [][]string
		switch opts.Level {
		case unit.WarnDefault:
			groups = [][]string{defaultErrors}
		case unit.WarnExtra:
			groups = [][]string{defaultErrors, extraErrors}
		case unit.WarnAll:
			groups = [][]string{defaultErrors, extraErrors, allErrors}
		}
		for _, group := range groups {
			tool.AddArgs(group...)
		}
	}
	tool.AddArgs(opts.Extra...)
}

func stdCNum(s unit.StdC) string {
	switch s {
	case unit.StdC89:
		return "89"
	case unit.StdC99:
		return "99"
	case unit.StdC17:
		return "17"
	case unit.StdC20:
		return "2x"
	default:
		return "11"
	}
}

func stdCxxNum(s unit.StdCxx) string {
	switch s {
	case unit.StdCxx98:
		return "98"
	case unit.StdCxx11:
		return "11"
	case unit.StdCxx14:
		return "14"
	case unit.StdCxx20:
		return "20"
	default:
		return "17"
	}
}

// AddStandardFlags appends the -std=/-std: flag for lang, skipping MSVC
// targets whose requested standard predates what /std: supports.
func AddStandardFlags(tool *Tool, std unit.Std, lang unit.Language) {
	var num, prefix string
	if lang.IsC() {
		num = stdCNum(std.C)
		if std.Gnu {
			prefix = "gnu"
		} else {
			prefix = "c"
		}
	} else {
		num = stdCxxNum(std.Cxx)
		if std.Gnu {
			prefix = "gnu++"
		} else {
			prefix = "c++"
		}
	}

	sep := "="
	supported := true
	if tool.Family().IsMsvc() {
		sep = ":"
		if lang.IsC() {
			supported = std.C == unit.StdC11 || std.C == unit.StdC17
		} else {
			supported = std.Cxx == unit.StdCxx14 || std.Cxx == unit.StdCxx17 || std.Cxx == unit.StdCxx20
		}
	}
	if supported {
		tool.Arg(fmt.Sprintf("-std%s%s%s", sep, prefix, num))
	}
}

// AddCxxStdlibFlags appends -stdlib=lib<name> for Clang C++ compiles.
func AddCxxStdlibFlags(tool *Tool, std unit.Std, target string) {
	cxx := std.CxxStdlib
	if cxx == "" {
		switch {
		case IsAppleTriple(target), strings.Contains(target, "freebsd"), strings.Contains(target, "openbsd"):
			cxx = "c++"
		case IsAndroidTriple(target):
			cxx = "c++_shared"
		default:
			cxx = "stdc++"
		}
	}
	tool.Arg("-stdlib=lib" + cxx)
}

// DwarfVersion mirrors the original's target-keyed DWARF version table.
func DwarfVersion(target string) (int, bool) {
	switch {
	case IsAndroidTriple(target), IsAppleTriple(target), IsBsdTriple(target),
		strings.Contains(target, "windows-gnu"):
		return 2, true
	case strings.Contains(target, "linux"):
		return 4, true
	default:
		return 0, false
	}
}

// AddDebugFlags appends debug-info argv.
func AddDebugFlags(tool *Tool, target string) {
	if tool.Family().IsMsvc() {
		tool.Arg("-RTC1")
		return
	}
	if v, ok := DwarfVersion(target); ok {
		tool.Arg(fmt.Sprintf("-gdwarf-%d", v))
	} else {
		tool.Arg("-g")
	}
}

// AddOptLevelFlags appends optimization-level argv.
func AddOptLevelFlags(tool *Tool, level unit.OptLevel) {
	if tool.Family().IsMsvc() {
		switch level {
		case unit.OptO0:
			tool.Arg("-Od")
		case unit.OptO2, unit.OptO3:
			tool.Arg("-O2")
		default: // Os, Oz, O1
			tool.Arg("-O1")
		}
		if level == unit.OptO0 || level == unit.OptOs || level == unit.OptOz {
			tool.Arg("-Ob0")
		} else {
			tool.Arg("-Ob2")
		}
		return
	}

	if level == unit.OptOz && !tool.Family().IsClang() {
		// Old Android NDK gcc doesn't support -Oz.
		tool.Arg("-Os")
		return
	}
	switch level {
	case unit.OptO0:
		tool.Arg("-O0")
	case unit.OptO1:
		tool.Arg("-O1")
	case unit.OptO2:
		tool.Arg("-O2")
	case unit.OptO3:
		tool.Arg("-O3")
	case unit.OptOs:
		tool.Arg("-Os")
	case unit.OptOz:
		tool.Arg("-Oz")
	}
}

// AddLtoFlags appends LTO argv, honoring Clang's refusal to LTO on
// Windows and the Thin/Fat distinction.
func AddLtoFlags(tool *Tool, lto unit.LtoMode, target string) {
	if tool.Family().IsMsvc() {
		tool.Arg("-GL").Arg("-LTCG")
		return
	}
	if tool.Family().IsClang() {
		if IsWindowsTriple(target) {
			return
		}
		if lto == unit.LtoThin {
			tool.Arg("-flto=thin")
		} else {
			tool.Arg("-flto")
		}
		return
	}
	tool.Arg("-flto")
}

func msvcArchFlag(target string) string {
	if strings.Contains(target, "x86_64") {
		return "-machine:x64"
	}
	return "-machine:x86"
}

// AddDefaultCompileFlags appends every default compiler argv fragment
// for lang, dispatching on family then layering opt/debug-or-lto/std on
// top, matching the original's add_default_compile_flags ordering.
func (c FlagContext) AddDefaultCompileFlags(tool *Tool, lang unit.Language) {
	target := c.Target

	if tool.Family().IsMsvc() {
		tool.Arg("-nologo").Arg("-Gd").Arg("-fp:precise")
		tool.Arg("-Zc:preprocessor")
		tool.Arg("-Zc:inline").Arg("-Zc:wchar_t").Arg("-Zc:forScope")
		tool.Arg("-external:W3").Arg("-diagnostics:column")
		if lang.IsC() {
			tool.Arg("-TC")
		} else {
			tool.Arg("-TP")
		}
		switch {
		case c.staticCrt() && c.Profile.Debug:
			tool.Arg("-MTd")
		case !c.staticCrt() && c.Profile.Debug:
			tool.Arg("-MDd")
		case c.staticCrt() && !c.Profile.Debug:
			tool.Arg("-MT")
		default:
			tool.Arg("-MD")
		}
		if !c.SkipDeps {
			tool.Arg("-showIncludes")
		}
		if lang.IsCxx() && !c.Profile.Exceptions {
			tool.Arg("-EHsc")
		}
		tool.Arg("-DWIN32").Arg("-D_WINDOWS").Arg("-D_MBCS")
		if c.isShared() {
			tool.Arg("-D_WINDLL").Arg("-D_USRDLL")
		}
	} else {
		tool.Arg("-fvisibility=hidden")
		if lang.IsCxx() {
			tool.Arg("-fvisibility-inlines-hidden")
		}
		if c.Colored {
			if tool.Family().IsClang() {
				tool.Arg("-fcolor-diagnostics").Arg("-fansi-escape-codes")
			} else {
				tool.Arg("-fdiagnostics-color=always")
			}
		}
		if lang.IsCxx() && !c.Profile.Exceptions {
			tool.Arg("-fno-exceptions")
		}
		if tool.Family().IsClang() && IsAndroidTriple(target) {
			tool.Arg("-DANDROID")
		}
		if !strings.Contains(target, "apple-ios") && !strings.Contains(target, "apple-watchos") {
			tool.Arg("-ffunction-sections").Arg("-fdata-sections")
		}
		if !IsWindowsTriple(target) {
			if c.isShared() && c.Options.Unix.Pic {
				tool.Arg("-fPIC")
			}
			if c.Options.Unix.ForceFramePointer {
				tool.Arg("-fno-omit-frame-pointer")
			}
			if strings.Contains(target, "linux") && c.Options.Unix.Pic && !c.Options.Unix.Plt {
				tool.Arg("-fno-plt")
			}
		}
	}

	AddOptLevelFlags(tool, c.Profile.OptLevel)

	if c.Profile.Debug {
		AddDebugFlags(tool, target)
	} else if c.Profile.IsLtoEnabled() {
		AddLtoFlags(tool, c.Profile.Lto, target)
	}

	AddStandardFlags(tool, c.Options.Std, lang)

	if lang.IsCxx() && tool.Family().IsClang() {
		AddCxxStdlibFlags(tool, c.Options.Std, target)
	}
}

// AddDefaultLinkFlags appends every default linker argv fragment.
func (c FlagContext) AddDefaultLinkFlags(tool *Tool) {
	target := c.Target
	if tool.Family().IsMsvc() {
		tool.Arg("-nologo")
		tool.Arg(msvcArchFlag(target))
		tool.Arg("-DYNAMICBASE").Arg("-NXCOMPAT")
		if c.Profile.IsIncremental() {
			tool.Arg("-INCREMENTAL")
		} else {
			tool.Arg("-INCREMENTAL:NO")
		}
		if c.Profile.Debug {
			tool.Arg("-DEBUG")
		}
		if c.isShared() {
			tool.Arg("-DLL")
		}
		if c.Options.Warnings.Errors {
			tool.Arg("-WX")
		}
	} else {
		if c.isShared() {
			tool.Arg("-shared")
		} else if c.staticCrt() {
			tool.Arg("-static")
		}
		if c.Options.Warnings.Errors {
			tool.Arg("--fatal-warnings")
		}
		if !IsWindowsTriple(target) {
			if c.Profile.IsLtoEnabled() {
				AddLtoFlags(tool, c.Profile.Lto, target)
			}
			if c.isShared() && c.Options.Unix.Pic {
				tool.Arg("-fPIC")
			}
			if !c.isLibrary() && c.Profile.Rpath != "" {
				tool.Arg(fmt.Sprintf("-Wl,-rpath,%s", c.Profile.Rpath))
			}
		}
	}
}

// Artifact enumerates the side files a compile/link step may produce
// beyond its primary output (MSVC .pdb/.ilk, Apple .dSYM, import libs).
type Artifact int

const (
	ArtifactPdb Artifact = iota
	ArtifactIlk
	ArtifactLib // MSVC import library
	ArtifactExp // MSVC export file
	ArtifactDsym
)

func (a Artifact) Ext() string {
	switch a {
	case ArtifactPdb:
		return ".pdb"
	case ArtifactIlk:
		return ".ilk"
	case ArtifactLib:
		return ".lib"
	case ArtifactExp:
		return ".exp"
	case ArtifactDsym:
		return ".dSYM"
	default:
		return ""
	}
}

func (a Artifact) IsDebugInfo() bool { return a == ArtifactPdb || a == ArtifactDsym }
func (a Artifact) IsAuxiliary() bool { return a == ArtifactIlk || a == ArtifactExp }

// OutputArtifacts lists the side-file kinds expected for a given family
// and bin kind, mirroring the original's artifact enumeration: MSVC
// debug builds get .pdb (+.ilk if incremental); MSVC shared libraries
// get .lib/.exp; Apple debug non-static binaries get a .dSYM bundle.
func OutputArtifacts(family Family, target string, kind unit.TargetKind, profile unit.Profile) []Artifact {
	var out []Artifact
	if family.IsMsvc() && profile.Debug {
		out = append(out, ArtifactPdb)
		if profile.IsIncremental() {
			out = append(out, ArtifactIlk)
		}
	}
	if family.IsMsvc() && kind == unit.Shared {
		out = append(out, ArtifactLib, ArtifactExp)
	}
	if IsAppleTriple(target) && profile.Debug && kind != unit.Static {
		out = append(out, ArtifactDsym)
	}
	return out
}
