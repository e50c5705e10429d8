package toolchain

import (
	"runtime"
	"strings"

	"ccargo/internal/ccerr"
)

// HostTriple returns the detected host target triple.
func HostTriple() string {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "x86_64-pc-windows-msvc"
		}
		return "i686-pc-windows-msvc"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "aarch64-apple-darwin"
		}
		return "x86_64-apple-darwin"
	default:
		switch runtime.GOARCH {
		case "arm64":
			return "aarch64-unknown-linux-gnu"
		case "amd64":
			return "x86_64-unknown-linux-gnu"
		default:
			return "i686-unknown-linux-gnu"
		}
	}
}

// BinExt enumerates the binary-kind extensions a target triple produces.
type BinExt struct {
	Static, Shared, Exe string
}

// ExtensionsFor returns the {static, shared, exe} extension table for a
// triple: Windows -> lib/dll/exe; Apple -> a/dylib/(none); other Unix ->
// a/so/(none).
func ExtensionsFor(triple string) BinExt {
	switch {
	case strings.Contains(triple, "windows"):
		return BinExt{Static: ".lib", Shared: ".dll", Exe: ".exe"}
	case strings.Contains(triple, "apple"):
		return BinExt{Static: ".a", Shared: ".dylib", Exe: ""}
	default:
		return BinExt{Static: ".a", Shared: ".so", Exe: ""}
	}
}

// IsWindows / IsApple / IsAndroid are small triple-substring predicates
// used throughout the flag translator.
func IsWindowsTriple(t string) bool { return strings.Contains(t, "windows") }
func IsAppleTriple(t string) bool   { return strings.Contains(t, "apple") }
func IsAndroidTriple(t string) bool { return strings.Contains(t, "android") }
func IsMsvcTriple(t string) bool    { return strings.Contains(t, "msvc") }
func IsArmTriple(t string) bool {
	return strings.Contains(t, "arm") || strings.Contains(t, "aarch64")
}
func IsRiscvTriple(t string) bool { return strings.Contains(t, "riscv") }
func IsBsdTriple(t string) bool {
	return strings.Contains(t, "bsd")
}

// crossPrefixesFor returns candidate GNU cross-toolchain binary
// prefixes for a non-host target triple, derived from the triple
// itself (the classic "<triple>-gcc" convention) plus any known
// aliases. When cross-compiling, multiple candidate prefixes may exist;
// callers probe each by appending "-gcc"/"-g++" and keep the first on
// PATH.
func crossPrefixesFor(triple string) []string {
	prefixes := []string{triple}
	switch {
	case strings.HasPrefix(triple, "armv7-") || strings.HasPrefix(triple, "arm-"):
		prefixes = append(prefixes, "arm-linux-gnueabihf", "arm-none-eabi")
	case strings.HasPrefix(triple, "aarch64-"):
		prefixes = append(prefixes, "aarch64-linux-gnu")
	case strings.HasPrefix(triple, "riscv64-") || strings.HasPrefix(triple, "riscv32-"):
		prefixes = append(prefixes, "riscv64-unknown-linux-gnu", "riscv32-unknown-elf")
	}
	return prefixes
}

// findWorkingGnuPrefix probes each candidate prefix for "<prefix>-gcc"
// (C) or "<prefix>-g++" (C++), returning the first one found on PATH.
func findWorkingGnuPrefix(prefixes []string, isCxx bool) (prefix, path string, ok bool) {
	suffix := "-gcc"
	if isCxx {
		suffix = "-g++"
	}
	for _, p := range prefixes {
		if path, found := Which(p + suffix); found {
			return p, path, true
		}
	}
	return "", "", false
}

// ValidateTarget errors if triple isn't a recognized target; ccargo
// accepts any triple that parses as "<arch>-<vendor>-<os>[-<env>]"
// rather than maintaining an exhaustive allow-list, since new triples
// are added upstream faster than any static list could track.
func ValidateTarget(triple string) error {
	if strings.Count(triple, "-") < 2 {
		return ccerr.InvalidArch("invalid target triple `%s`: expected `<arch>-<vendor>-<os>[-<env>]`", triple)
	}
	return nil
}
