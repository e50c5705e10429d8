package unit

// Language is the source language dispatched on by file extension.
type Language int

const (
	LangCxx Language = iota // default
	LangC
)

func (l Language) IsC() bool   { return l == LangC }
func (l Language) IsCxx() bool { return l == LangCxx }

func (l Language) String() string {
	if l.IsC() {
		return "c"
	}
	return "c++"
}

// DetectLanguage classifies a source path by extension: ".c"/".S"/".asm"
// are C, everything else is treated as C++.
func DetectLanguage(path string) Language {
	for _, ext := range []string{".c", ".S", ".asm"} {
		if hasSuffixFold(path, ext) {
			return LangC
		}
	}
	return LangCxx
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	return tail == suffix
}

// StdC enumerates C standard versions.
type StdC int

const (
	StdC89 StdC = iota
	StdC99
	StdC11 // default
	StdC17
	StdC20
)

// StdCxx enumerates C++ standard versions.
type StdCxx int

const (
	StdCxx98 StdCxx = iota
	StdCxx11
	StdCxx14
	StdCxx17 // default
	StdCxx20
)

// Std bundles the language standard selection.
type Std struct {
	C         StdC
	Cxx       StdCxx
	CxxStdlib string // e.g. "libc++", "libstdc++"; empty means toolchain default
	Gnu       bool   // use the GNU dialect (-std=gnu++17 vs -std=c++17)
}

// Crt selects C-runtime linkage.
type Crt int

const (
	CrtDefault Crt = iota // infer static when no shared library is linked
	CrtStatic
	CrtShared
)

// WarningLevel enumerates escalating warning verbosity.
type WarningLevel int

const (
	WarnNone WarningLevel = iota
	WarnDefault
	WarnExtra
	WarnAll
)

// Warnings bundles warning-level configuration.
type Warnings struct {
	Level  WarningLevel
	Errors bool // treat warnings as errors
	Extra  []string
}

// FlagSet is an ordered list of extra user flags, passed to the tool as
// given; duplicate flags are neither detected nor reported.
type FlagSet = []string

// Options is an immutable per-target build configuration.
type Options struct {
	Std      Std
	Crt      Crt
	Warnings Warnings
	Defines  FlagSet
	CCFlags  FlagSet
	LDFlags  FlagSet
	ARFlags  FlagSet
	AsmFlags FlagSet
	Unix     UnixFlags
}

// UnixFlags are Unix-specific codegen toggles.
type UnixFlags struct {
	Pic                bool // default true
	Plt                bool // default true
	ForceFramePointer  bool // default false
}

// DefaultUnixFlags returns the spec's documented defaults.
func DefaultUnixFlags() UnixFlags {
	return UnixFlags{Pic: true, Plt: true, ForceFramePointer: false}
}
