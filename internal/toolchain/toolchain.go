package toolchain

import (
	"os"
	"strings"
	"sync"

	"ccargo/internal/ccerr"
	"ccargo/internal/unit"
)

// Toolchain binds a target triple to up to two Tools triples (one per
// language): compiler, linker, archiver.
type Toolchain struct {
	target string
	c      *Tools // nil if C is unsupported for this target
	cxx    *Tools // nil if C++ is unsupported for this target
}

// Options configures toolchain construction with optional user-provided
// compiler paths, matching spec.md §4.C's construction rules.
type Options struct {
	Target   string // empty means host
	CCPath   string // user override; must exist if set
	CXXPath  string // user override; must exist if set
}

// New resolves a Toolchain for opts.Target (or the host triple if
// empty), applying the rules from spec.md §4.C:
//
//   - a user-provided compiler path must resolve to an existing
//     executable;
//   - if neither C nor C++ tools are resolvable, construction fails with
//     a "tool not found" error enumerating both failure reasons;
//   - when only one of the two resolves, C falls back to the C++ tools
//     for C-only compilation.
func New(opts Options) (*Toolchain, error) {
	target := opts.Target
	if target == "" {
		target = HostTriple()
	}
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}

	cTools, cErr := resolveTools(target, unit.LangC, opts.CCPath)
	cxxTools, cxxErr := resolveTools(target, unit.LangCxx, opts.CXXPath)

	if cErr != nil && cxxErr != nil {
		return nil, ccerr.NotFound(
			"failed to find a usable toolchain for target `%s`: C: %s; C++: %s",
			target, cErr, cxxErr,
		)
	}

	tc := &Toolchain{target: target, c: cTools, cxx: cxxTools}
	return tc, nil
}

// NewHost is a convenience wrapper for New with the host triple and no
// user overrides.
func NewHost() (*Toolchain, error) {
	return New(Options{})
}

func (t *Toolchain) Target() string { return t.target }

// Supports reports whether lang has a resolvable compiler (directly, or
// via the C-falls-back-to-C++ rule).
func (t *Toolchain) Supports(lang unit.Language) bool {
	_, ok := t.ToolsFor(lang)
	return ok
}

// ToolsFor returns the Tools triple to use for lang: its own tools if
// present, else (for C only) the C++ tools.
func (t *Toolchain) ToolsFor(lang unit.Language) (*Tools, bool) {
	if lang.IsC() {
		if t.c != nil {
			return t.c, true
		}
		if t.cxx != nil {
			return t.cxx, true
		}
		return nil, false
	}
	if t.cxx != nil {
		return t.cxx, true
	}
	return nil, false
}

func resolveTools(target string, lang unit.Language, userPath string) (*Tools, error) {
	cc, err := resolveCompiler(target, lang, userPath)
	if err != nil {
		return nil, err
	}

	ld, err := resolveLinker(target, cc)
	if err != nil {
		return nil, ccerr.NotFound("failed to find %s linker for target `%s`: %s", lang, target, err)
	}

	ar, err := resolveArchiver(target, cc.Family())
	if err != nil {
		return nil, ccerr.NotFound("failed to find %s static archiver for target `%s`: %s", lang, target, err)
	}

	return &Tools{CC: cc, LD: ld, AR: ar}, nil
}

func resolveCompiler(target string, lang unit.Language, userPath string) (*Tool, error) {
	if userPath != "" {
		if _, err := os.Stat(userPath); err != nil {
			return nil, ccerr.NotFound("user-provided %s compiler `%s` does not exist", lang, userPath)
		}
		return NewTool(KindCompiler, classifyFamily(userPath), userPath), nil
	}

	if IsMsvcTriple(target) {
		if path, ok := Which("cl.exe"); ok {
			return NewTool(KindCompiler, Msvc, path), nil
		}
		return nil, ccerr.NotFound("failed to find tool. Is `cl.exe` installed?")
	}

	// Prefer clang, then the triple-prefixed cross gcc/g++, then a bare
	// cc/c++ on the host.
	clangName := "clang"
	gccName := "gcc"
	if lang.IsCxx() {
		clangName = "clang++"
		gccName = "g++"
	}
	if path, ok := Which(clangName); ok {
		return NewTool(KindCompiler, Clang, path), nil
	}
	if target != HostTriple() {
		if _, path, ok := findWorkingGnuPrefix(crossPrefixesFor(target), lang.IsCxx()); ok {
			return NewTool(KindCompiler, Gnu, path), nil
		}
	}
	if path, ok := Which(gccName); ok {
		return NewTool(KindCompiler, classifyFamily(path), path), nil
	}
	bare := "cc"
	if lang.IsCxx() {
		bare = "c++"
	}
	if path, ok := Which(bare); ok {
		return NewTool(KindCompiler, classifyFamily(path), path), nil
	}

	return nil, ccerr.NotFound("failed to find tool. Is a %s compiler installed?", lang)
}

func resolveLinker(target string, cc *Tool) (*Tool, error) {
	if cc.Family().IsMsvc() {
		if path, ok := Which("link.exe"); ok {
			return NewTool(KindLinker, Msvc, path), nil
		}
		return nil, ccerr.NotFound("failed to find tool. Is `link.exe` installed?")
	}
	// GNU/Clang: the compiler executable is the linker driver.
	return cc.Clone(KindLinker), nil
}

func resolveArchiver(target string, family Family) (*Tool, error) {
	if family.IsMsvc() {
		if path, ok := Which("lib.exe"); ok {
			return NewTool(KindArchiver, Msvc, path), nil
		}
		return nil, ccerr.NotFound("failed to find tool. Is `lib.exe` installed?")
	}

	names := []string{"ar", "gcc-ar"}
	if target != HostTriple() {
		var prefixed []string
		for _, prefix := range crossPrefixesFor(target) {
			prefixed = append(prefixed, prefix+"-ar", prefix+"-gcc-ar")
		}
		names = append(prefixed, names...)
	}
	for _, name := range names {
		if path, ok := Which(name); ok {
			return NewTool(KindArchiver, family, path), nil
		}
	}
	return nil, ccerr.NotFound("failed to find tool. Is `ar` installed?")
}

// appleSDKRoots is the lazily-populated Apple SDK root cache, guarded by mu.
var appleSDKRoots = struct {
	mu     sync.Mutex
	values map[string]string
}{values: map[string]string{}}

// AppleSDKRoot resolves SDKROOT for the given SDK name (e.g. "iphoneos",
// "macosx") from the SDKROOT environment variable, caching the result per
// name. xcrun is not consulted; an unset SDKROOT is an error.
func AppleSDKRoot(sdk string) (string, error) {
	appleSDKRoots.mu.Lock()
	defer appleSDKRoots.mu.Unlock()
	if v, ok := appleSDKRoots.values[sdk]; ok {
		return v, nil
	}
	if root := os.Getenv("SDKROOT"); root != "" {
		appleSDKRoots.values[sdk] = root
		return root, nil
	}
	return "", ccerr.EnvNotFound("SDKROOT")
}

// ZeroArDate sets ZERO_AR_DATE=1 on an archiver Tool's environment when
// targeting macOS, for reproducible `ar` archive timestamps.
func ZeroArDate(t *Tool, target string) {
	if IsAppleTriple(target) && !strings.Contains(target, "ios") {
		t.Env("ZERO_AR_DATE", "1")
	}
}
