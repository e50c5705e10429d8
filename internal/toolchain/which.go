package toolchain

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func osEnviron() []string { return os.Environ() }

var (
	whichMu    sync.Mutex
	whichCache = map[string]string{}
)

// Which searches PATH for an executable named name, appending the
// platform executable extension on Windows, and memoizes the result in
// a process-global cache (spec.md §5: "PATH-searched tool discovery...
// caches: global mutex-guarded maps populated lazily").
//
// The underlying filesystem probe is retried with a short exponential
// backoff: on heavily loaded CI filesystems, a transient stat failure on
// a PATH entry (e.g. a network-mounted toolchain directory) should not
// be mistaken for "tool genuinely absent".
func Which(name string) (string, bool) {
	whichMu.Lock()
	if p, ok := whichCache[name]; ok {
		whichMu.Unlock()
		return p, p != ""
	}
	whichMu.Unlock()

	path := which(name)

	whichMu.Lock()
	whichCache[name] = path
	whichMu.Unlock()
	return path, path != ""
}

func which(name string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var found string
	operation := func() error {
		found = lookPath(name)
		if found == "" {
			return exec.ErrNotFound
		}
		return nil
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	_ = backoff.Retry(operation, backoff.WithContext(b, ctx))
	return found
}

func lookPath(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		for _, ext := range []string{".exe", ".cmd", ".bat"} {
			if p, err := exec.LookPath(name + ext); err == nil {
				return p
			}
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return ""
}

// ClearWhichCache resets the memoized PATH lookups, so later Which calls
// probe PATH again.
func ClearWhichCache() {
	whichMu.Lock()
	defer whichMu.Unlock()
	whichCache = map[string]string{}
}

// classifyFamily detects a tool's family from its resolved executable
// path: "cl"/"cl.exe" is MSVC; a basename containing "clang" is Clang;
// "cc"/"c++" are canonicalized through symlinks before classification
// (a symlink named `cc` commonly points at the real `gcc` or `clang`);
// anything else is GNU.
func classifyFamily(path string) Family {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(path, "\\", "/")))
	base = strings.TrimSuffix(base, ".exe")

	if base == "cl" {
		return Msvc
	}
	if strings.Contains(base, "clang") {
		return Clang
	}
	if base == "cc" || base == "c++" {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return classifyFamily(resolved)
		}
	}
	return Gnu
}
