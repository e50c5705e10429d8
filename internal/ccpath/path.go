// Package ccpath provides path normalization, mtime caching, and small
// filesystem helpers shared across the build engine.
package ccpath

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Normalize resolves "." and ".." components lexically without touching
// the filesystem. It mirrors filepath.Clean's component algorithm but
// never consults the OS, matching ccargo's historical behavior of
// normalizing paths that may not exist yet (generated outputs, for
// instance).
func Normalize(p string) string {
	sep := string(os.PathSeparator)
	isAbs := filepath.IsAbs(p)
	parts := strings.Split(filepath.ToSlash(p), "/")

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
				continue
			}
			if isAbs {
				continue
			}
			out = append(out, part)
		default:
			out = append(out, part)
		}
	}

	joined := strings.Join(out, sep)
	if isAbs {
		return sep + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// Abs joins p onto cwd (if p is relative) and normalizes the result.
func Abs(p, cwd string) string {
	if filepath.IsAbs(p) {
		return Normalize(p)
	}
	return Normalize(filepath.Join(cwd, p))
}

var (
	mtimeMu    sync.Mutex
	mtimeCache = map[string]time.Time{}
)

// ClearMtimeCache drops all memoized mtimes, so later lookups stat the
// filesystem again.
func ClearMtimeCache() {
	mtimeMu.Lock()
	defer mtimeMu.Unlock()
	mtimeCache = map[string]time.Time{}
}

// InvalidateMtime removes a single cached entry.
func InvalidateMtime(path string) {
	mtimeMu.Lock()
	defer mtimeMu.Unlock()
	delete(mtimeCache, path)
}

// Mtime returns the last-modification time of path, memoized in a
// process-global cache so repeated fingerprint checks against the same
// path are O(1) amortized.
func Mtime(path string) (time.Time, error) {
	mtimeMu.Lock()
	if t, ok := mtimeCache[path]; ok {
		mtimeMu.Unlock()
		return t, nil
	}
	mtimeMu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to stat %q", path)
	}
	t := info.ModTime()

	mtimeMu.Lock()
	mtimeCache[path] = t
	mtimeMu.Unlock()
	return t, nil
}

// Exists reports whether path exists, without caching (existence checks
// bracket a build far less often than mtime checks).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateDirAll wraps os.MkdirAll with a path-bearing error message.
func CreateDirAll(path string) error {
	if err := os.MkdirAll(path, 0o775); err != nil {
		return errors.Wrapf(err, "failed to create directory %q", path)
	}
	return nil
}

// Write atomically-enough writes contents to path (truncating), creating
// parent directories as needed, and wraps any error with the path.
func Write(path string, contents []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := CreateDirAll(dir); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write file %q", path)
	}
	return nil
}

// ReadBytes wraps os.ReadFile with a path-bearing error.
func ReadBytes(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", path)
	}
	return b, nil
}

// ReadString is ReadBytes with a string result.
func ReadString(path string) (string, error) {
	b, err := ReadBytes(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
