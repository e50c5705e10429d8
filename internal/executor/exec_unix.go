//go:build !windows

package executor

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// execReplace replaces the current process image with path, passing
// extraArgs after argv[0] and inheriting the environment — the Unix
// analogue of the original's Command::exec_replace (itself a thin
// wrapper over execvp), so `ccargo run`'s signals, stdio, and exit code
// are all the spawned process's own rather than a supervised child's.
func execReplace(path string, extraArgs []string) error {
	argv := append([]string{path}, extraArgs...)
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return errors.Wrapf(err, "failed to execute %q", path)
	}
	return nil
}
