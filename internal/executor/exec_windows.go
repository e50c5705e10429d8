//go:build windows

package executor

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// execReplace has no true process-replacement equivalent on Windows, so
// it spawns path as a child inheriting this process's stdio, waits for
// it, and exits with its status code — the closest approximation to
// exec_replace's observable behavior available on this platform.
func execReplace(path string, extraArgs []string) error {
	cmd := exec.Command(path, extraArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return errors.Wrapf(err, "failed to execute %q", path)
	}
	os.Exit(0)
	return nil
}
