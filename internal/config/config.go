// Package config is the ambient collaborator that resolves everything
// the CLI needs before it can even construct a Toolchain or Layout:
// the workspace root, $CCARGO_HOME, a session id, and a leveled logger.
// None of this is part of the core build engine (spec.md §1 carves the
// CLI surface out explicitly); it is the ambient stack SPEC_FULL.md §2.1
// and §3 call for, in the teacher's idiom (hclog-based leveled logging,
// xdg/home-dir resolution).
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Config bundles the resolved ambient state for one CLI invocation.
type Config struct {
	Cwd       string
	Home      string // $CCARGO_HOME, else ~/.ccargo, else the user's XDG cache dir
	SessionID string
	Logger    hclog.Logger
}

// New resolves Config from the environment. verbose raises the logger
// to Debug; otherwise it stays at Info.
func New(verbose bool) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve working directory")
	}
	cwd, err = filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}

	home, err := resolveHome()
	if err != nil {
		return nil, err
	}

	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "ccargo",
		Level: level,
	})

	return &Config{
		Cwd:       cwd,
		Home:      home,
		SessionID: uuid.NewString(),
		Logger:    logger,
	}, nil
}

// resolveHome honors $CCARGO_HOME, falling back to "<home>/.ccargo"
// (go-homedir) and, if that can't be resolved either, the platform's
// XDG cache directory.
func resolveHome() (string, error) {
	if v := os.Getenv("CCARGO_HOME"); v != "" {
		return v, nil
	}
	if dir, err := homedir.Dir(); err == nil {
		return filepath.Join(dir, ".ccargo"), nil
	}
	return filepath.Join(xdg.CacheHome, "ccargo"), nil
}
