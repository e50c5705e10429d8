// Package workspace discovers every CCargo.toml-rooted package under a
// workspace root and assembles them into a *unit.PackageMap, so a CLI
// invocation doesn't have to name every package explicitly. This is
// supplemental to the core (spec.md's manifest-parsing Non-goal extends
// to locating manifests in the first place), grounded on the teacher's
// own workspace-globbing packagemanager code and modeled in SPEC_FULL.md §4.5.
package workspace

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	gitignore "github.com/sabhiram/go-gitignore"

	"ccargo/internal/manifest"
	"ccargo/internal/unit"
)

// IgnoreFile is the optional exclude file consulted while walking,
// using the same match semantics as a .gitignore.
const IgnoreFile = ".ccargoignore"

// Discover walks root for every directory containing a CCargo.toml,
// loads each as a package, and indexes the result.
func Discover(root string) (*unit.PackageMap, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	ignore := loadIgnore(root)

	var dirs []string
	err = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			if rel != "." && ignore != nil && ignore.MatchesPath(rel) {
				return filepath.SkipDir
			}
			if _, statErr := os.Stat(filepath.Join(path, manifest.FileName)); statErr == nil {
				dirs = append(dirs, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	packages := make([]*unit.Package, 0, len(dirs))
	for _, dir := range dirs {
		pkg, err := manifest.Load(dir)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return unit.NewPackageMap(packages), nil
}

func loadIgnore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ig, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return ig
}
