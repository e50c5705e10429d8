package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RunWithArgs runs ccargo with the given argv (excluding the binary
// name itself) and returns the process exit code.
func RunWithArgs(args []string, version string) int {
	root := newRootCommand(version)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
		return 1
	}
	return 0
}

func newRootCommand(version string) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ccargo",
		Short:         "An incremental build system for C and C++ projects",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&g.root, "root", "", "workspace root (default: current directory)")
	flags.StringVar(&g.target, "target", "", "cross-compilation target triple (default: host)")
	flags.StringVar(&g.ccPath, "cc", "", "override the resolved C compiler path")
	flags.StringVar(&g.cxxPath, "cxx", "", "override the resolved C++ compiler path")
	flags.BoolVar(&g.release, "release", false, "build with optimizations instead of the debug profile")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newBuildCommand(g))
	root.AddCommand(newRunCommand(g))
	root.AddCommand(newCheckCommand(g))
	root.AddCommand(newExpandCommand(g))
	return root
}
