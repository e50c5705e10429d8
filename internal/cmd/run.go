package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRunCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <target> [-- args...]",
		Short: "Build a single binary target and execute it in place",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetArg := args[0]
			extra := args[1:]
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				extra = args[dash:]
			}

			_, cx, selected, err := g.resolve([]string{targetArg})
			if err != nil {
				return err
			}
			if len(selected) != 1 {
				return errors.Errorf("run requires exactly one target, resolved %d", len(selected))
			}
			if err := cx.Compile(cmd.Context()); err != nil {
				return err
			}
			return cx.Run(selected[0], extra)
		},
	}
	return cmd
}
