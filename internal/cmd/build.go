package cmd

import "github.com/spf13/cobra"

func newBuildCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build [targets...]",
		Short: "Incrementally compile the selected targets (every target by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cx, _, err := g.resolve(args)
			if err != nil {
				return err
			}
			return cx.Compile(cmd.Context())
		},
	}
}
