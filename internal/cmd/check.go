package cmd

import "github.com/spf13/cobra"

func newCheckCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [targets...]",
		Short: "Run a syntax-only pass over the selected targets, skipping codegen and linking",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cx, _, err := g.resolve(args)
			if err != nil {
				return err
			}
			return cx.Check(cmd.Context())
		},
	}
}
