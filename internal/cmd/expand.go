package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ccargo/internal/unit"
)

func newExpandCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "expand [targets...]",
		Short: "Preprocess the selected targets' sources and print the expanded translation units",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cx, _, err := g.resolve(args)
			if err != nil {
				return err
			}
			expanded, err := cx.Expand(cmd.Context())
			if err != nil {
				return err
			}

			names := make([]unit.TargetName, 0, len(expanded))
			for name := range expanded {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

			out := cmd.OutOrStdout()
			for _, name := range names {
				for _, u := range expanded[name] {
					fmt.Fprintf(out, "// ---- %s: %s ----\n", name, u.Src)
					out.Write(u.Text)
				}
			}
			return nil
		},
	}
}
