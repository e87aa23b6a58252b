package cli

import (
	"github.com/spf13/cobra"
)

type SeedOptions struct {
	Count int
	Seed  int64
}

func NewSeedCmd(opts *RootOptions) *cobra.Command {
	seedOpts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert mock orders into the source table (creates it if missing)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return seedSource(c.Context(), opts, seedOpts, c.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&seedOpts.Count, "count", "n", 1000, "Number of orders to insert")
	cmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "Random seed (0 uses the current time)")

	return cmd
}
