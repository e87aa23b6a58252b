package cli

import (
	"github.com/spf13/cobra"
)

func NewRunCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one extraction and publication cycle",
		Long: `Loads the watermark, extracts orders newer than it, publishes them as one
Parquet object and advances the watermark. Exits 0 when there was nothing new
or the run was published, non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runPipeline(c.Context(), opts, c.OutOrStdout())
		},
	}
}
