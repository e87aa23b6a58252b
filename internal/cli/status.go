package cli

import (
	"github.com/spf13/cobra"
)

func NewStatusCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current watermark and artifacts left in staging",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return showStatus(c.Context(), opts, c.OutOrStdout())
		},
	}
}
