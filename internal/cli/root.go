// Package cli wires configuration, storage and the pipeline into cobra
// commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes. A persist failure gets its own code because the rows it
// covers are already in the lake and will be published a second time.
const (
	ExitFailure        = 1
	ExitPersistFailure = 3
)

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

type RootOptions struct {
	ConfigFile string
}

func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "orderlake",
		Short: "orderlake - incremental export of orders into a partitioned data lake",
		Long: `orderlake copies orders created since the last successful run from a SQL
database into Parquet files under raw_orders/year=/month=/day= in S3 (or a
local directory). Progress is tracked by a watermark that only moves after
the file has been published.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a .toml or .yaml config file (environment overrides it)")

	rootCmd.AddCommand(NewRunCmd(opts), NewStatusCmd(opts), NewSeedCmd(opts))

	return rootCmd
}

func exitf(code int, format string, args ...interface{}) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}
