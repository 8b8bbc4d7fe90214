package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// Skip config loading so version works with a broken config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return writeJSON(map[string]string{"version": Version, "go": runtime.Version()})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pdf-diff version %s (%s)\n", Version, runtime.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
