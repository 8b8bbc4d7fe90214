// Package commands implements the pdf-diff command line.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/observability"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool
	noColor    bool

	appCfg *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdf-diff",
	Short: "Compare two versions of a PDF word by word",
	Long: `pdf-diff extracts positioned words from two versions of a PDF, drops
boilerplate that appears on every page, aligns the remaining words and reports
what was added, removed and replaced. It writes a Markdown report and
annotation manifests that point at the changed words on each page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		appCfg = cfg

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      cfg.Observability.LogFormat,
			Output:      os.Stderr,
			ServiceName: "pdf-diff",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "write machine-readable JSON to stdout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
