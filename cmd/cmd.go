// Package cmd implements the gyre command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyrelab/gyre/envconfig"
	"github.com/gyrelab/gyre/logutil"
	"github.com/gyrelab/gyre/version"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "gyre",
		Short:   "Rotary position engine for video diffusion transformers",
		Version: version.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			level := slog.LevelInfo
			if envconfig.Debug {
				level = logutil.LevelTrace
			}
			slog.SetDefault(logutil.NewLogger(os.Stderr, level))
		},
	}

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		NewBenchCmd(),
		NewFreqsCmd(),
		NewSplitCmd(),
		NewEnvCmd(),
	)

	return rootCmd
}
