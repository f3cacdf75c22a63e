// Package cmd provides the command-line interface for memtracker.
package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
	noColor bool
	cfg     Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use: "memtracker",
		Short: "memtracker narrates simulated memory scenarios and draws " +
			"the allocations and borrows they create.",
		Long: `memtracker narrates simulated memory scenarios and draws ` +
			`the allocations and borrows they create. It can record the ` +
			`operations into a SQLite trace and serve the live state over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(opts.envFile)
			if err != nil {
				return err
			}

			opts.cfg = cfg

			if opts.noColor || cfg.NoColor {
				color.NoColor = true
			}

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"File to load environment variables from, if it exists.")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false,
		"Disable colored output.")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newListCommand(),
		newTraceCommand(),
	)

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCommand().Execute()
	if err != nil {
		return 1
	}

	return 0
}
