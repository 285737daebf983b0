// Package cmd contains all CLI commands for the sheetlens binary.
package cmd

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/analyze"
	"github.com/klytics/sheetlens/cmd/batch"
	"github.com/klytics/sheetlens/cmd/compare"
	"github.com/klytics/sheetlens/cmd/completion"
	cmdconfig "github.com/klytics/sheetlens/cmd/config"
	"github.com/klytics/sheetlens/cmd/history"
	"github.com/klytics/sheetlens/cmd/version"
	cmdwatch "github.com/klytics/sheetlens/cmd/watch"
	"github.com/klytics/sheetlens/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetlens",
		Short: "Structural, content and macro analysis for Excel workbooks",
		Long: `sheetlens audits .xlsx and .xlsm workbooks.

It reports each workbook's sheets, data layout, sampled formulas and
formatting, and the risk profile of any embedded VBA macros, as JSON and
Markdown reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.sheetlens/config.yaml)")

	rootCmd.AddCommand(analyze.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(compare.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(history.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		output.WriteError("%s", err)
		os.Exit(1)
	}
}
