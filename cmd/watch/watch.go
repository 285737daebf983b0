// Package watch provides the "sheetlens watch" command.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/analyze"
	"github.com/klytics/sheetlens/cmd/cmdutil"
	"github.com/klytics/sheetlens/internal/logger"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/runner"
	w "github.com/klytics/sheetlens/internal/watch"
)

// NewCommand creates the "watch" command.
func NewCommand() *cobra.Command {
	var (
		recursive bool
		pattern   string
	)

	cmd := &cobra.Command{
		Use:   "watch <directory> [directory...]",
		Short: "Analyse workbooks as they appear or change in directories",
		Long: `Watches directories for new or modified .xlsx and .xlsm files and writes
a report for each once it has stopped changing.

Example:
  sheetlens watch ./inbox --output-dir ./reports
  sheetlens watch ./shared -r --pattern 'budget_*' --debounce 2000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings := map[string]string{"watch.debounce_ms": "debounce"}
			for k, v := range analyze.Bindings {
				bindings[k] = v
			}
			cfg, err := cmdutil.Setup(cmd, bindings)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			r, err := runner.FromConfig(cfg, "watch")
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}

			handler := func(ctx context.Context, path string) error {
				res := r.Analyze(ctx, path, nil)
				if err := res.Err(); err != nil {
					return err
				}
				if !cmdutil.JSON(cmd) {
					color.New(color.FgGreen).Printf("✓ %s → %d report(s)\n", filepath.Base(path), len(res.Outputs))
				}
				return nil
			}

			watcher, err := w.New(w.Config{
				Directories: args,
				Recursive:   recursive,
				Pattern:     pattern,
				Debounce:    time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
			}, handler, logger.Log)
			if err != nil {
				return err
			}

			if !cmdutil.JSON(cmd) {
				fmt.Printf("Watching %d directory(ies) for workbooks, writing reports to %s\n", len(args), cfg.Output.Dir)
				fmt.Println("Press Ctrl+C to stop")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := watcher.Start(ctx); err != nil {
				return cmdutil.Fail(cmd, err, output.ExitSystemError)
			}

			if cmdutil.JSON(cmd) {
				return output.PrintJSON("watch", watcher.Events())
			}
			return nil
		},
	}

	analyze.AddFlags(cmd)
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only analyse files whose name matches this glob")
	cmd.Flags().Int("debounce", 500, "Quiet period in milliseconds before a changed file is analysed")
	return cmd
}
