// Package batch provides the "sheetlens batch" command.
package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/analyze"
	"github.com/klytics/sheetlens/cmd/cmdutil"
	"github.com/klytics/sheetlens/internal/audit"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/progress"
	"github.com/klytics/sheetlens/internal/runner"
)

type batchSummary struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Partial   int              `json:"partial"`
	Failed    int              `json:"failed"`
	Results   []*runner.Result `json:"results"`
}

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <glob-or-directory> [glob-or-directory...]",
		Short: "Analyse every workbook matching globs or under directories",
		Long: `Analyses all .xlsx and .xlsm files matching the patterns, or found under
the given directories, and writes a report pair for each. On error, the batch records the failure and continues
with the remaining files.

Examples:
  sheetlens batch 'inbox/*.xlsm' --output-dir reports
  sheetlens batch '*.xlsx' ./archive --concurrency 8 --output-format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings := map[string]string{"batch.concurrency": "concurrency"}
			for k, v := range analyze.Bindings {
				bindings[k] = v
			}
			cfg, err := cmdutil.Setup(cmd, bindings)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}

			files, err := runner.Expand(args)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			r, err := runner.FromConfig(cfg, "batch")
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}

			bar := progress.New("Analyzing", len(files))
			results, err := r.Batch(cmd.Context(), files, cfg.Batch.Concurrency, func(res *runner.Result) {
				bar.Step(filepath.Base(res.File), res.Status == audit.StatusFailed)
			})
			ok, partial, failed := runner.Counts(results)
			bar.Finish(fmt.Sprintf("Analyzed %d workbooks", len(files)))
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitSystemError)
			}

			if cmdutil.JSON(cmd) {
				if err := output.PrintJSON("batch", batchSummary{
					Total:     len(files),
					Succeeded: ok,
					Partial:   partial,
					Failed:    failed,
					Results:   results,
				}); err != nil {
					return err
				}
			} else {
				printResults(results)
				fmt.Printf("\nProcessed %d files. %d succeeded, %d partial, %d failed.\n", len(files), ok, partial, failed)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d workbooks could not be analysed", failed, len(files))
			}
			return nil
		},
	}

	analyze.AddFlags(cmd)
	cmd.Flags().Int("concurrency", 4, "Number of workbooks analysed in parallel")
	return cmd
}

func printResults(results []*runner.Result) {
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"File", "Status", "Risk", "Detail"})
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, res := range results {
		if res == nil {
			continue
		}
		status, risk, detail := green(res.Status), "-", fmt.Sprintf("%d report(s)", len(res.Outputs))
		if res.Report != nil && res.Report.Summary.RiskLevel != nil {
			risk = res.Report.Summary.RiskLevel.String()
		}
		switch res.Status {
		case audit.StatusFailed:
			status, detail = red(res.Status), res.Error
		case audit.StatusPartial:
			status = yellow(res.Status)
			detail = fmt.Sprintf("incomplete: %v", res.Report.Summary.FailedPhases)
		}
		t.Append([]string{filepath.Base(res.File), status, risk, detail})
	}
	t.Render()
}
