// Package compare provides the "sheetlens compare" command.
package compare

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/cmdutil"
	"github.com/klytics/sheetlens/internal/analysis"
	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/report"
	"github.com/klytics/sheetlens/internal/runner"
)

// NewCommand returns the compare command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <before> <after>",
		Short: "Compare the analysis of two workbooks",
		Long: `Analyses two workbooks and shows how they differ: added and removed
sheets, per-sheet row, column, formula and styled-cell counts, macro risk
level and estimated purpose. No report files are written.

Examples:
  sheetlens compare budget-v1.xlsx budget-v2.xlsx
  sheetlens compare old.xlsm new.xlsm --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := xlsx.Validate(p); err != nil {
					return cmdutil.Fail(cmd, err, output.ExitUserError)
				}
			}

			cfg, err := cmdutil.Setup(cmd, nil)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			r, err := runner.FromConfig(cfg, "compare")
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			r.WriteReports = false

			reps := make([]*analysis.Report, 2)
			for i, p := range args {
				res := r.Analyze(cmd.Context(), p, nil)
				if err := res.Err(); err != nil {
					return cmdutil.Fail(cmd, fmt.Errorf("could not analyse %s: %w", p, err), output.ExitUserError)
				}
				reps[i] = res.Report
			}

			c := analysis.Compare(reps[0], reps[1])
			if cmdutil.JSON(cmd) {
				return output.PrintJSON("compare", c)
			}
			report.PrintComparison(os.Stdout, c)
			return nil
		},
	}
	return cmd
}
