// Package analyze provides the "sheetlens analyze" command.
package analyze

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/cmdutil"
	"github.com/klytics/sheetlens/internal/analysis"
	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/progress"
	"github.com/klytics/sheetlens/internal/report"
	"github.com/klytics/sheetlens/internal/runner"
)

// Bindings maps config keys to the analysis flags shared with batch and
// watch.
var Bindings = map[string]string{
	"macros.enabled":     "include-vba",
	"formatting.enabled": "include-formatting",
	"output.format":      "output-format",
	"output.dir":         "output-dir",
}

// AddFlags registers the analysis flags on cmd.
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("include-vba", true, "Extract and inspect VBA macros")
	cmd.Flags().Bool("include-formatting", true, "Profile cell formatting")
	cmd.Flags().String("output-format", "both", "Report format: json | markdown | both")
	cmd.Flags().String("output-dir", ".", "Directory for report files")
}

type result struct {
	Report  *analysis.Report `json:"report"`
	Outputs []string         `json:"outputs,omitempty"`
}

// NewCommand returns the analyze subcommand.
func NewCommand() *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "analyze <workbook.xlsx|workbook.xlsm>",
		Short: "Analyse a workbook and write JSON/Markdown reports",
		Long: `Analyses a workbook's structure, content, formatting and VBA macros.

Writes <name>_analysis.json and/or <name>_analysis.md and prints a summary.

Examples:
  sheetlens analyze budget.xlsx
  sheetlens analyze macros.xlsm --output-format markdown --output-dir reports
  sheetlens analyze big.xlsx --include-formatting=false --stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := xlsx.Validate(path); err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}

			cfg, err := cmdutil.Setup(cmd, Bindings)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			r, err := runner.FromConfig(cfg, "analyze")
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			r.WriteReports = !toStdout

			spin := progress.NewSpinner("Analyzing " + filepath.Base(path))
			spin.Start()
			res := r.Analyze(cmd.Context(), path, spin.OnPhase(filepath.Base(path)))
			if err := res.Err(); err != nil {
				spin.Fail("Analysis of " + filepath.Base(path) + " failed")
				code := output.ExitUserError
				if res.Report != nil {
					code = output.ExitSystemError
				}
				return cmdutil.Fail(cmd, err, code)
			}
			spin.Stop(fmt.Sprintf("Analyzed %s in %s", filepath.Base(path), res.Elapsed.Round(1e6)))

			if cmdutil.JSON(cmd) {
				return output.PrintJSON("analyze", result{Report: res.Report, Outputs: res.Outputs})
			}

			if toStdout {
				return printReport(res.Report, r.Format)
			}

			report.PrintSummary(os.Stdout, res.Report)
			for _, p := range res.Outputs {
				color.New(color.FgGreen).Printf("✓ Wrote %s\n", p)
			}
			return nil
		},
	}

	AddFlags(cmd)
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the report to stdout instead of writing files")
	return cmd
}

func printReport(rep *analysis.Report, format output.Format) error {
	if format == output.FormatJSON {
		data, err := rep.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	_, err := fmt.Fprint(os.Stdout, report.Markdown(rep))
	return err
}
