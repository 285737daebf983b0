package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/klytics/sheetlens/internal/analysis"
)

func riskColor(r *analysis.RiskLevel) *color.Color {
	if r == nil {
		return color.New(color.FgHiBlack)
	}
	switch *r {
	case analysis.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case analysis.RiskMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// PrintSummary writes a short coloured overview of rep to w.
func PrintSummary(w io.Writer, rep *analysis.Report) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	s := rep.Summary

	bold.Fprintf(w, "%s", rep.FileInfo.FileName)
	dim.Fprintf(w, "  (%s, %s)\n", humanize.Bytes(uint64(rep.FileInfo.FileSize)), rep.FileInfo.AnalysisID)
	fmt.Fprintf(w, "Purpose: %s   Complexity: %s   Risk: ", s.EstimatedPurpose, s.Complexity)
	riskColor(s.RiskLevel).Fprintln(w, riskText(s.RiskLevel))

	if rep.Content.OK() {
		t := newTable(w, []string{"Sheet", "Rows", "Columns", "Formulas (sample)", "Styled (sample)"})
		for _, name := range sheetOrder(rep) {
			sc, ok := rep.Content.Data.Sheets[name]
			if !ok {
				continue
			}
			styled := "-"
			if rep.Formatting.OK() {
				styled = strconv.Itoa(rep.Formatting.Data.Sheets[name].StyledCells)
			}
			t.Append([]string{name, humanize.Comma(int64(sc.Rows)), strconv.Itoa(sc.Columns), strconv.Itoa(sc.FormulaCountSample), styled})
		}
		t.Render()
	}

	fmt.Fprintf(w, "%d of %d sheets carry data, %s rows in total\n", s.SheetsWithData, s.SheetCount, humanize.Comma(int64(s.TotalRows)))
	if len(s.FailedPhases) > 0 {
		color.New(color.FgYellow).Fprintf(w, "Incomplete phases: %v\n", s.FailedPhases)
	}
}

// PrintComparison writes the differences between two reports.
func PrintComparison(w io.Writer, c *analysis.Comparison) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	bold.Fprintf(w, "%s → %s\n", c.Before, c.After)
	if c.Identical() {
		green.Fprintln(w, "No differences in tracked counts")
		return
	}

	for _, name := range c.AddedSheets {
		green.Fprintf(w, "+ sheet %s\n", name)
	}
	for _, name := range c.RemovedSheets {
		red.Fprintf(w, "- sheet %s\n", name)
	}

	if len(c.ChangedSheets) > 0 {
		t := newTable(w, []string{"Sheet", "Rows", "Columns", "Formulas (sample)", "Styled (sample)"})
		for _, d := range c.ChangedSheets {
			t.Append([]string{
				d.Name,
				delta(d.RowsBefore, d.RowsAfter),
				delta(d.ColumnsBefore, d.ColumnsAfter),
				delta(d.FormulasBefore, d.FormulasAfter),
				delta(d.StyledBefore, d.StyledAfter),
			})
		}
		t.Render()
	}

	if riskText(c.RiskBefore) != riskText(c.RiskAfter) {
		fmt.Fprintf(w, "Risk: %s → ", riskText(c.RiskBefore))
		riskColor(c.RiskAfter).Fprintln(w, riskText(c.RiskAfter))
	}
	if c.PurposeBefore != c.PurposeAfter {
		fmt.Fprintf(w, "Purpose: %s → %s\n", c.PurposeBefore, c.PurposeAfter)
	}
}

func delta(before, after int) string {
	if before == after {
		return strconv.Itoa(after)
	}
	return fmt.Sprintf("%d → %d (%+d)", before, after, after-before)
}
