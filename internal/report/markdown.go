// Package report renders analysis reports as Markdown documents and
// terminal summaries.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/klytics/sheetlens/internal/analysis"
	"github.com/klytics/sheetlens/internal/workbook"
)

const (
	maxColumnNames  = 10
	maxFontNames    = 10
	maxSuspicious   = 10
	maxModules      = 5
	maxProcedures   = 5
	generatorFooter = "*Report generated by sheetlens*  \n*For reuse in other applications, extract the analysis data from the JSON output*"
)

// Markdown renders the report. Sections always appear in the same order;
// a failed or skipped phase renders as a one-line placeholder.
func Markdown(rep *analysis.Report) string {
	sections := []string{
		header(rep),
		fileInfo(rep),
		metadata(rep.Metadata),
		structure(rep.Structure),
		content(rep.Content, sheetOrder(rep)),
		formatting(rep.Formatting),
		macros(rep.Macros),
		summary(rep),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func failed(title, name string) string {
	return fmt.Sprintf("## %s\n\n*%s analysis failed or unavailable*", title, name)
}

func skipped(title, name string) string {
	return fmt.Sprintf("## %s\n\n*%s analysis skipped*", title, name)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC3339)
}

// truncate joins at most n items, appending an ellipsis when more exist.
func truncate(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:n], ", ") + "..."
}

func header(rep *analysis.Report) string {
	return fmt.Sprintf(`# Excel File Analysis Report

**File:** %s  
**Analysis Date:** %s  
**Analysis ID:** %s  
**Generated by:** sheetlens

---`, orNA(rep.FileInfo.FileName), stamp(rep.FileInfo.AnalysisTimestamp), orNA(rep.FileInfo.AnalysisID))
}

func fileInfo(rep *analysis.Report) string {
	fi := rep.FileInfo
	return fmt.Sprintf(`## File Information

| Property | Value |
|----------|-------|
| File Name | %s |
| File Size | %.2f MB (%s bytes) |
| Macro Enabled | %s |
| Last Modified | %s |`, orNA(fi.FileName), fi.FileSizeMB, humanize.Comma(fi.FileSize), yesNo(fi.MacroEnabled), stamp(fi.LastModified))
}

func metadata(sec analysis.Section[workbook.Metadata]) string {
	if sec.Failed() {
		return failed("Metadata", "Metadata")
	}
	md := sec.Data
	return fmt.Sprintf(`## Metadata

| Property | Value |
|----------|-------|
| Creator | %s |
| Title | %s |
| Subject | %s |
| Created | %s |
| Modified | %s |
| Last Modified By | %s |
| Defined Names | %d |`, orNA(md.Creator), orNA(md.Title), orNA(md.Subject), orNA(md.Created), orNA(md.Modified), orNA(md.LastModifiedBy), len(md.DefinedNames))
}

func structure(sec analysis.Section[analysis.Structure]) string {
	if sec.Failed() {
		return failed("Structure Analysis", "Structure")
	}
	s := sec.Data
	var b strings.Builder
	fmt.Fprintf(&b, "## Structure Analysis\n\n**Total Sheets:** %d\n\n### Sheet Overview", s.SheetCount)

	for _, name := range s.SheetNames {
		info := s.Sheets[name]
		marks := ""
		if info.Protection.Locked {
			marks += " 🔒"
		}
		if info.Protection.PasswordProtected {
			marks += " 🔐"
		}
		if info.State != "" && info.State != "visible" {
			marks += " (" + info.State + ")"
		}
		fmt.Fprintf(&b, `

#### %s%s

- **Dimensions:** %s
- **Max Row:** %s
- **Max Column:** %d
- **Merged Cells:** %d
- **Has Charts:** %s
- **Has Images:** %s`, name, marks, orNA(info.Dimension), humanize.Comma(int64(info.MaxRow)), info.MaxColumn,
			info.MergedCells, yesNo(info.HasCharts), yesNo(info.HasImages))
	}
	return b.String()
}

func content(sec analysis.Section[analysis.Content], order []string) string {
	if sec.Failed() {
		return failed("Content Analysis", "Content")
	}
	c := sec.Data
	var b strings.Builder
	fmt.Fprintf(&b, "## Content Analysis\n\n**Total Data Rows:** %s  \n**Total Data Columns:** %s\n\n### Sheet Data Summary",
		humanize.Comma(int64(c.TotalRows)), humanize.Comma(int64(c.TotalColumns)))

	for _, name := range order {
		sc, ok := c.Sheets[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, `

#### %s

- **Rows:** %s
- **Columns:** %d
- **Has Formulas:** %s
- **Formula Count (sample):** %d
- **Column Names:** %s`, name, humanize.Comma(int64(sc.Rows)), sc.Columns, yesNo(sc.HasFormulas),
			sc.FormulaCountSample, truncate(sc.ColumnNames, maxColumnNames))
	}
	return b.String()
}

func formatting(sec analysis.Section[analysis.Formatting]) string {
	switch {
	case sec.Failed():
		return failed("Formatting Analysis", "Formatting")
	case sec.Skipped != "":
		return skipped("Formatting Analysis", "Formatting")
	}
	s := sec.Data.Summary
	out := fmt.Sprintf(`## Formatting Analysis

### Summary (sampled)
- **Total Styled Cells:** %s
- **Unique Fonts:** %d
- **Unique Colors:** %d
- **Has Conditional Formatting:** %s`, humanize.Comma(int64(s.TotalStyledCells)), len(s.UniqueFonts), len(s.UniqueColors), yesNo(s.HasConditionalFormatting))

	if len(s.UniqueFonts) > 0 {
		out += "\n\n**Fonts Used:** " + truncate(s.UniqueFonts, maxFontNames)
	}
	return out
}

func macros(sec analysis.Section[analysis.MacroAnalysis]) string {
	switch {
	case sec.Failed():
		return failed("VBA Analysis", "VBA")
	case sec.Skipped != "":
		return skipped("VBA Analysis", "VBA")
	case sec.Data.Message != "":
		return fmt.Sprintf("## VBA Analysis\n\n*%s*", sec.Data.Message)
	case !sec.Data.HasMacros:
		return "## VBA Analysis\n\n*No VBA macros detected*"
	}

	m := sec.Data
	var b strings.Builder
	fmt.Fprintf(&b, `## VBA Analysis

### Code Statistics
- **Total Modules:** %d
- **Total Lines of Code:** %s
- **Total Characters:** %s

### Security Analysis
- **Risk Level:** %s
- **Suspicious Keywords:** %d
- **Auto-Execute Keywords:** %d
- **Indicators of Compromise:** %d`, m.Statistics.TotalModules, humanize.Comma(int64(m.Statistics.TotalLines)),
		humanize.Comma(int64(m.Statistics.TotalCharacters)), strings.ToUpper(m.Security.RiskLevel.String()),
		len(m.Security.SuspiciousKeywords), len(m.Security.AutoExecKeywords), len(m.Security.IOCs))

	if kws := m.Security.SuspiciousKeywords; len(kws) > 0 {
		b.WriteString("\n\n### Suspicious Keywords Found")
		for i, kw := range kws {
			if i == maxSuspicious {
				break
			}
			fmt.Fprintf(&b, "\n- **%s**: %s", kw.Keyword, kw.Description)
		}
	}

	if len(m.Modules) > 0 {
		fmt.Fprintf(&b, "\n\n### VBA Modules (%d)", len(m.Modules))
		for i, mod := range m.Modules {
			if i == maxModules {
				break
			}
			fmt.Fprintf(&b, `

#### %s
- **Lines:** %s
- **Functions:** %d (%s)
- **Subroutines:** %d (%s)`, mod.VBAFilename, humanize.Comma(int64(mod.LineCount)),
				len(mod.Functions), truncate(mod.Functions, maxProcedures),
				len(mod.Subroutines), truncate(mod.Subroutines, maxProcedures))
		}
	}
	return b.String()
}

func summary(rep *analysis.Report) string {
	s := rep.Summary
	var points []string

	switch s.Complexity {
	case "complex":
		points = append(points, "📊 **Complex workbook** with many sheets")
	case "medium":
		points = append(points, "📊 **Medium complexity** workbook")
	default:
		points = append(points, "📊 **Simple workbook** structure")
	}

	switch s.DatasetSize {
	case "large":
		points = append(points, "📈 **Large dataset** with significant data volume")
	case "medium":
		points = append(points, "📈 **Medium dataset** size")
	}

	if s.RiskLevel != nil {
		switch *s.RiskLevel {
		case analysis.RiskHigh:
			points = append(points, "⚠️ **High-risk VBA macros** detected - review recommended")
		case analysis.RiskMedium:
			points = append(points, "⚠️ **Medium-risk VBA macros** detected")
		default:
			points = append(points, "✅ **Low-risk VBA macros** detected")
		}
	}

	switch s.FormattingDensity {
	case "heavy":
		points = append(points, "🎨 **Heavily formatted** workbook")
	case "moderate":
		points = append(points, "🎨 **Moderately formatted** workbook")
	}

	var b strings.Builder
	b.WriteString("## Analysis Summary\n\n")
	b.WriteString(strings.Join(points, "\n"))

	fmt.Fprintf(&b, `

| Metric | Value |
|--------|-------|
| Estimated Purpose | %s |
| Sheets | %d |
| Sheets With Data | %d |
| Total Rows | %s |
| Widest Sheet (columns) | %d |
| Risk Level | %s |`, s.EstimatedPurpose, s.SheetCount, s.SheetsWithData, humanize.Comma(int64(s.TotalRows)), s.TotalColumns, riskText(s.RiskLevel))

	if len(s.KeySheets) > 0 {
		b.WriteString("\n\n### Key Sheets")
		for _, ks := range s.KeySheets {
			fmt.Fprintf(&b, "\n- **%s**: %s rows × %d columns (%s)", ks.Name, humanize.Comma(int64(ks.Rows)), ks.Columns, strings.Join(ks.KeyFields, ", "))
		}
	}

	if len(s.RecommendedActions) > 0 {
		b.WriteString("\n\n### Recommended Actions")
		for _, a := range s.RecommendedActions {
			b.WriteString("\n- " + a)
		}
	}

	if len(s.FailedPhases) > 0 {
		b.WriteString("\n\n*Incomplete phases: " + strings.Join(s.FailedPhases, ", ") + "*")
	}

	b.WriteString("\n\n---\n\n" + generatorFooter)
	return b.String()
}

// sheetOrder lists sheets in workbook order, falling back to name order
// when the structure phase failed.
func sheetOrder(rep *analysis.Report) []string {
	if rep.Structure.OK() {
		return rep.Structure.Data.SheetNames
	}
	names := make([]string, 0, len(rep.Content.Data.Sheets))
	for n := range rep.Content.Data.Sheets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func riskText(r *analysis.RiskLevel) string {
	if r == nil {
		return "none"
	}
	return r.String()
}
