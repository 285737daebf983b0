package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/klytics/sheetlens/internal/heuristics"
	"github.com/klytics/sheetlens/internal/workbook"
)

func TestClassifyHeaders(t *testing.T) {
	headers := []string{"Item ID", "Product Name", "Start Date", "Unit Cost", "Status", "Notes", "Total Amount", "Status Date"}
	got := ClassifyHeaders(headers)
	want := HeaderClassification{
		CategoryIdentifier: {0},
		CategoryName:       {1},
		CategoryDate:       {2, 7},
		CategoryFinancial:  {3, 6},
		CategoryStatus:     {4, 7},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ClassifyHeaders mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyHeadersCaseInsensitive(t *testing.T) {
	got := ClassifyHeaders([]string{"PRICE", "valid"})
	if diff := cmp.Diff(HeaderClassification{CategoryFinancial: {0}, CategoryIdentifier: {1}}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got := ClassifyHeaders(nil); len(got) != 0 {
		t.Errorf("empty input should classify nothing, got %v", got)
	}
}

func TestSynthesizeHeaders(t *testing.T) {
	got := SynthesizeHeaders([]string{"Name", "", " Qty "}, 5)
	want := []string{"Name", "Column_2", "Qty", "Column_4", "Column_5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SynthesizeHeaders mismatch (-want +got):\n%s", diff)
	}
}

func formulaSheet() (*fakeSource, workbook.SheetInfo) {
	s := newFakeSheet("Calc").fill(15, 3)
	s.set(3, 2, workbook.FormulaValue("A2*B2"))
	s.set(1, 5, workbook.TextValue("=SUM(B2:B4)"))
	s.set(2, 11, workbook.FormulaValue("B10+1"))
	s.set(2, 12, workbook.FormulaValue("B11+1"))
	s.set(1, 1, workbook.FormulaValue("HEADER()"))
	src := &fakeSource{sheets: []*fakeSheet{s}}
	info, _ := src.SheetInfo("Calc")
	return src, *info
}

func TestScanFormulasWindow(t *testing.T) {
	src, info := formulaSheet()
	got, err := ScanFormulas(src, info, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []FormulaRecord{
		{Cell: "C2", Formula: "=A2*B2"},
		{Cell: "A5", Formula: "=SUM(B2:B4)"},
		{Cell: "B11", Formula: "=B10+1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ScanFormulas mismatch (-want +got):\n%s", diff)
	}
}

func TestScanFormulasSmallSheetAndLimit(t *testing.T) {
	src, info := formulaSheet()
	got, err := ScanFormulas(src, info, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Cell != "C2" {
		t.Errorf("limit 3 should only see rows 2-4, got %+v", got)
	}

	small := &fakeSource{sheets: []*fakeSheet{newFakeSheet("S").fill(1, 2)}}
	sInfo, _ := small.SheetInfo("S")
	got, err = ScanFormulas(small, *sInfo, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("header-only sheet has no data rows, got %+v", got)
	}
}

func styledSheet() *fakeSource {
	s := newFakeSheet("Styled").fill(60, 60)
	arial := workbook.Style{FontName: "Arial", FontSize: 10}
	s.style(1, 1, arial)
	s.style(2, 1, workbook.Style{FontName: "Arial", FontSize: 10, FillColor: "FFFF00"})
	s.style(3, 1, workbook.Style{BorderEdges: 4})
	s.style(4, 1, workbook.Style{FillColor: "FFFF00", BorderEdges: 1})
	s.style(55, 55, arial)
	s.cf = 2
	return &fakeSource{sheets: []*fakeSheet{s}}
}

func TestProfileStyles(t *testing.T) {
	src := styledSheet()
	info, _ := src.SheetInfo("Styled")

	got, err := ProfileStyles(src, *info, 50, 50, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := StyleProfile{
		Fonts:              map[string]int{"Arial_10": 2},
		Colors:             map[string]int{"FFFF00": 2},
		Borders:            2,
		StyledCells:        4,
		ConditionalFormats: 2,
		SampleRows:         50,
		SampleColumns:      50,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProfileStyles mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileStylesMonotonic(t *testing.T) {
	src := styledSheet()
	info, _ := src.SheetInfo("Styled")

	small, _ := ProfileStyles(src, *info, 1, 2, 0)
	large, _ := ProfileStyles(src, *info, 60, 60, 0)

	for _, p := range []StyleProfile{small, large} {
		total := 0
		for _, n := range p.Fonts {
			total += n
		}
		if p.StyledCells < total || p.StyledCells < p.Borders {
			t.Errorf("styled cells %d below a sub-count in %+v", p.StyledCells, p)
		}
	}
	if small.StyledCells > large.StyledCells || small.Borders > large.Borders {
		t.Errorf("smaller window counted more: %+v vs %+v", small, large)
	}
	if large.Fonts["Arial_10"] != 3 {
		t.Errorf("60x60 window should see the far cell, got %v", large.Fonts)
	}
}

func findings(suspicious, iocs, autoExec int) []SecurityFinding {
	var out []SecurityFinding
	for i := 0; i < suspicious; i++ {
		out = append(out, SecurityFinding{Category: heuristics.Suspicious})
	}
	for i := 0; i < iocs; i++ {
		out = append(out, SecurityFinding{Category: heuristics.IOC})
	}
	for i := 0; i < autoExec; i++ {
		out = append(out, SecurityFinding{Category: heuristics.AutoExec})
	}
	return out
}

func TestComputeRiskLevel(t *testing.T) {
	tests := []struct {
		suspicious, iocs, autoExec int
		want                       RiskLevel
	}{
		{0, 0, 0, RiskLow},
		{2, 0, 0, RiskLow},
		{3, 0, 0, RiskMedium},
		{5, 0, 0, RiskMedium},
		{6, 0, 0, RiskHigh},
		{0, 1, 0, RiskHigh},
		{0, 0, 10, RiskLow},
	}
	for _, tt := range tests {
		got := ComputeRiskLevel(findings(tt.suspicious, tt.iocs, tt.autoExec))
		if got != tt.want {
			t.Errorf("suspicious=%d ioc=%d autoexec=%d: got %s, want %s", tt.suspicious, tt.iocs, tt.autoExec, got, tt.want)
		}
	}
	if RiskLow >= RiskMedium || RiskMedium >= RiskHigh {
		t.Error("risk levels must be ordered")
	}
}

func TestExtractProcedureNames(t *testing.T) {
	code := "Public Function CalcTotal(x As Integer) As Long\r\n" +
		"End Function\r\n" +
		"Private Sub Init()\n" +
		"' Function CalcTotal\n" +
		"    function helper (a)\n" +
		"Sub Run\n" +
		"Friend Function Hidden()\n" +
		"Dim subTotal As Long\n"

	functions, subs := ExtractProcedureNames(code)
	if diff := cmp.Diff([]string{"CalcTotal", "helper"}, functions); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Init", "Run"}, subs); diff != "" {
		t.Errorf("subroutines mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMacroModule(t *testing.T) {
	long := "Sub Big()\n"
	for len(long) < 600 {
		long += "    x = x + 1\n"
	}
	m := NewMacroModule(workbook.MacroSource{ContainerPath: "xl/vbaProject.bin", StreamPath: "VBA/Module1", ModuleName: "Module1.bas", Code: long})

	if len(m.CodePreview) != 503 || m.CodePreview[500:] != "..." {
		t.Errorf("preview should be 500 chars plus ellipsis, got %d", len(m.CodePreview))
	}
	if m.CodeLength != len(long) {
		t.Errorf("code length %d, want %d", m.CodeLength, len(long))
	}
	if m.Subroutines[0] != "Big" || m.VBAFilename != "Module1.bas" {
		t.Errorf("unexpected module %+v", m)
	}
}

func TestClassifyFindingsDedupesAcrossModules(t *testing.T) {
	mods := []workbook.MacroSource{
		{Code: "Sub A()\n Shell \"calc\"\nEnd Sub"},
		{Code: "Sub B()\n Shell \"notepad\"\nEnd Sub"},
	}
	got := ClassifyFindings(mods, heuristics.Default())
	n := 0
	for _, f := range got {
		if f.Keyword == "Shell" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected Shell once, got %d in %+v", n, got)
	}
	if len(ClassifyFindings(nil, heuristics.Default())) != 0 {
		t.Error("no modules should produce no findings")
	}
}
