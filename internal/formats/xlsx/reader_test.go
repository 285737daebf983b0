package xlsx

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetlens/internal/workbook"
)

// writeFixture builds a small workbook with values, a formula, a styled
// cell, a merged range and a protected second sheet.
func writeFixture(t *testing.T, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	f.SetCellValue(sheet, "A1", "Name")
	f.SetCellValue(sheet, "B1", "Qty")
	f.SetCellValue(sheet, "C1", "Total")
	f.SetCellValue(sheet, "D1", "Merged")
	f.SetCellValue(sheet, "A2", "Widget")
	f.SetCellValue(sheet, "B2", 3)
	f.SetCellFormula(sheet, "C2", "B2*2")
	f.SetCellValue(sheet, "A3", "Gadget")
	f.SetCellValue(sheet, "B3", 4.5)
	f.SetCellBool(sheet, "C3", true)

	if err := f.MergeCell(sheet, "D1", "E1"); err != nil {
		t.Fatal(err)
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Family: "Arial", Size: 12},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFF00"}},
		Border: []excelize.Border{{Type: "left", Color: "000000", Style: 1}, {Type: "top", Color: "000000", Style: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", styleID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.NewSheet("Locked"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Locked", "A1", "Secret")
	if err := f.ProtectSheet("Locked", &excelize.SheetProtectionOptions{Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func TestOpenValidation(t *testing.T) {
	_, err := Open("/nonexistent/file.xlsx")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "data.csv")
	os.WriteFile(path, []byte("a,b\n"), 0644)
	_, err = Open(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	os.WriteFile(path, []byte("not a zip"), 0644)
	if _, err := Open(path); err == nil {
		t.Error("expected error opening corrupt workbook")
	}
}

func TestSheetInfo(t *testing.T) {
	f, err := Open(writeFixture(t, "book.xlsx"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if f.MacroEnabled() {
		t.Error(".xlsx should not be macro-enabled")
	}

	names := f.SheetNames()
	if len(names) != 2 || names[0] != "Sheet1" || names[1] != "Locked" {
		t.Fatalf("unexpected sheet names %v", names)
	}

	info, err := f.SheetInfo("Sheet1")
	if err != nil {
		t.Fatalf("SheetInfo failed: %v", err)
	}
	if info.MaxRow != 3 {
		t.Errorf("expected max row 3, got %d", info.MaxRow)
	}
	if info.MaxColumn != 4 {
		t.Errorf("expected max column 4, got %d", info.MaxColumn)
	}
	if info.MergedCells != 1 {
		t.Errorf("expected 1 merged range, got %d", info.MergedCells)
	}
	if info.State != "visible" {
		t.Errorf("expected visible sheet, got %q", info.State)
	}
	if info.Protection.Locked {
		t.Error("Sheet1 should not be protected")
	}

	locked, err := f.SheetInfo("Locked")
	if err != nil {
		t.Fatal(err)
	}
	if !locked.Protection.Locked || !locked.Protection.PasswordProtected {
		t.Errorf("expected Locked sheet to be password protected, got %+v", locked.Protection)
	}

	if _, err := f.SheetInfo("Missing"); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestValueKinds(t *testing.T) {
	f, err := Open(writeFixture(t, "values.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		col, row int
		kind     workbook.Kind
		text     string
	}{
		{1, 1, workbook.KindText, "Name"},
		{2, 2, workbook.KindNumber, "3"},
		{3, 2, workbook.KindFormula, "=B2*2"},
		{2, 3, workbook.KindNumber, "4.5"},
		{3, 3, workbook.KindBool, "TRUE"},
		{5, 5, workbook.KindEmpty, ""},
	}
	for _, tt := range tests {
		v, err := f.Value("Sheet1", tt.col, tt.row)
		if err != nil {
			t.Fatalf("Value(%d,%d) failed: %v", tt.col, tt.row, err)
		}
		if v.Kind != tt.kind {
			t.Errorf("Value(%s) kind = %s, want %s", workbook.CellName(tt.col, tt.row), v.Kind, tt.kind)
		}
		if v.String() != tt.text {
			t.Errorf("Value(%s) text = %q, want %q", workbook.CellName(tt.col, tt.row), v.String(), tt.text)
		}
	}
}

func TestStyle(t *testing.T) {
	f, err := Open(writeFixture(t, "styles.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	s, err := f.Style("Sheet1", 1, 1)
	if err != nil {
		t.Fatalf("Style failed: %v", err)
	}
	if s.FontName != "Arial" || s.FontSize != 12 {
		t.Errorf("unexpected font %q %v", s.FontName, s.FontSize)
	}
	if !s.HasFill() {
		t.Error("expected a fill colour on A1")
	}
	if s.BorderEdges != 2 {
		t.Errorf("expected 2 border edges, got %d", s.BorderEdges)
	}

	plain, err := f.Style("Sheet1", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if plain.HasFill() || plain.HasBorder() {
		t.Errorf("B2 should have no fill or border, got %+v", plain)
	}
}

func TestRows(t *testing.T) {
	f, err := Open(writeFixture(t, "rows.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.Rows("Sheet1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Name" || rows[1][0] != "Widget" {
		t.Errorf("unexpected rows %v", rows)
	}

	all, err := f.Rows("Sheet1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 rows with no limit, got %d", len(all))
	}
}

func TestMetadata(t *testing.T) {
	x := excelize.NewFile()
	x.SetDocProps(&excelize.DocProperties{Creator: "Finance", Title: "Cost Model", Subject: "Budget"})
	x.SetCellValue("Sheet1", "A1", 1)
	x.SetDefinedName(&excelize.DefinedName{Name: "Rate", RefersTo: "Sheet1!$A$1"})
	path := filepath.Join(t.TempDir(), "meta.xlsx")
	if err := x.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	x.Close()

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	md, err := f.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if md.Creator != "Finance" || md.Title != "Cost Model" || md.Subject != "Budget" {
		t.Errorf("unexpected metadata %+v", md)
	}
	if len(md.DefinedNames) != 1 || md.DefinedNames[0] != "Rate" {
		t.Errorf("unexpected defined names %v", md.DefinedNames)
	}
}

func TestIndexZipDrawings(t *testing.T) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	add := func(name, body string) {
		w, _ := zw.Create(name)
		w.Write([]byte(body))
	}
	add("xl/workbook.xml", `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets><sheet name="Data" sheetId="1" r:id="rId1"/><sheet name="Plain" sheetId="2" r:id="rId2"/></sheets></workbook>`)
	add("xl/_rels/workbook.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="/xl/worksheets/sheet2.xml"/></Relationships>`)
	add("xl/worksheets/sheet1.xml", `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData><row r="1"><c r="A1"><v>1</v></c></row></sheetData><sheetProtection sheet="1" objects="1"/><drawing r:id="rId1" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/></worksheet>`)
	add("xl/worksheets/_rels/sheet1.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing" Target="../drawings/drawing1.xml"/></Relationships>`)
	add("xl/drawings/_rels/drawing1.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart" Target="../charts/chart1.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/></Relationships>`)
	add("xl/worksheets/sheet2.xml", `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData/></worksheet>`)
	zw.Close()

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := indexZip(zr)
	if err != nil {
		t.Fatalf("indexZip failed: %v", err)
	}

	data := idx.sheets["Data"]
	if data.charts != 1 || data.images != 1 {
		t.Errorf("expected 1 chart and 1 image, got %d/%d", data.charts, data.images)
	}
	if !data.protection.Locked || data.protection.PasswordProtected {
		t.Errorf("unexpected protection %+v", data.protection)
	}

	plain, ok := idx.sheets["Plain"]
	if !ok {
		t.Fatal("absolute relationship target not resolved")
	}
	if plain.charts != 0 || plain.images != 0 || plain.protection.Locked {
		t.Errorf("Plain sheet should be bare, got %+v", plain)
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct{ base, target, want string }{
		{"xl", "worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets", "../drawings/drawing1.xml", "xl/drawings/drawing1.xml"},
		{"xl", "/xl/worksheets/sheet2.xml", "xl/worksheets/sheet2.xml"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.base, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.base, tt.target, got, tt.want)
		}
	}
}
