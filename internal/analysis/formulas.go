package analysis

import (
	"fmt"

	"github.com/klytics/sheetlens/internal/workbook"
)

// DefaultFormulaRows is the number of data rows below the header scanned
// for formulas.
const DefaultFormulaRows = 10

// CellReader reads single cells. workbook.Source satisfies it.
type CellReader interface {
	Value(sheet string, col, row int) (workbook.Value, error)
	Style(sheet string, col, row int) (workbook.Style, error)
}

// FormulaRecord locates one formula cell.
type FormulaRecord struct {
	Cell    string `json:"cell"`
	Formula string `json:"formula"`
}

// ScanFormulas reports the formula cells in data rows 2 through 1+limit
// (clipped to the sheet) across every column, in row-major order. Only
// that window is read; callers must present the result as a sample.
func ScanFormulas(r CellReader, sheet workbook.SheetInfo, limit int) ([]FormulaRecord, error) {
	if limit <= 0 {
		limit = DefaultFormulaRows
	}
	lastRow := min(1+limit, sheet.MaxRow)

	records := []FormulaRecord{}
	for row := 2; row <= lastRow; row++ {
		for col := 1; col <= sheet.MaxColumn; col++ {
			v, err := r.Value(sheet.Name, col, row)
			if err != nil {
				return nil, fmt.Errorf("reading %s!%s: %w", sheet.Name, workbook.CellName(col, row), err)
			}
			if !v.IsFormula() {
				continue
			}
			records = append(records, FormulaRecord{
				Cell:    workbook.CellName(col, row),
				Formula: v.Text,
			})
		}
	}
	return records, nil
}
