// Package xlsx adapts excelize to the workbook.Source interface used by the
// analysis engine.
package xlsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetlens/internal/workbook"
)

var (
	// ErrFileNotFound indicates the input file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFormat indicates the file extension is not a workbook type.
	ErrUnsupportedFormat = errors.New("unsupported file type")
)

// File is an open workbook. It implements workbook.Source.
type File struct {
	path  string
	xl    *excelize.File
	pkg   *packageIndex
	infos map[string]*workbook.SheetInfo
	// style index -> resolved style, scoped to this file
	styles map[int]workbook.Style
}

var _ workbook.Source = (*File)(nil)

// Validate checks that path exists and has a supported extension without
// opening it.
func Validate(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s — check that the path is correct", ErrFileNotFound, path)
	}
	if !workbook.IsSupported(path) {
		return fmt.Errorf("%w %q — only .xlsx and .xlsm workbooks are supported", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

// Open opens the workbook at path. The caller must Close it.
func Open(path string) (*File, error) {
	if err := Validate(path); err != nil {
		return nil, err
	}

	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid workbook? %w", path, err)
	}

	return &File{
		path:   path,
		xl:     xl,
		infos:  make(map[string]*workbook.SheetInfo),
		styles: make(map[int]workbook.Style),
	}, nil
}

// Close releases the workbook handle.
func (f *File) Close() error {
	return f.xl.Close()
}

// Path returns the file path the workbook was opened from.
func (f *File) Path() string { return f.path }

// SheetNames returns the worksheet names in workbook order.
func (f *File) SheetNames() []string { return f.xl.GetSheetList() }

// MacroEnabled reports whether the container type can carry a VBA project.
func (f *File) MacroEnabled() bool { return workbook.IsMacroExtension(f.path) }

// Metadata returns the document properties and defined names.
func (f *File) Metadata() (*workbook.Metadata, error) {
	props, err := f.xl.GetDocProps()
	if err != nil {
		return nil, fmt.Errorf("could not read document properties: %w", err)
	}

	md := &workbook.Metadata{
		Creator:        props.Creator,
		Title:          props.Title,
		Subject:        props.Subject,
		Description:    props.Description,
		Keywords:       props.Keywords,
		Category:       props.Category,
		Created:        props.Created,
		Modified:       props.Modified,
		LastModifiedBy: props.LastModifiedBy,
		Revision:       props.Revision,
		Version:        props.Version,
		DefinedNames:   []string{},
	}
	for _, dn := range f.xl.GetDefinedName() {
		name := dn.Name
		if dn.Scope != "" && dn.Scope != "Workbook" {
			name = dn.Scope + "!" + name
		}
		md.DefinedNames = append(md.DefinedNames, name)
	}
	return md, nil
}

// SheetInfo returns the structural facts for a sheet. Results are cached
// for the lifetime of the File.
func (f *File) SheetInfo(sheet string) (*workbook.SheetInfo, error) {
	if info, ok := f.infos[sheet]; ok {
		return info, nil
	}

	idx, err := f.xl.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not resolve sheet %q: %w", sheet, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("sheet %q not found — available sheets: %v", sheet, f.SheetNames())
	}

	info := &workbook.SheetInfo{Name: sheet, Index: idx, State: "visible"}

	visible, err := f.xl.GetSheetVisible(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read visibility of %q: %w", sheet, err)
	}
	if !visible {
		info.State = "hidden"
	}

	if info.MaxRow, info.MaxColumn, err = f.extent(sheet); err != nil {
		return nil, err
	}

	info.Dimension, _ = f.xl.GetSheetDimension(sheet)
	if info.Dimension == "" && info.MaxRow > 0 {
		info.Dimension = "A1:" + workbook.CellName(info.MaxColumn, info.MaxRow)
	}

	merged, err := f.xl.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read merged cells of %q: %w", sheet, err)
	}
	info.MergedCells = len(merged)

	if f.pkg == nil {
		pkg, err := indexPackage(f.path)
		if err != nil {
			return nil, err
		}
		f.pkg = pkg
	}
	if part, ok := f.pkg.sheets[sheet]; ok {
		info.HasCharts = part.charts > 0
		info.HasImages = part.images > 0
		info.Protection = part.protection
	}

	f.infos[sheet] = info
	return info, nil
}

// extent walks the rows of a sheet and returns the last row and widest
// column that carry data.
func (f *File) extent(sheet string) (maxRow, maxCol int, err error) {
	rows, err := f.xl.Rows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	rowIdx := 0
	for rows.Next() {
		rowIdx++
		cols, err := rows.Columns()
		if err != nil {
			return 0, 0, fmt.Errorf("could not read row %d of %q: %w", rowIdx, sheet, err)
		}
		if len(cols) == 0 {
			continue
		}
		maxRow = rowIdx
		if len(cols) > maxCol {
			maxCol = len(cols)
		}
	}
	return maxRow, maxCol, rows.Error()
}

// Rows returns up to limit leading rows as display strings. A limit of
// zero or less returns every row.
func (f *File) Rows(sheet string, limit int) ([][]string, error) {
	rows, err := f.xl.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("could not read row %d of %q: %w", len(out)+1, sheet, err)
		}
		out = append(out, cols)
	}
	return out, rows.Error()
}

// Value returns the typed value of one cell.
func (f *File) Value(sheet string, col, row int) (workbook.Value, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return workbook.Value{}, fmt.Errorf("invalid cell coordinates: %w", err)
	}

	formula, err := f.xl.GetCellFormula(sheet, cell)
	if err != nil {
		return workbook.Value{}, fmt.Errorf("could not read formula at %s!%s: %w", sheet, cell, err)
	}
	if formula != "" {
		return workbook.FormulaValue(formula), nil
	}

	typ, err := f.xl.GetCellType(sheet, cell)
	if err != nil {
		return workbook.Value{}, fmt.Errorf("could not read cell type at %s!%s: %w", sheet, cell, err)
	}
	raw, err := f.xl.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return workbook.Value{}, fmt.Errorf("could not read cell %s!%s: %w", sheet, cell, err)
	}
	if raw == "" {
		return workbook.EmptyValue(), nil
	}

	switch typ {
	case excelize.CellTypeBool:
		return workbook.BoolValue(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeDate:
		display, _ := f.xl.GetCellValue(sheet, cell)
		return workbook.DateValue(display), nil
	case excelize.CellTypeError:
		return workbook.ErrorValue(raw), nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return workbook.NumberValue(n), nil
		}
		return workbook.TextValue(raw), nil
	default:
		return workbook.TextValue(raw), nil
	}
}

// Style returns the resolved font, fill and border of one cell.
func (f *File) Style(sheet string, col, row int) (workbook.Style, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return workbook.Style{}, fmt.Errorf("invalid cell coordinates: %w", err)
	}

	idx, err := f.xl.GetCellStyle(sheet, cell)
	if err != nil {
		return workbook.Style{}, fmt.Errorf("could not read style at %s!%s: %w", sheet, cell, err)
	}
	if s, ok := f.styles[idx]; ok {
		return s, nil
	}

	st, err := f.xl.GetStyle(idx)
	if err != nil {
		return workbook.Style{}, fmt.Errorf("could not resolve style %d: %w", idx, err)
	}

	s := convertStyle(st)
	f.styles[idx] = s
	return s, nil
}

func convertStyle(st *excelize.Style) workbook.Style {
	var s workbook.Style
	if st == nil {
		return s
	}
	if st.Font != nil {
		s.FontName = st.Font.Family
		s.FontSize = st.Font.Size
	}

	filled := (st.Fill.Type == "pattern" && st.Fill.Pattern > 0) || st.Fill.Type == "gradient"
	if filled {
		s.FillColor = "auto"
		if len(st.Fill.Color) > 0 && st.Fill.Color[0] != "" {
			s.FillColor = strings.ToUpper(st.Fill.Color[0])
		}
	}

	for _, b := range st.Border {
		if b.Style > 0 {
			s.BorderEdges++
		}
	}
	return s
}

// ConditionalFormatCount returns the number of conditional format rules
// across all ranges of the sheet.
func (f *File) ConditionalFormatCount(sheet string) (int, error) {
	formats, err := f.xl.GetConditionalFormats(sheet)
	if err != nil {
		return 0, fmt.Errorf("could not read conditional formats of %q: %w", sheet, err)
	}
	n := 0
	for _, rules := range formats {
		n += len(rules)
	}
	return n, nil
}
