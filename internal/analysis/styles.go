package analysis

import (
	"fmt"
	"strconv"

	"github.com/klytics/sheetlens/internal/workbook"
)

// Default style sampling window.
const (
	DefaultStyleRows    = 50
	DefaultStyleColumns = 50
)

// StyleProfile aggregates the styles found in the top-left sample window
// of a sheet. It is not a census of the whole sheet.
type StyleProfile struct {
	Fonts              map[string]int `json:"fonts"`
	Colors             map[string]int `json:"colors"`
	Borders            int            `json:"borders"`
	StyledCells        int            `json:"styled_cells"`
	ConditionalFormats int            `json:"conditional_formatting_rules"`
	SampleRows         int            `json:"sample_rows"`
	SampleColumns      int            `json:"sample_columns"`
}

// NewStyleProfile returns an empty profile with allocated maps.
func NewStyleProfile() StyleProfile {
	return StyleProfile{Fonts: map[string]int{}, Colors: map[string]int{}}
}

// FontKey renders the font map key, name and size joined by an underscore.
func FontKey(s workbook.Style) string {
	return s.FontName + "_" + strconv.FormatFloat(s.FontSize, 'g', -1, 64)
}

// ProfileStyles walks rows 1..min(rows, MaxRow) by columns
// 1..min(cols, MaxColumn). Each attribute is counted on its own, so one
// cell can bump the font map, the colour map and the border count at
// once. cf is the sheet's conditional format rule count as reported by
// the parser.
func ProfileStyles(r CellReader, sheet workbook.SheetInfo, rows, cols, cf int) (StyleProfile, error) {
	if rows <= 0 {
		rows = DefaultStyleRows
	}
	if cols <= 0 {
		cols = DefaultStyleColumns
	}

	p := NewStyleProfile()
	p.ConditionalFormats = cf
	p.SampleRows = min(rows, sheet.MaxRow)
	p.SampleColumns = min(cols, sheet.MaxColumn)

	for row := 1; row <= p.SampleRows; row++ {
		for col := 1; col <= p.SampleColumns; col++ {
			s, err := r.Style(sheet.Name, col, row)
			if err != nil {
				return StyleProfile{}, fmt.Errorf("reading style of %s!%s: %w", sheet.Name, workbook.CellName(col, row), err)
			}
			if s.HasFont() {
				p.Fonts[FontKey(s)]++
			}
			if s.HasFill() {
				p.Colors[s.FillColor]++
			}
			if s.HasBorder() {
				p.Borders++
			}
			if s.HasFont() || s.HasFill() || s.HasBorder() {
				p.StyledCells++
			}
		}
	}
	return p, nil
}
