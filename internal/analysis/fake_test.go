package analysis

import (
	"errors"
	"fmt"

	"github.com/klytics/sheetlens/internal/workbook"
)

// fakeSheet is an in-memory sheet keyed by 1-based coordinates.
type fakeSheet struct {
	name  string
	cells map[[2]int]workbook.Cell
	cf    int
}

func newFakeSheet(name string) *fakeSheet {
	return &fakeSheet{name: name, cells: map[[2]int]workbook.Cell{}}
}

func (s *fakeSheet) set(col, row int, v workbook.Value) *fakeSheet {
	c := s.cells[[2]int{col, row}]
	c.Col, c.Row, c.Value = col, row, v
	s.cells[[2]int{col, row}] = c
	return s
}

func (s *fakeSheet) style(col, row int, st workbook.Style) *fakeSheet {
	c := s.cells[[2]int{col, row}]
	c.Col, c.Row, c.Style = col, row, st
	s.cells[[2]int{col, row}] = c
	return s
}

// fill writes text rows of the given width starting at row 1.
func (s *fakeSheet) fill(rows, cols int) *fakeSheet {
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			s.set(c, r, workbook.TextValue(fmt.Sprintf("r%dc%d", r, c)))
		}
	}
	return s
}

func (s *fakeSheet) extent() (maxRow, maxCol int) {
	for k, c := range s.cells {
		if c.Value.IsEmpty() {
			continue
		}
		maxCol = max(maxCol, k[0])
		maxRow = max(maxRow, k[1])
	}
	return maxRow, maxCol
}

// fakeSource implements workbook.Source. The fail* fields inject errors or
// panics into specific operations.
type fakeSource struct {
	path     string
	macro    bool
	sheets   []*fakeSheet
	meta     workbook.Metadata
	failMeta error
	// styleErr is returned from every Style call when set
	styleErr   error
	stylePanic bool
	closed     bool
}

var _ workbook.Source = (*fakeSource)(nil)

func (f *fakeSource) sheet(name string) (*fakeSheet, error) {
	for _, s := range f.sheets {
		if s.name == name {
			return s, nil
		}
	}
	return nil, errors.New("no such sheet " + name)
}

func (f *fakeSource) Path() string { return f.path }

func (f *fakeSource) SheetNames() []string {
	out := make([]string, len(f.sheets))
	for i, s := range f.sheets {
		out[i] = s.name
	}
	return out
}

func (f *fakeSource) MacroEnabled() bool { return f.macro }

func (f *fakeSource) Metadata() (*workbook.Metadata, error) {
	if f.failMeta != nil {
		return nil, f.failMeta
	}
	md := f.meta
	return &md, nil
}

func (f *fakeSource) SheetInfo(name string) (*workbook.SheetInfo, error) {
	s, err := f.sheet(name)
	if err != nil {
		return nil, err
	}
	maxRow, maxCol := s.extent()
	idx := 0
	for i, x := range f.sheets {
		if x == s {
			idx = i
		}
	}
	return &workbook.SheetInfo{Name: name, Index: idx, MaxRow: maxRow, MaxColumn: maxCol, State: "visible"}, nil
}

func (f *fakeSource) Rows(name string, limit int) ([][]string, error) {
	s, err := f.sheet(name)
	if err != nil {
		return nil, err
	}
	maxRow, maxCol := s.extent()
	if limit > 0 && limit < maxRow {
		maxRow = limit
	}
	var out [][]string
	for r := 1; r <= maxRow; r++ {
		row := make([]string, maxCol)
		for c := 1; c <= maxCol; c++ {
			row[c-1] = s.cells[[2]int{c, r}].Value.String()
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeSource) Value(name string, col, row int) (workbook.Value, error) {
	s, err := f.sheet(name)
	if err != nil {
		return workbook.Value{}, err
	}
	return s.cells[[2]int{col, row}].Value, nil
}

func (f *fakeSource) Style(name string, col, row int) (workbook.Style, error) {
	if f.stylePanic {
		panic("style table corrupted")
	}
	if f.styleErr != nil {
		return workbook.Style{}, f.styleErr
	}
	s, err := f.sheet(name)
	if err != nil {
		return workbook.Style{}, err
	}
	return s.cells[[2]int{col, row}].Style, nil
}

func (f *fakeSource) ConditionalFormatCount(name string) (int, error) {
	s, err := f.sheet(name)
	if err != nil {
		return 0, err
	}
	return s.cf, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeExtractor struct {
	modules []workbook.MacroSource
	err     error
}

func (e *fakeExtractor) Modules() ([]workbook.MacroSource, error) {
	return e.modules, e.err
}
