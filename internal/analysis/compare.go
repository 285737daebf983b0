package analysis

import "sort"

// SheetDelta describes how one sheet differs between two reports.
type SheetDelta struct {
	Name           string `json:"name"`
	RowsBefore     int    `json:"rows_before"`
	RowsAfter      int    `json:"rows_after"`
	ColumnsBefore  int    `json:"columns_before"`
	ColumnsAfter   int    `json:"columns_after"`
	FormulasBefore int    `json:"formula_count_sample_before"`
	FormulasAfter  int    `json:"formula_count_sample_after"`
	StyledBefore   int    `json:"styled_cells_before"`
	StyledAfter    int    `json:"styled_cells_after"`
}

// Changed reports whether any tracked count differs.
func (d SheetDelta) Changed() bool {
	return d.RowsBefore != d.RowsAfter || d.ColumnsBefore != d.ColumnsAfter ||
		d.FormulasBefore != d.FormulasAfter || d.StyledBefore != d.StyledAfter
}

// Comparison is the difference between two analysed workbooks.
type Comparison struct {
	Before        string       `json:"before"`
	After         string       `json:"after"`
	AddedSheets   []string     `json:"added_sheets"`
	RemovedSheets []string     `json:"removed_sheets"`
	ChangedSheets []SheetDelta `json:"changed_sheets"`
	RiskBefore    *RiskLevel   `json:"risk_before,omitempty"`
	RiskAfter     *RiskLevel   `json:"risk_after,omitempty"`
	PurposeBefore string       `json:"purpose_before"`
	PurposeAfter  string       `json:"purpose_after"`
}

// Identical reports whether nothing tracked changed.
func (c *Comparison) Identical() bool {
	return len(c.AddedSheets) == 0 && len(c.RemovedSheets) == 0 && len(c.ChangedSheets) == 0 &&
		riskString(c.RiskBefore) == riskString(c.RiskAfter) && c.PurposeBefore == c.PurposeAfter
}

func riskString(r *RiskLevel) string {
	if r == nil {
		return ""
	}
	return r.String()
}

// Compare diffs the sheet sets, per-sheet counts, risk and purpose of two
// reports. Sections that failed in either report count as empty.
func Compare(before, after *Report) *Comparison {
	c := &Comparison{
		Before:        before.FileInfo.FileName,
		After:         after.FileInfo.FileName,
		AddedSheets:   []string{},
		RemovedSheets: []string{},
		ChangedSheets: []SheetDelta{},
		RiskBefore:    before.Summary.RiskLevel,
		RiskAfter:     after.Summary.RiskLevel,
		PurposeBefore: before.Summary.EstimatedPurpose,
		PurposeAfter:  after.Summary.EstimatedPurpose,
	}

	bs, as := sheetSet(before), sheetSet(after)
	for name := range as {
		if !bs[name] {
			c.AddedSheets = append(c.AddedSheets, name)
		}
	}
	for name := range bs {
		if !as[name] {
			c.RemovedSheets = append(c.RemovedSheets, name)
			continue
		}
		d := SheetDelta{Name: name}
		d.RowsBefore, d.ColumnsBefore, d.FormulasBefore = contentCounts(before, name)
		d.RowsAfter, d.ColumnsAfter, d.FormulasAfter = contentCounts(after, name)
		d.StyledBefore = styledCells(before, name)
		d.StyledAfter = styledCells(after, name)
		if d.Changed() {
			c.ChangedSheets = append(c.ChangedSheets, d)
		}
	}
	sort.Strings(c.AddedSheets)
	sort.Strings(c.RemovedSheets)
	sort.Slice(c.ChangedSheets, func(i, j int) bool { return c.ChangedSheets[i].Name < c.ChangedSheets[j].Name })
	return c
}

func sheetSet(r *Report) map[string]bool {
	out := map[string]bool{}
	switch {
	case r.Structure.OK():
		for _, n := range r.Structure.Data.SheetNames {
			out[n] = true
		}
	case r.Content.OK():
		for n := range r.Content.Data.Sheets {
			out[n] = true
		}
	}
	return out
}

func contentCounts(r *Report, sheet string) (rows, cols, formulas int) {
	if !r.Content.OK() {
		return 0, 0, 0
	}
	sc := r.Content.Data.Sheets[sheet]
	return sc.Rows, sc.Columns, sc.FormulaCountSample
}

func styledCells(r *Report, sheet string) int {
	if !r.Formatting.OK() {
		return 0
	}
	return r.Formatting.Data.Sheets[sheet].StyledCells
}
