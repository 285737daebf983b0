package analysis

import (
	"bytes"
	"encoding/json"
)

const (
	PurposeCostEstimation = "Cost Estimation Template"
	PurposeRequirements   = "Requirements Management"
	PurposeData           = "Data Template"
)

const keySheetMinRows = 10

var recommendedActions = []string{
	"File contains structured data suitable for processing",
	"Consider creating data models based on identified patterns",
	"Validate data quality and consistency across sheets",
}

// Summarize derives the summary from the sections already in rep.
// Sections that failed contribute nothing.
func Summarize(rep *Report, sheetCount int) Summary {
	s := Summary{
		SheetCount:         sheetCount,
		Complexity:         complexity(sheetCount),
		KeySheets:          []KeySheet{},
		RecommendedActions: []string{},
	}

	if rep.Content.OK() {
		for _, name := range sheetOrder(rep) {
			sc, ok := rep.Content.Data.Sheets[name]
			if !ok || sc.Rows == 0 {
				continue
			}
			s.SheetsWithData++
			s.TotalRows += sc.Rows
			s.TotalColumns = max(s.TotalColumns, sc.Columns)
			if sc.Rows > keySheetMinRows {
				fields := sc.ColumnNames
				if len(fields) > 5 {
					fields = fields[:5]
				}
				s.KeySheets = append(s.KeySheets, KeySheet{
					Name:      name,
					Rows:      sc.Rows,
					Columns:   sc.Columns,
					KeyFields: fields,
				})
			}
		}
	}
	s.DatasetSize = datasetSize(s.TotalRows)

	if rep.Formatting.OK() {
		s.FormattingDensity = formattingDensity(rep.Formatting.Data.Summary.TotalStyledCells)
	}

	if rep.Macros.OK() && rep.Macros.Data.HasMacros {
		risk := rep.Macros.Data.Security.RiskLevel
		s.RiskLevel = &risk
	}

	s.EstimatedPurpose = estimatePurpose(rep)

	if s.SheetsWithData > 0 {
		s.RecommendedActions = append(s.RecommendedActions, recommendedActions...)
	}

	for _, p := range []struct {
		name   string
		failed bool
	}{
		{PhaseMetadata, rep.Metadata.Failed()},
		{PhaseStructure, rep.Structure.Failed()},
		{PhaseContent, rep.Content.Failed()},
		{PhaseFormatting, rep.Formatting.Failed()},
		{PhaseMacros, rep.Macros.Failed()},
	} {
		if p.failed {
			s.FailedPhases = append(s.FailedPhases, p.name)
		}
	}
	return s
}

// sheetOrder returns sheet names in workbook order when the structure
// section has them, otherwise in content map order sorted by name.
func sheetOrder(rep *Report) []string {
	if rep.Structure.OK() {
		return rep.Structure.Data.SheetNames
	}
	names := make(map[string]bool, len(rep.Content.Data.Sheets))
	for n := range rep.Content.Data.Sheets {
		names[n] = true
	}
	return sortedKeys(names)
}

func complexity(sheets int) string {
	switch {
	case sheets > 20:
		return "complex"
	case sheets > 10:
		return "medium"
	default:
		return "simple"
	}
}

func datasetSize(rows int) string {
	switch {
	case rows > 10000:
		return "large"
	case rows > 1000:
		return "medium"
	default:
		return ""
	}
}

func formattingDensity(styled int) string {
	switch {
	case styled > 1000:
		return "heavy"
	case styled > 100:
		return "moderate"
	default:
		return ""
	}
}

// estimatePurpose searches the serialised structure and content sections
// for cost, estimate or requirement. Any occurrence counts, including
// sample cell values and sheet names.
func estimatePurpose(rep *Report) string {
	text, err := json.Marshal(struct {
		Structure Section[Structure] `json:"structure"`
		Content   Section[Content]   `json:"content"`
	}{rep.Structure, rep.Content})
	if err != nil {
		return PurposeData
	}
	text = bytes.ToLower(text)
	switch {
	case bytes.Contains(text, []byte("cost")), bytes.Contains(text, []byte("estimate")):
		return PurposeCostEstimation
	case bytes.Contains(text, []byte("requirement")):
		return PurposeRequirements
	default:
		return PurposeData
	}
}
