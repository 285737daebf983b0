package analysis

import (
	"encoding/json"
	"time"

	"github.com/klytics/sheetlens/internal/workbook"
)

// Report is the aggregate result of analysing one workbook. The JSON keys
// are stable.
type Report struct {
	FileInfo   FileInfo                   `json:"file_info"`
	Metadata   Section[workbook.Metadata] `json:"metadata"`
	Structure  Section[Structure]         `json:"structure"`
	Content    Section[Content]           `json:"content"`
	Formatting Section[Formatting]        `json:"formatting"`
	Macros     Section[MacroAnalysis]     `json:"vba_analysis"`
	Summary    Summary                    `json:"summary"`
}

// FileInfo identifies the analysed file and run.
type FileInfo struct {
	AnalysisID        string    `json:"analysis_id"`
	FileName          string    `json:"file_name"`
	FilePath          string    `json:"file_path"`
	FileSize          int64     `json:"file_size"`
	FileSizeMB        float64   `json:"file_size_mb"`
	MacroEnabled      bool      `json:"is_macro_enabled"`
	LastModified      time.Time `json:"last_modified"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
}

// Structure lists every sheet with its structural facts.
type Structure struct {
	SheetCount int                           `json:"sheet_count"`
	SheetNames []string                      `json:"sheet_names"`
	Sheets     map[string]workbook.SheetInfo `json:"sheets"`
}

// Content holds per-sheet data characteristics.
type Content struct {
	TotalRows    int                     `json:"total_rows"`
	TotalColumns int                     `json:"total_columns"`
	Sheets       map[string]SheetContent `json:"sheets"`
}

// SheetContent describes the data of one sheet. Rows and Columns are the
// sheet extent; SampleData and NonEmptyCounts cover the preview rows only,
// and the formula fields cover the formula sample window only.
type SheetContent struct {
	Rows               int                  `json:"rows"`
	Columns            int                  `json:"columns"`
	ColumnNames        []string             `json:"column_names"`
	HeaderPatterns     HeaderClassification `json:"header_patterns"`
	SampleData         [][]string           `json:"sample_data"`
	NonEmptyCounts     map[string]int       `json:"non_empty_counts"`
	HasFormulas        bool                 `json:"has_formulas"`
	FormulaCountSample int                  `json:"formula_count_sample"`
	Formulas           []FormulaRecord      `json:"formulas"`
}

// Formatting holds the per-sheet style profiles and their roll-up.
type Formatting struct {
	Sheets  map[string]StyleProfile `json:"sheets"`
	Summary FormattingSummary       `json:"summary"`
}

// FormattingSummary aggregates style profiles across sheets. Font and
// colour sets are sorted.
type FormattingSummary struct {
	TotalStyledCells         int      `json:"total_styled_cells"`
	UniqueFonts              []string `json:"unique_fonts"`
	UniqueColors             []string `json:"unique_colors"`
	HasConditionalFormatting bool     `json:"has_conditional_formatting"`
}

// MacroAnalysis is the macro section. When Message is set the workbook
// could not carry macros and only the message is serialised.
type MacroAnalysis struct {
	Message    string           `json:"message,omitempty"`
	HasMacros  bool             `json:"has_macros"`
	Modules    []MacroModule    `json:"modules"`
	Security   SecurityAnalysis `json:"security_analysis"`
	Statistics CodeStatistics   `json:"code_statistics"`
}

type macroAnalysisJSON MacroAnalysis

func (m MacroAnalysis) MarshalJSON() ([]byte, error) {
	if m.Message != "" {
		return json.Marshal(map[string]string{"message": m.Message})
	}
	return json.Marshal(macroAnalysisJSON(m))
}

// SecurityAnalysis splits findings by category.
type SecurityAnalysis struct {
	SuspiciousKeywords []SecurityFinding `json:"suspicious_keywords"`
	AutoExecKeywords   []SecurityFinding `json:"auto_exec_keywords"`
	IOCs               []SecurityFinding `json:"iocs"`
	RiskLevel          RiskLevel         `json:"risk_level"`
}

// CodeStatistics totals module sizes.
type CodeStatistics struct {
	TotalModules    int `json:"total_modules"`
	TotalLines      int `json:"total_lines"`
	TotalCharacters int `json:"total_characters"`
}

// Summary holds the derived heuristics.
type Summary struct {
	EstimatedPurpose   string     `json:"estimated_purpose"`
	Complexity         string     `json:"complexity"`
	DatasetSize        string     `json:"dataset_size,omitempty"`
	FormattingDensity  string     `json:"formatting_density,omitempty"`
	SheetCount         int        `json:"total_sheets"`
	SheetsWithData     int        `json:"sheets_with_data"`
	TotalRows          int        `json:"total_rows"`
	TotalColumns       int        `json:"total_columns"`
	KeySheets          []KeySheet `json:"key_sheets"`
	RiskLevel          *RiskLevel `json:"risk_level,omitempty"`
	RecommendedActions []string   `json:"recommended_actions"`
	FailedPhases       []string   `json:"failed_phases,omitempty"`
}

// KeySheet is a sheet with substantial data.
type KeySheet struct {
	Name      string   `json:"name"`
	Rows      int      `json:"rows"`
	Columns   int      `json:"columns"`
	KeyFields []string `json:"key_fields"`
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
