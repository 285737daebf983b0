package analysis

import (
	"encoding/json"
	"strings"

	"github.com/klytics/sheetlens/internal/heuristics"
	"github.com/klytics/sheetlens/internal/workbook"
)

const previewChars = 500

// NotMacroEnabled is the macro section message for workbooks whose
// container type cannot hold a VBA project.
const NotMacroEnabled = "File is not macro-enabled"

// RiskLevel is an ordered macro risk tier. Obtain one from ComputeRiskLevel.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "low"
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = ParseRiskLevel(s)
	return nil
}

// ParseRiskLevel maps the textual form back to a level. Unknown text is low.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh
	case "medium":
		return RiskMedium
	default:
		return RiskLow
	}
}

// Scanner matches macro source against a keyword taxonomy.
type Scanner interface {
	Scan(code string) []heuristics.Match
}

// SecurityFinding is one taxonomy hit.
type SecurityFinding struct {
	Category    heuristics.Category `json:"category"`
	Keyword     string              `json:"keyword"`
	Description string              `json:"description"`
}

// MacroModule describes one VBA module.
type MacroModule struct {
	Filename    string   `json:"filename"`
	StreamPath  string   `json:"stream_path"`
	VBAFilename string   `json:"vba_filename"`
	CodeLength  int      `json:"code_length"`
	LineCount   int      `json:"line_count"`
	CodePreview string   `json:"code_preview"`
	Functions   []string `json:"functions"`
	Subroutines []string `json:"subroutines"`
}

// NewMacroModule summarises extracted source.
func NewMacroModule(src workbook.MacroSource) MacroModule {
	functions, subs := ExtractProcedureNames(src.Code)
	preview := src.Code
	if r := []rune(preview); len(r) > previewChars {
		preview = string(r[:previewChars]) + "..."
	}
	return MacroModule{
		Filename:    src.ContainerPath,
		StreamPath:  src.StreamPath,
		VBAFilename: src.ModuleName,
		CodeLength:  len([]rune(src.Code)),
		LineCount:   countLines(src.Code),
		CodePreview: preview,
		Functions:   functions,
		Subroutines: subs,
	}
}

func countLines(code string) int {
	if code == "" {
		return 0
	}
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return len(strings.Split(strings.TrimSuffix(code, "\n"), "\n"))
}

var (
	functionPrefixes = []string{"function ", "public function ", "private function "}
	subPrefixes      = []string{"sub ", "public sub ", "private sub "}
)

// ExtractProcedureNames finds Function and Sub declarations by line
// prefix. The name is the last token before the opening parenthesis.
// Declarations split over continuation lines, or decorated with Friend or
// Static, are not recognised.
func ExtractProcedureNames(code string) (functions, subroutines []string) {
	functions, subroutines = []string{}, []string{}
	for _, line := range strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case hasAnyPrefix(lower, functionPrefixes):
			if name := procedureName(line); name != "" {
				functions = append(functions, name)
			}
		case hasAnyPrefix(lower, subPrefixes):
			if name := procedureName(line); name != "" {
				subroutines = append(subroutines, name)
			}
		}
	}
	return functions, subroutines
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func procedureName(line string) string {
	head, _, _ := strings.Cut(line, "(")
	fields := strings.Fields(head)
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-1]
}

// ClassifyFindings scans the combined source of all modules once, so a
// keyword used in several modules is reported a single time.
func ClassifyFindings(modules []workbook.MacroSource, scanner Scanner) []SecurityFinding {
	findings := []SecurityFinding{}
	if scanner == nil || len(modules) == 0 {
		return findings
	}
	codes := make([]string, len(modules))
	for i, m := range modules {
		codes[i] = m.Code
	}
	for _, m := range scanner.Scan(strings.Join(codes, "\n")) {
		findings = append(findings, SecurityFinding{
			Category:    m.Category,
			Keyword:     m.Keyword,
			Description: m.Description,
		})
	}
	return findings
}

// ComputeRiskLevel derives the risk tier from suspicious and IOC counts.
// Auto-exec findings do not contribute.
func ComputeRiskLevel(findings []SecurityFinding) RiskLevel {
	var suspicious, iocs int
	for _, f := range findings {
		switch f.Category {
		case heuristics.Suspicious:
			suspicious++
		case heuristics.IOC:
			iocs++
		}
	}
	switch {
	case iocs > 0 || suspicious > 5:
		return RiskHigh
	case suspicious > 2:
		return RiskMedium
	default:
		return RiskLow
	}
}
