// Package workbook defines the parsed-workbook model consumed by the
// analysis engine, and the interfaces parser adapters implement.
package workbook

import (
	"path/filepath"
	"strings"
)

// Style is the formatting attached to one cell.
type Style struct {
	FontName    string  `json:"font_name,omitempty"`
	FontSize    float64 `json:"font_size,omitempty"`
	FillColor   string  `json:"fill_color,omitempty"` // empty when there is no foreground fill
	BorderEdges int     `json:"border_edges,omitempty"`
}

// HasFont reports whether the cell names a font.
func (s Style) HasFont() bool { return s.FontName != "" }

// HasFill reports whether the cell has a foreground fill colour.
func (s Style) HasFill() bool { return s.FillColor != "" }

// HasBorder reports whether at least one border edge is drawn.
func (s Style) HasBorder() bool { return s.BorderEdges > 0 }

// Cell is a value/style pair at a 1-based coordinate.
type Cell struct {
	Col   int
	Row   int
	Value Value
	Style Style
}

// Protection describes sheet protection flags.
type Protection struct {
	Locked            bool `json:"sheet_protected"`
	PasswordProtected bool `json:"password_protected"`
}

// SheetInfo holds the structural facts of one worksheet.
type SheetInfo struct {
	Name        string     `json:"name"`
	Index       int        `json:"index"`
	MaxRow      int        `json:"max_row"`
	MaxColumn   int        `json:"max_column"`
	Dimension   string     `json:"dimensions"`
	State       string     `json:"sheet_state"`
	MergedCells int        `json:"merged_cells_count"`
	HasCharts   bool       `json:"has_charts"`
	HasImages   bool       `json:"has_images"`
	Protection  Protection `json:"protection"`
}

// Metadata holds workbook document properties.
type Metadata struct {
	Creator        string   `json:"creator"`
	Title          string   `json:"title"`
	Subject        string   `json:"subject"`
	Description    string   `json:"description"`
	Keywords       string   `json:"keywords"`
	Category       string   `json:"category"`
	Created        string   `json:"created"`
	Modified       string   `json:"modified"`
	LastModifiedBy string   `json:"last_modified_by"`
	Revision       string   `json:"revision"`
	Version        string   `json:"version"`
	DefinedNames   []string `json:"defined_names"`
}

// MacroSource is one macro module as handed over by a macro extractor.
type MacroSource struct {
	ContainerPath string // file the project was read from
	StreamPath    string // container-internal stream, e.g. VBA/Module1
	ModuleName    string // module filename, e.g. Module1.bas
	Code          string
}

// Source is an opened workbook. Implementations own the underlying file
// handle and release it on Close.
type Source interface {
	Path() string
	SheetNames() []string
	// MacroEnabled reports whether the container may host macro code.
	MacroEnabled() bool
	Metadata() (*Metadata, error)
	SheetInfo(sheet string) (*SheetInfo, error)
	// Rows returns up to limit leading rows as display strings.
	Rows(sheet string, limit int) ([][]string, error)
	Value(sheet string, col, row int) (Value, error)
	Style(sheet string, col, row int) (Style, error)
	// ConditionalFormatCount returns the number of conditional format
	// rules on the sheet, or 0 when the parser cannot report them.
	ConditionalFormatCount(sheet string) (int, error)
	Close() error
}

// MacroExtractor yields the macro modules stored in a container.
type MacroExtractor interface {
	Modules() ([]MacroSource, error)
}

var macroExtensions = map[string]bool{
	".xlsm": true,
	".xltm": true,
	".xlam": true,
}

// supportedExtensions lists the workbook types the analyzer accepts.
var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// IsMacroExtension reports whether path names a macro-capable container.
func IsMacroExtension(path string) bool {
	return macroExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsSupported reports whether path has a supported workbook extension.
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}
