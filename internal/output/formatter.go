// Package output writes analysis reports to disk and command results to
// stdout.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klytics/sheetlens/internal/analysis"
	"github.com/klytics/sheetlens/internal/report"
)

// Format selects which report files are written.
type Format int

const (
	// FormatBoth writes JSON and Markdown.
	FormatBoth Format = iota
	// FormatJSON writes only the JSON report.
	FormatJSON
	// FormatMarkdown writes only the Markdown report.
	FormatMarkdown
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "markdown"
	default:
		return "both"
	}
}

// ParseFormat accepts json, markdown (or md) and both.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "both", "":
		return FormatBoth, nil
	}
	return FormatBoth, fmt.Errorf("unknown output format %q (use json, markdown or both)", s)
}

// Stem derives the report file stem from a workbook path.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteReports writes <stem>_analysis.json and/or <stem>_analysis.md into
// dir and returns the paths written.
func WriteReports(dir, stem string, rep *analysis.Report, format Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}

	var written []string
	if format == FormatJSON || format == FormatBoth {
		data, err := rep.JSON()
		if err != nil {
			return written, fmt.Errorf("could not encode report: %w", err)
		}
		path := filepath.Join(dir, stem+"_analysis.json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return written, fmt.Errorf("could not write %s: %w", path, err)
		}
		written = append(written, path)
	}

	if format == FormatMarkdown || format == FormatBoth {
		path := filepath.Join(dir, stem+"_analysis.md")
		if err := os.WriteFile(path, []byte(report.Markdown(rep)), 0o644); err != nil {
			return written, fmt.Errorf("could not write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteError writes an "Error: " line to Stderr.
func WriteError(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "Error: "+format+"\n", args...)
}
