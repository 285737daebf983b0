package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Counts are the summary figures embedded in a rendered report.
type Counts struct {
	SheetCount int
	TotalRows  int
	RiskLevel  string
}

var summaryRow = regexp.MustCompile(`(?m)^\| (Sheets|Total Rows|Risk Level) \| ([^|]+) \|$`)

// ParseCounts reads the summary table back out of a Markdown report.
func ParseCounts(md string) (Counts, error) {
	var c Counts
	found := map[string]bool{}
	for _, m := range summaryRow.FindAllStringSubmatch(md, -1) {
		key, val := m[1], strings.TrimSpace(m[2])
		found[key] = true
		switch key {
		case "Sheets":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Counts{}, fmt.Errorf("bad sheet count %q: %w", val, err)
			}
			c.SheetCount = n
		case "Total Rows":
			n, err := strconv.Atoi(strings.ReplaceAll(val, ",", ""))
			if err != nil {
				return Counts{}, fmt.Errorf("bad row total %q: %w", val, err)
			}
			c.TotalRows = n
		case "Risk Level":
			c.RiskLevel = val
		}
	}
	if len(found) != 3 {
		return Counts{}, fmt.Errorf("summary table incomplete: found %d of 3 rows", len(found))
	}
	return c, nil
}
