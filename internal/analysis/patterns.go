package analysis

import (
	"strconv"
	"strings"
)

// Header categories.
const (
	CategoryIdentifier = "identifier"
	CategoryName       = "name"
	CategoryDate       = "date"
	CategoryFinancial  = "financial"
	CategoryStatus     = "status"
)

// HeaderClassification maps a category to the 0-based indices of the
// columns whose header matched it, in column order.
type HeaderClassification map[string][]int

var headerKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryIdentifier, []string{"id"}},
	{CategoryName, []string{"name"}},
	{CategoryDate, []string{"date"}},
	{CategoryFinancial, []string{"cost", "price", "amount"}},
	{CategoryStatus, []string{"status"}},
}

// ClassifyHeaders buckets header labels by case-insensitive substring
// match. A header can land in several categories. Categories with no
// match are absent from the result.
func ClassifyHeaders(headers []string) HeaderClassification {
	out := HeaderClassification{}
	for i, h := range headers {
		lower := strings.ToLower(h)
		for _, hk := range headerKeywords {
			for _, kw := range hk.keywords {
				if strings.Contains(lower, kw) {
					out[hk.category] = append(out[hk.category], i)
					break
				}
			}
		}
	}
	return out
}

// SynthesizeHeaders returns the header labels of a sheet with width
// columns. Blank cells become Column_<n> with a 1-based n so that indices
// stay aligned with the sheet.
func SynthesizeHeaders(row []string, width int) []string {
	if width < len(row) {
		width = len(row)
	}
	out := make([]string, width)
	for i := 0; i < width; i++ {
		var v string
		if i < len(row) {
			v = strings.TrimSpace(row[i])
		}
		if v == "" {
			v = "Column_" + strconv.Itoa(i+1)
		}
		out[i] = v
	}
	return out
}
