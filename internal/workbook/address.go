package workbook

import "strconv"

// ColumnLetter converts a 1-based column number to its letter form.
func ColumnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// CellName builds an A1-style reference from 1-based coordinates.
func CellName(col, row int) string {
	return ColumnLetter(col) + strconv.Itoa(row)
}
