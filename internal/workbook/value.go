package workbook

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindEmpty is a cell with no value.
	KindEmpty Kind = iota
	// KindText is a string cell.
	KindText
	// KindNumber is a numeric cell.
	KindNumber
	// KindBool is a boolean cell.
	KindBool
	// KindDate is a date/time cell, kept as the parser's formatted text.
	KindDate
	// KindError is an error literal such as #DIV/0!.
	KindError
	// KindFormula is a cell whose content is a formula. Text holds the
	// formula source including the leading '='.
	KindFormula
)

var kindNames = [...]string{"empty", "text", "number", "bool", "date", "error", "formula"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single cell value. Consumers switch on Kind.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
}

// EmptyValue returns the empty value.
func EmptyValue() Value { return Value{Kind: KindEmpty} }

// TextValue returns a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NumberValue returns a numeric value.
func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Number: n, Text: strconv.FormatFloat(n, 'f', -1, 64)}
}

// BoolValue returns a boolean value.
func BoolValue(b bool) Value {
	v := Value{Kind: KindBool, Text: "FALSE"}
	if b {
		v.Number, v.Text = 1, "TRUE"
	}
	return v
}

// DateValue returns a date value carrying its display text.
func DateValue(s string) Value { return Value{Kind: KindDate, Text: s} }

// ErrorValue returns an error literal value.
func ErrorValue(s string) Value { return Value{Kind: KindError, Text: s} }

// FormulaValue returns a formula value. A missing leading '=' is added.
func FormulaValue(src string) Value {
	if !strings.HasPrefix(src, "=") {
		src = "=" + src
	}
	return Value{Kind: KindFormula, Text: src}
}

// IsEmpty reports whether v holds nothing.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// IsFormula reports whether v is formula-typed, or is text that begins
// with '=' (a formula the parser did not tag).
func (v Value) IsFormula() bool {
	switch v.Kind {
	case KindFormula:
		return true
	case KindText:
		return strings.HasPrefix(v.Text, "=")
	default:
		return false
	}
}

// String returns the display text of v.
func (v Value) String() string {
	if v.Kind == KindEmpty {
		return ""
	}
	return v.Text
}
