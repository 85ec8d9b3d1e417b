package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the runtime type of a single cell value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	}
	return "unknown"
}

// Value is a single cell. The zero value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

// Null returns the null cell value.
func Null() Value { return Value{} }

// String returns a string cell value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric cell value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean cell value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date cell value.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Kind returns the runtime type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether the value is null or renders to the empty string
// after trimming whitespace.
func (v Value) IsBlank() bool {
	if v.kind == KindNull {
		return true
	}
	if v.kind == KindString {
		return strings.TrimSpace(v.str) == ""
	}
	return false
}

// Render returns the display form of the value. Null renders as the empty
// string, never the literal "null".
func (v Value) Render() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format(time.RFC3339)
	}
	return ""
}

// Native returns the value in a JSON-friendly representation: nil, string,
// float64, bool, or an RFC 3339 date string.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindDate:
		return v.t.Format(time.RFC3339)
	}
	return nil
}

// Float returns the value as a float64. String values are parsed after
// trimming; non-numeric values report false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Time returns the value as a time.Time. Date values return directly; string
// values try layout first (when non-empty), then the known date layouts.
func (v Value) Time(layout string) (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.t, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return time.Time{}, false
		}
		if layout != "" {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		t, _, ok := ParseDate(s)
		return t, ok
	}
	return time.Time{}, false
}

// DateLayouts is the fixed set of date layouts recognized during type
// inference and date parsing, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"01/02/06",
}

// ParseDate parses s against the known date layouts and returns the parsed
// time together with the layout that matched.
func ParseDate(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, "", false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}
