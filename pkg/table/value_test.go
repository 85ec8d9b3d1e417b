package table

import (
	"testing"
	"time"
)

func TestValueRender(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null renders empty", Null(), ""},
		{"string", String("hello"), "hello"},
		{"integer-valued number", Number(42), "42"},
		{"fractional number", Number(3.25), "3.25"},
		{"negative number", Number(-7), "-7"},
		{"bool", Bool(true), "true"},
		{"date", Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "2024-03-01T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueIsBlank(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"empty string", String(""), true},
		{"whitespace string", String("   "), true},
		{"text", String("x"), false},
		{"zero number", Number(0), false},
		{"false bool", Bool(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsBlank(); got != tt.want {
				t.Errorf("IsBlank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueFloat(t *testing.T) {
	if f, ok := String(" 12.5 ").Float(); !ok || f != 12.5 {
		t.Errorf("Float() = %v, %v, want 12.5, true", f, ok)
	}
	if _, ok := String("abc").Float(); ok {
		t.Error("Float() should fail for non-numeric string")
	}
	if _, ok := Null().Float(); ok {
		t.Error("Float() should fail for null")
	}
}

func TestValueTime(t *testing.T) {
	d, ok := String("2024-01-15").Time("")
	if !ok {
		t.Fatal("Time() should parse ISO date")
	}
	if d.Year() != 2024 || d.Month() != time.January || d.Day() != 15 {
		t.Errorf("Time() = %v", d)
	}

	// Explicit layout wins over the fallback set.
	d, ok = String("15/01/2024").Time("02/01/2006")
	if !ok || d.Day() != 15 {
		t.Errorf("Time() with layout = %v, %v", d, ok)
	}

	if _, ok := String("not a date").Time(""); ok {
		t.Error("Time() should fail for garbage")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in         string
		wantLayout string
		wantOK     bool
	}{
		{"2024-01-15", "2006-01-02", true},
		{"2024-01-15T10:30:00Z", time.RFC3339, true},
		{"01/15/2024", "01/02/2006", true},
		{"  2024-01-15  ", "2006-01-02", true},
		{"", "", false},
		{"yesterday", "", false},
	}
	for _, tt := range tests {
		_, layout, ok := ParseDate(tt.in)
		if ok != tt.wantOK || layout != tt.wantLayout {
			t.Errorf("ParseDate(%q) layout = %q ok = %v, want %q %v", tt.in, layout, ok, tt.wantLayout, tt.wantOK)
		}
	}
}

func TestValueNative(t *testing.T) {
	if Null().Native() != nil {
		t.Error("null Native() should be nil")
	}
	if Number(2).Native() != 2.0 {
		t.Error("number Native() should be float64")
	}
	if String("a").Native() != "a" {
		t.Error("string Native() mismatch")
	}
}
