package reporting

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSupplyReading_JSON(t *testing.T) {
	var d Draft
	in := `{"unitName":"Alpha","date":"2024-01-01","satisfaction":5,"fuel":12.5,"water":"7","provisions":null}`
	if err := json.Unmarshal([]byte(in), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d.Fuel != "12.5" || d.Water != "7" || d.Provisions != "" {
		t.Errorf("readings = %q %q %q", d.Fuel, d.Water, d.Provisions)
	}

	tests := []struct {
		reading SupplyReading
		want    string
	}{
		{"12.5", "12.5"},
		{"", "null"},
		{"lots", `"lots"`},
		{"-3", `"-3"`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.reading)
		if err != nil {
			t.Fatalf("Marshal(%q) failed: %v", tt.reading, err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal(%q) = %s, expected %s", tt.reading, b, tt.want)
		}
	}
}

func TestSupplyReading_Days(t *testing.T) {
	if d, ok := SupplyReading(" 4 ").Days(); !ok || d.IntPart() != 4 {
		t.Errorf("Days(\" 4 \") = %v, %v", d, ok)
	}
	if d, ok := SupplyReading("1e300").Days(); !ok || d.Exponent() != 300 {
		t.Errorf("Days(\"1e300\") = %v, %v", d, ok)
	}
	for _, raw := range []SupplyReading{"", "abc", "-1", "1e400", "-1e400"} {
		if _, ok := raw.Days(); ok {
			t.Errorf("Days(%q) should be absent", raw)
		}
		if raw.Float() != nil {
			t.Errorf("Float(%q) should be nil", raw)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		D Date  `json:"d"`
		P *Date `json:"p"`
	}
	w := wrapper{D: MustParseDate("2024-02-29")}
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `{"d":"2024-02-29","p":null}` {
		t.Errorf("Marshal = %s", b)
	}

	var back wrapper
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.D.Compare(w.D) != 0 {
		t.Errorf("round trip = %s, expected %s", back.D, w.D)
	}
}

func TestDateRange_Contains(t *testing.T) {
	window, err := ParseDateRange("2024-01-01", "")
	if err != nil {
		t.Fatalf("ParseDateRange failed: %v", err)
	}
	if !window.Contains(MustParseDate("2030-01-01")) {
		t.Error("open end should contain future dates")
	}
	if window.Contains(MustParseDate("2023-12-31")) {
		t.Error("window should exclude dates before start")
	}
	if !SingleDay(MustParseDate("2024-01-01")).Contains(MustParseDate("2024-01-01")) {
		t.Error("single day window should contain its day")
	}
	if _, err := ParseDateRange("yesterday", ""); err == nil {
		t.Error("expected error for invalid start")
	}
}

func TestQualityWarnings(t *testing.T) {
	r := Report{Fuel: "n/a", Water: "3", Defibrillators: Defibrillators{Available: 1, Total: 1}}
	if w := r.QualityWarnings(); len(w) != 1 {
		t.Errorf("warnings = %v, expected one", w)
	}

	r = Report{Provisions: "1e400"}
	if w := r.QualityWarnings(); len(w) != 1 || !strings.Contains(w[0], "provisions") {
		t.Errorf("warnings = %v, expected one for overflowing provisions", w)
	}
}

func TestParseDate_RejectsZeroDate(t *testing.T) {
	if _, err := ParseDate("0001-01-01"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ParseDate(0001-01-01) err = %v, expected ErrInvalidDate", err)
	}
	if d, err := ParseDate("0001-01-02"); err != nil || d.String() != "0001-01-02" {
		t.Errorf("ParseDate(0001-01-02) = %v, %v", d, err)
	}
	if _, err := ParseDateRange("0001-01-01", ""); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("zero start bound err = %v, expected ErrInvalidDate", err)
	}
}
