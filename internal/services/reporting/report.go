// Package reporting is the report aggregation and analytics engine: an append-only
// report store, the unit index, date-windowed aggregates, context payloads for the
// assistant and role-scoped views. Everything except Store is a pure function of
// its arguments.
package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportID is assigned by the Store, strictly increasing, never reused.
type ReportID uint64

// Defibrillators counts available and total units. available > total is accepted
// and surfaced as a data-quality warning.
type Defibrillators struct {
	Available int `json:"available" validate:"gte=0"`
	Total     int `json:"total" validate:"gte=0"`
}

// SupplyReading is a raw days-of-supply value exactly as submitted. It may be empty
// or unparsable; such readings are absent from every rollup.
type SupplyReading string

// Days returns the parsed, non-negative reading. Values that overflow a float64
// are treated as absent.
func (s SupplyReading) Days() (decimal.Decimal, bool) {
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	if f, _ := d.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, false
	}
	return d, true
}

// Float returns the reading as a float, or nil when absent.
func (s SupplyReading) Float() *float64 {
	d, ok := s.Days()
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// UnmarshalJSON accepts a number, a string or null.
func (s *SupplyReading) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
	case b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = SupplyReading(strings.TrimSpace(str))
	default:
		*s = SupplyReading(b)
	}
	return nil
}

// MarshalJSON writes parsable readings as numbers, unparsable ones verbatim as strings.
func (s SupplyReading) MarshalJSON() ([]byte, error) {
	if d, ok := s.Days(); ok {
		return []byte(d.String()), nil
	}
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// Report is one immutable status submission for one unit on one day.
type Report struct {
	ID             ReportID       `json:"id"`
	UnitName       string         `json:"unitName"`
	Date           Date           `json:"date"`
	Timestamp      time.Time      `json:"timestamp"`
	Satisfaction   int            `json:"satisfaction"`
	Fuel           SupplyReading  `json:"fuel"`
	Water          SupplyReading  `json:"water"`
	Provisions     SupplyReading  `json:"provisions"`
	Armament       string         `json:"armament,omitempty"`
	CommanderNote  string         `json:"commanderNote,omitempty"`
	Forecast       string         `json:"forecast,omitempty"`
	PhotoCaption   string         `json:"photoCaption,omitempty"`
	Defibrillators Defibrillators `json:"defibrillators"`
	Photo          string         `json:"photo,omitempty"`
}

// QualityWarnings lists suspicious but accepted values.
func (r Report) QualityWarnings() []string {
	var warnings []string
	if r.Defibrillators.Available > r.Defibrillators.Total {
		warnings = append(warnings, fmt.Sprintf("defibrillators available (%d) exceeds total (%d)",
			r.Defibrillators.Available, r.Defibrillators.Total))
	}
	for _, f := range []struct {
		name    string
		reading SupplyReading
	}{{"fuel", r.Fuel}, {"water", r.Water}, {"provisions", r.Provisions}} {
		if f.reading != "" {
			if _, ok := f.reading.Days(); !ok {
				warnings = append(warnings, fmt.Sprintf("%s reading %q is not a finite non-negative number", f.name, string(f.reading)))
			}
		}
	}
	return warnings
}

// newerThan orders reports by subject date, then by creation order.
func (r Report) newerThan(other Report) bool {
	if c := r.Date.Compare(other.Date); c != 0 {
		return c > 0
	}
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.After(other.Timestamp)
	}
	return r.ID > other.ID
}

// Draft is a report as submitted, before the store assigns id and timestamp.
type Draft struct {
	UnitName       string         `json:"unitName" validate:"required"`
	Date           string         `json:"date" validate:"required,isodate"`
	Satisfaction   int            `json:"satisfaction" validate:"min=1,max=10"`
	Fuel           SupplyReading  `json:"fuel"`
	Water          SupplyReading  `json:"water"`
	Provisions     SupplyReading  `json:"provisions"`
	Armament       string         `json:"armament"`
	CommanderNote  string         `json:"commanderNote"`
	Forecast       string         `json:"forecast"`
	PhotoCaption   string         `json:"photoCaption"`
	Defibrillators Defibrillators `json:"defibrillators"`
	Photo          string         `json:"photo"`
}

// Validate checks required fields and ranges and returns the normalized report
// without id or timestamp.
func (d Draft) Validate() (Report, error) {
	d.UnitName = strings.TrimSpace(d.UnitName)
	d.Date = strings.TrimSpace(d.Date)
	if err := validate.Struct(d); err != nil {
		return Report{}, toValidationError(err)
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Report{}, &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
	}
	return Report{
		UnitName:       d.UnitName,
		Date:           date,
		Satisfaction:   d.Satisfaction,
		Fuel:           d.Fuel,
		Water:          d.Water,
		Provisions:     d.Provisions,
		Armament:       strings.TrimSpace(d.Armament),
		CommanderNote:  strings.TrimSpace(d.CommanderNote),
		Forecast:       strings.TrimSpace(d.Forecast),
		PhotoCaption:   strings.TrimSpace(d.PhotoCaption),
		Defibrillators: d.Defibrillators,
		Photo:          d.Photo,
	}, nil
}
