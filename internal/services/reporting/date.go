package reporting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar-date form used for report dates and query windows.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. The zero value means "unset".
type Date struct {
	time.Time
}

// NewDate returns the calendar day of t as seen in t's location, stored at UTC midnight.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. 0001-01-01 is rejected: it is the zero
// Date, which means "unset".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil || t.IsZero() {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare returns -1, 0 or 1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Before(other.Time):
		return -1
	case d.After(other.Time):
		return 1
	default:
		return 0
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// MarshalText keeps text encoders (yaml, form values) on the calendar form
// instead of the promoted RFC 3339 encoding.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) == "null" {
			*d = Date{}
			return nil
		}
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive [Start, End] window. A zero bound is open.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// AllTime is the unbounded window.
var AllTime = DateRange{}

// ParseDateRange parses optional start/end query values. Empty strings leave the bound open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if strings.TrimSpace(start) != "" {
		if r.Start, err = ParseDate(start); err != nil {
			return DateRange{}, err
		}
	}
	if strings.TrimSpace(end) != "" {
		if r.End, err = ParseDate(end); err != nil {
			return DateRange{}, err
		}
	}
	return r, nil
}

// SingleDay returns the window covering exactly d.
func SingleDay(d Date) DateRange {
	return DateRange{Start: d, End: d}
}

// Contains reports whether d falls inside the window, comparing calendar dates only.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Compare(r.Start) < 0 {
		return false
	}
	if !r.End.IsZero() && d.Compare(r.End) > 0 {
		return false
	}
	return true
}

// Inverted reports whether both bounds are set and Start is after End.
// An inverted window matches nothing.
func (r DateRange) Inverted() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.Compare(r.End) > 0
}

func (r DateRange) String() string {
	start, end := r.Start.String(), r.End.String()
	if start == "" {
		start = "…"
	}
	if end == "" {
		end = "…"
	}
	return "[" + start + ", " + end + "]"
}
