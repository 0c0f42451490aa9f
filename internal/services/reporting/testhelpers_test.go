package reporting

import (
	"testing"
	"time"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Second)
		return t
	}
}

func newTestStore() *Store {
	return NewStoreWithClock(fixedClock(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)))
}

func mustAppend(t *testing.T, s *Store, d Draft) Report {
	t.Helper()
	r, err := s.Append(d)
	if err != nil {
		t.Fatalf("Append(%+v) failed: %v", d, err)
	}
	return r
}

func draft(unit, date string, satisfaction int) Draft {
	return Draft{UnitName: unit, Date: date, Satisfaction: satisfaction}
}

func floatPtrEq(p *float64, want float64) bool {
	return p != nil && *p == want
}
