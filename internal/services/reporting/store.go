package reporting

import (
	"sort"
	"sync"
	"time"
)

// timestampStep keeps creation timestamps strictly increasing at the precision
// the relational drivers round-trip (milliseconds).
const timestampStep = time.Millisecond

// Store is the append-only, in-memory collection of reports. Appends are
// serialized; reads take a snapshot and never observe a partial append.
type Store struct {
	mu      sync.RWMutex
	reports []Report
	lastID  ReportID
	lastTS  time.Time
	now     func() time.Time
}

// NewStore returns an empty store using the wall clock.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// NewStoreWithClock is NewStore with an injectable clock.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Append validates the draft, assigns id and timestamp and makes the report visible.
func (s *Store) Append(d Draft) (Report, error) {
	return s.AppendWith(d, nil)
}

// AppendWith is Append with a commit hook that runs under the append lock after
// id and timestamp are assigned. If commit fails the report is not stored; its id
// stays consumed.
func (s *Store) AppendWith(d Draft, commit func(Report) error) (Report, error) {
	r, err := d.Validate()
	if err != nil {
		return Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	r.ID = s.lastID
	r.Timestamp = s.nextTimestamp()

	if commit != nil {
		if err := commit(r); err != nil {
			return Report{}, err
		}
	}

	s.reports = append(s.reports, r)
	return r, nil
}

func (s *Store) nextTimestamp() time.Time {
	ts := s.now().UTC().Truncate(timestampStep)
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(timestampStep)
	}
	s.lastTS = ts
	return ts
}

// Restore loads previously persisted reports into an empty store. Later appends
// continue after the highest restored id and timestamp.
func (s *Store) Restore(reports []Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reports) > 0 {
		return ErrStoreNotEmpty
	}

	restored := make([]Report, len(reports))
	copy(restored, reports)
	sort.SliceStable(restored, func(i, j int) bool { return restored[i].ID < restored[j].ID })

	for _, r := range restored {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
		if r.Timestamp.After(s.lastTS) {
			s.lastTS = r.Timestamp.UTC()
		}
	}
	s.reports = restored
	return nil
}

// All returns the current snapshot in insertion order. Reports are never
// mutated, so the snapshot shares storage; the capped slice keeps later appends
// out of the caller's view. Callers must treat it as read-only.
func (s *Store) All() []Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.reports)
	return s.reports[:n:n]
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
