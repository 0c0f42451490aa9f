package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/services/reporting"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Second)
		return t
	}
}

func newTestStore() *reporting.Store {
	return reporting.NewStoreWithClock(steppingClock(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)))
}

// memoryRepo is a ReportRepository backed by a slice.
type memoryRepo struct {
	saved   []reporting.Report
	saveErr error
}

func (m *memoryRepo) Save(_ context.Context, r reporting.Report) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *memoryRepo) LoadAll(context.Context) ([]reporting.Report, error) {
	return m.saved, nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func submitAll(t *testing.T, svc *ReportService, drafts ...reporting.Draft) {
	t.Helper()
	for _, d := range drafts {
		if _, err := svc.Submit(context.Background(), d); err != nil {
			t.Fatalf("Submit(%+v): %v", d, err)
		}
	}
}
