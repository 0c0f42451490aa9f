package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/internal/services/reporting"
)

type digestFixture struct {
	svc      *DigestService
	reports  *ReportService
	events   *recordingPublisher
	received *atomic.Int32
	lastBody *atomic.Value
}

func newDigestFixture(t *testing.T, assistant config.AssistantConfig, caller LLMCaller) *digestFixture {
	t.Helper()
	db := openTestDB(t)
	reports := NewReportService(newTestStore(), NewGormReportRepository(db), nil)
	submitAll(t, reports,
		reporting.Draft{UnitName: "Alpha", Date: "2024-01-02", Satisfaction: 6, Fuel: "2", Water: "9", Provisions: "12"},
		reporting.Draft{UnitName: "Bravo", Date: "2024-01-02", Satisfaction: 9, Fuel: "8", Water: "1.5"},
		reporting.Draft{UnitName: "Charlie", Date: "2024-01-01", Satisfaction: 3, Fuel: "0"},
	)

	var received atomic.Int32
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		lastBody.Store(string(raw))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	bots := NewNotificationBotService(db)
	if _, err := bots.Create(&CreateNotificationBotRequest{Name: "hook", Type: "generic", Webhook: srv.URL}); err != nil {
		t.Fatal(err)
	}

	events := &recordingPublisher{}
	assistantSvc := NewAssistantService(db, reports, assistant, caller, nil)
	svc := NewDigestService(db, reports, assistantSvc, NewDBLocker(db), events)
	return &digestFixture{svc: svc, reports: reports, events: events, received: &received, lastBody: &lastBody}
}

func TestCronExprFor(t *testing.T) {
	tests := map[string]string{
		"18:00":  "0 18 * * *",
		"07:45":  "45 7 * * *",
		" 9:05 ": "5 9 * * *",
		"25:00":  "0 18 * * *",
		"":       "0 18 * * *",
	}
	for in, want := range tests {
		if got := cronExprFor(in); got != want {
			t.Errorf("cronExprFor(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestDigestService_GenerateDefaultSummary(t *testing.T) {
	f := newDigestFixture(t, config.AssistantConfig{}, &fakeCaller{})

	digest, err := f.svc.Generate(context.Background(), reporting.MustParseDate("2024-01-02"), true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if digest.TotalUnits != 2 || digest.TotalReports != 2 {
		t.Errorf("digest totals = %d units, %d reports, expected 2 and 2 (Charlie reported another day)", digest.TotalUnits, digest.TotalReports)
	}
	if digest.AvgSatisfaction == nil || *digest.AvgSatisfaction != 7.5 {
		t.Errorf("AvgSatisfaction = %v, expected 7.5", digest.AvgSatisfaction)
	}

	var low []LowSupplyUnit
	if err := json.Unmarshal([]byte(digest.LowSupplyUnits), &low); err != nil {
		t.Fatal(err)
	}
	if len(low) != 2 || low[0].Unit != "Alpha" || low[0].Resource != "fuel" || low[1].Unit != "Bravo" || low[1].Resource != "water" {
		t.Errorf("low supply = %+v", low)
	}

	for _, want := range []string{"Synthèse flotte du 2024-01-02", "Satisfaction moyenne : 7.5/10", "Alpha : carburant 2 j", "Bravo : eau 1.5 j"} {
		if !strings.Contains(digest.Summary, want) {
			t.Errorf("summary missing %q:\n%s", want, digest.Summary)
		}
	}
	if digest.AIModelUsed != "" {
		t.Errorf("AIModelUsed = %q without an assistant", digest.AIModelUsed)
	}

	if f.received.Load() != 1 {
		t.Errorf("webhook received %d posts, expected 1", f.received.Load())
	}
	stored, _ := f.svc.GetByID(digest.ID)
	if stored.NotifiedAt == nil || stored.NotifyError != "" {
		t.Errorf("notification result = %v / %q", stored.NotifiedAt, stored.NotifyError)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != EventDigestGenerated {
		t.Errorf("events = %v", got)
	}
}

func TestDigestService_GenerateWithAssistant(t *testing.T) {
	caller := &fakeCaller{answer: "Flotte opérationnelle, Alpha à ravitailler."}
	f := newDigestFixture(t, testBootstrap, caller)

	digest, err := f.svc.Generate(context.Background(), reporting.MustParseDate("2024-01-02"), false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if digest.Summary != caller.answer || digest.AIModelUsed != "claude-sonnet-4-5" {
		t.Errorf("summary = %q, model = %q", digest.Summary, digest.AIModelUsed)
	}
	if !strings.Contains(caller.prompts[0], "Ravitaillement critique") {
		t.Error("prompt should carry the digest question")
	}
	if f.received.Load() != 0 {
		t.Error("bots notified although notify was false")
	}
}

func TestDigestService_AssistantFailureFallsBack(t *testing.T) {
	caller := &fakeCaller{fail: map[string]error{"bootstrap": errors.New("overloaded")}}
	f := newDigestFixture(t, testBootstrap, caller)

	digest, err := f.svc.Generate(context.Background(), reporting.MustParseDate("2024-01-02"), false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(digest.Summary, "Synthèse flotte du 2024-01-02") || digest.AIModelUsed != "" {
		t.Errorf("summary = %q", digest.Summary)
	}
}

func TestDigestService_UpsertByDate(t *testing.T) {
	f := newDigestFixture(t, config.AssistantConfig{}, &fakeCaller{})
	ctx := context.Background()
	date := reporting.MustParseDate("2024-01-02")

	first, err := f.svc.Generate(ctx, date, false)
	if err != nil {
		t.Fatal(err)
	}
	submitAll(t, f.reports, reporting.Draft{UnitName: "Delta", Date: "2024-01-02", Satisfaction: 6})
	second, err := f.svc.Generate(ctx, date, false)
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Errorf("second digest ID = %d, expected %d", second.ID, first.ID)
	}
	digests, total, err := f.svc.List(1, 10)
	if err != nil || total != 1 || digests[0].TotalUnits != 3 {
		t.Errorf("List = %+v, %d, %v", digests, total, err)
	}
}

func TestDigestService_EmptyDay(t *testing.T) {
	f := newDigestFixture(t, testBootstrap, &fakeCaller{answer: "unused"})

	digest, err := f.svc.Generate(context.Background(), reporting.MustParseDate("2024-02-01"), false)
	if err != nil {
		t.Fatal(err)
	}
	if digest.TotalReports != 0 || digest.AvgSatisfaction != nil || !strings.Contains(digest.Summary, "Aucun rapport") {
		t.Errorf("digest = %+v", digest)
	}
	if digest.LowSupplyUnits != "[]" {
		t.Errorf("LowSupplyUnits = %q, expected []", digest.LowSupplyUnits)
	}
}

func TestDigestService_RunScheduled(t *testing.T) {
	f := newDigestFixture(t, config.AssistantConfig{}, &fakeCaller{})
	ctx := context.Background()
	settings := f.svc.settings

	// Tuesday 2024-01-02.
	f.svc.now = func() time.Time { return time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC) }

	if err := f.svc.RunScheduled(ctx); err != nil {
		t.Fatal(err)
	}
	if _, total, _ := f.svc.List(1, 10); total != 0 {
		t.Fatal("digest generated while disabled")
	}

	if err := settings.Set("digest_enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RunScheduled(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RunScheduled(ctx); err != nil {
		t.Fatal(err)
	}
	if _, total, _ := f.svc.List(1, 10); total != 1 {
		t.Errorf("digests = %d, expected 1", total)
	}
	if f.received.Load() != 1 {
		t.Errorf("bots notified %d times, expected 1 (second run must find the lock held)", f.received.Load())
	}

	// New Year's Day is a French public holiday.
	f.svc.now = func() time.Time { return time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC) }
	if err := f.svc.RunScheduled(ctx); err != nil {
		t.Fatal(err)
	}
	if _, total, _ := f.svc.List(1, 10); total != 1 {
		t.Errorf("digest generated on a holiday")
	}
}

func TestDigestService_Resend(t *testing.T) {
	f := newDigestFixture(t, config.AssistantConfig{}, &fakeCaller{})
	ctx := context.Background()

	digest, err := f.svc.Generate(ctx, reporting.MustParseDate("2024-01-02"), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Resend(ctx, digest.ID); err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if f.received.Load() != 1 {
		t.Errorf("webhook posts = %d, expected 1", f.received.Load())
	}
	body, _ := f.lastBody.Load().(string)
	if !strings.Contains(body, "Alpha : carburant 2 j") {
		t.Errorf("resent payload = %s", body)
	}

	if _, err := f.svc.Resend(ctx, 999); !errors.Is(err, ErrDigestNotFound) {
		t.Errorf("Resend(999) = %v", err)
	}
}

func TestDigestService_SchedulerLifecycle(t *testing.T) {
	f := newDigestFixture(t, config.AssistantConfig{}, &fakeCaller{})
	if err := f.svc.settings.Set("digest_time", "06:30"); err != nil {
		t.Fatal(err)
	}

	f.svc.StartScheduler()
	defer f.svc.StopScheduler()

	entries := f.svc.cronScheduler.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, expected 1", len(entries))
	}
	next := entries[0].Next
	if next.Hour() != 6 || next.Minute() != 30 {
		t.Errorf("next run at %v, expected 06:30", next)
	}

	f.svc.Reschedule()
	if got := len(f.svc.cronScheduler.Entries()); got != 1 {
		t.Errorf("entries after reschedule = %d, expected 1", got)
	}
}
