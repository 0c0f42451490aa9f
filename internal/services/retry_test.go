package services

import (
	"context"
	"errors"
	"testing"

	"github.com/huangang/basewatch/internal/models"
)

func failedLog(t *testing.T, svc *AssistantService) uint {
	t.Helper()
	if _, err := svc.Ask(context.Background(), &AskRequest{Unit: "Alpha"}); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	var entry models.AssistantLog
	if err := svc.db.Order("id DESC").First(&entry).Error; err != nil {
		t.Fatal(err)
	}
	if entry.Status != models.AssistantStatusFailed {
		t.Fatalf("status = %s", entry.Status)
	}
	return entry.ID
}

func TestRetryService_ProcessFailedRecovers(t *testing.T) {
	caller := &fakeCaller{answer: "Rétabli.", fail: map[string]error{"bootstrap": errors.New("timeout")}}
	svc, _ := newAssistantFixture(t, testBootstrap, caller)
	id := failedLog(t, svc)
	retries := NewRetryService(svc.db, svc)

	if n := retries.ProcessFailed(context.Background()); n != 0 {
		t.Errorf("succeeded = %d while provider still down", n)
	}

	caller.mu.Lock()
	caller.fail = nil
	caller.mu.Unlock()

	if n := retries.ProcessFailed(context.Background()); n != 1 {
		t.Fatalf("succeeded = %d, want 1", n)
	}
	entry, _ := svc.GetLog(id)
	if entry.Status != models.AssistantStatusCompleted || entry.Answer != "Rétabli." || entry.RetryCount != 2 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ErrorMessage != "" {
		t.Errorf("error message kept: %q", entry.ErrorMessage)
	}
}

func TestRetryService_StopsAfterMaxRetries(t *testing.T) {
	caller := &fakeCaller{fail: map[string]error{"bootstrap": errors.New("down")}}
	svc, _ := newAssistantFixture(t, testBootstrap, caller)
	id := failedLog(t, svc)
	retries := NewRetryService(svc.db, svc)

	for i := 0; i < MaxRetryCount+2; i++ {
		retries.ProcessFailed(context.Background())
	}
	entry, _ := svc.GetLog(id)
	if entry.RetryCount != MaxRetryCount {
		t.Errorf("retry count = %d, want %d", entry.RetryCount, MaxRetryCount)
	}
	// one original attempt plus MaxRetryCount retries
	if len(caller.prompts) != 1+MaxRetryCount {
		t.Errorf("calls = %d", len(caller.prompts))
	}
}

func TestRetryService_ManualRetry(t *testing.T) {
	caller := &fakeCaller{fail: map[string]error{"bootstrap": errors.New("down")}}
	svc, _ := newAssistantFixture(t, testBootstrap, caller)
	id := failedLog(t, svc)
	retries := NewRetryService(svc.db, svc)

	svc.db.Model(&models.AssistantLog{}).Where("id = ?", id).Update("retry_count", MaxRetryCount)
	caller.mu.Lock()
	caller.fail = nil
	caller.answer = "OK"
	caller.mu.Unlock()

	result, err := retries.ManualRetry(context.Background(), id)
	if err != nil {
		t.Fatalf("ManualRetry: %v", err)
	}
	if result.Answer != "OK" {
		t.Errorf("answer = %q", result.Answer)
	}

	if _, err := retries.ManualRetry(context.Background(), id); !errors.Is(err, ErrAssistantNotFailed) {
		t.Errorf("completed log: err = %v", err)
	}
	if _, err := retries.ManualRetry(context.Background(), 999); !errors.Is(err, ErrAssistantLogNotFound) {
		t.Errorf("missing log: err = %v", err)
	}
}

func TestRetryService_ClaimedLogIsNotRunTwice(t *testing.T) {
	caller := &fakeCaller{fail: map[string]error{"bootstrap": errors.New("down")}}
	svc, _ := newAssistantFixture(t, testBootstrap, caller)
	id := failedLog(t, svc)
	retries := NewRetryService(svc.db, svc)

	stale, err := svc.GetLog(id)
	if err != nil {
		t.Fatal(err)
	}
	// another runner moved the row back to pending after stale was read
	svc.db.Model(&models.AssistantLog{}).Where("id = ?", id).Update("status", models.AssistantStatusPending)
	calls := len(caller.prompts)

	if _, err := retries.retry(context.Background(), stale); !errors.Is(err, ErrAssistantNotFailed) {
		t.Errorf("retry of claimed log: err = %v", err)
	}
	if len(caller.prompts) != calls {
		t.Errorf("LLM called %d more times", len(caller.prompts)-calls)
	}
	entry, _ := svc.GetLog(id)
	if entry.RetryCount != 0 || entry.Status != models.AssistantStatusPending {
		t.Errorf("entry = %+v, expected untouched", entry)
	}
}

func TestRetryService_SchedulerStartStop(t *testing.T) {
	svc, _ := newAssistantFixture(t, testBootstrap, &fakeCaller{})
	retries := NewRetryService(svc.db, svc)
	retries.StartScheduler()
	retries.StartScheduler()
	retries.StopScheduler()
	retries.StopScheduler()
}
