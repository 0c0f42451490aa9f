package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/huangang/basewatch/internal/config"
)

func TestSyncQueue_RunsProcessor(t *testing.T) {
	q := NewSyncQueue()
	done := make(chan uint, 1)
	q.SetProcessor(func(_ context.Context, task *AnalysisTask) error {
		done <- task.AssistantLogID
		return nil
	})

	if err := q.Enqueue(&AnalysisTask{AssistantLogID: 7}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := <-done; got != 7 {
		t.Errorf("processed log %d, expected 7", got)
	}
	if q.IsAsync() {
		t.Error("sync queue reported async")
	}
}

func TestSyncQueue_NoProcessorDropsTask(t *testing.T) {
	q := NewSyncQueue()
	if err := q.Enqueue(&AnalysisTask{AssistantLogID: 1}); err != nil {
		t.Errorf("Enqueue without processor = %v, expected nil", err)
	}
}

func TestNewTaskQueue_RedisDisabled(t *testing.T) {
	q := NewTaskQueue(&config.RedisConfig{Enabled: false})
	if _, ok := q.(*SyncQueue); !ok {
		t.Errorf("queue = %T, expected *SyncQueue", q)
	}
	if NewWorker(&config.RedisConfig{Enabled: false}) != nil {
		t.Error("worker should be nil when Redis is disabled")
	}
}

func TestWorker_HandleAnalysisTask(t *testing.T) {
	w := &Worker{mux: asynq.NewServeMux()}
	var got uint
	w.SetProcessor(func(_ context.Context, task *AnalysisTask) error {
		got = task.AssistantLogID
		return nil
	})

	payload, _ := json.Marshal(AnalysisTask{AssistantLogID: 42})
	if err := w.handleAnalysisTask(context.Background(), asynq.NewTask(TaskTypeAssistant, payload)); err != nil {
		t.Fatalf("handleAnalysisTask: %v", err)
	}
	if got != 42 {
		t.Errorf("processed log %d, expected 42", got)
	}

	if err := w.handleAnalysisTask(context.Background(), asynq.NewTask(TaskTypeAssistant, []byte("{"))); err == nil {
		t.Error("expected error for malformed payload")
	}
}
