package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/pkg/logger"
	"gorm.io/gorm"
)

const (
	MaxRetryCount  = 3
	RetryInterval  = 5 * time.Minute
	RetryBatchSize = 10
)

var ErrAssistantNotFailed = errors.New("only failed assistant requests can be retried")

// RetryService re-runs failed assistant requests until they succeed or
// exhaust MaxRetryCount.
type RetryService struct {
	db        *gorm.DB
	assistant *AssistantService
	interval  time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRetryService(db *gorm.DB, assistant *AssistantService) *RetryService {
	return &RetryService{db: db, assistant: assistant, interval: RetryInterval}
}

func (s *RetryService) StartScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	ticker := time.NewTicker(s.interval)

	s.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.ProcessFailed(context.Background())
			case <-stop:
				return
			}
		}
	}(s.stop)

	logger.Infof("[Retry] Scheduler started, interval: %v, max retries: %d", s.interval, MaxRetryCount)
}

func (s *RetryService) StopScheduler() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()
	s.wg.Wait()
}

// ProcessFailed retries one batch of failed requests and returns how many
// succeeded.
func (s *RetryService) ProcessFailed(ctx context.Context) int {
	var failed []models.AssistantLog
	err := s.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", models.AssistantStatusFailed, MaxRetryCount).
		Order("created_at DESC").
		Limit(RetryBatchSize).
		Find(&failed).Error
	if err != nil {
		logger.Errorf("[Retry] Failed to fetch failed requests: %v", err)
		return 0
	}
	if len(failed) == 0 {
		return 0
	}

	logger.Infof("[Retry] Processing %d failed assistant requests", len(failed))
	succeeded := 0
	for i := range failed {
		if _, err := s.retry(ctx, &failed[i]); err == nil {
			succeeded++
		}
	}
	return succeeded
}

func (s *RetryService) retry(ctx context.Context, entry *models.AssistantLog) (*AskResult, error) {
	claimed, err := s.claim(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !claimed {
		logger.Infof("[Retry] Assistant log %d already claimed, skipping", entry.ID)
		return nil, ErrAssistantNotFailed
	}
	logger.Infof("[Retry] Retrying assistant log %d (attempt %d/%d)", entry.ID, entry.RetryCount, MaxRetryCount)

	result, err := s.assistant.run(ctx, entry)
	if err != nil {
		if entry.RetryCount >= MaxRetryCount {
			logger.Warnf("[Retry] Assistant log %d exceeded max retries", entry.ID)
		}
		return nil, err
	}
	logger.Infof("[Retry] Assistant log %d succeeded on retry", entry.ID)
	return result, nil
}

// claim moves a failed row back to pending. Only one of several concurrent
// callers sees the row change; the others get false.
func (s *RetryService) claim(ctx context.Context, entry *models.AssistantLog) (bool, error) {
	attempt := entry.RetryCount + 1
	res := s.db.WithContext(ctx).Model(&models.AssistantLog{}).
		Where("id = ? AND status = ?", entry.ID, models.AssistantStatusFailed).
		Updates(map[string]interface{}{
			"status":        models.AssistantStatusPending,
			"retry_count":   attempt,
			"error_message": "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	entry.Status = models.AssistantStatusPending
	entry.RetryCount = attempt
	entry.ErrorMessage = ""
	return true, nil
}

// ManualRetry resets the attempt counter and retries immediately.
func (s *RetryService) ManualRetry(ctx context.Context, id uint) (*AskResult, error) {
	entry, err := s.assistant.GetLog(id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.AssistantStatusFailed {
		return nil, ErrAssistantNotFailed
	}
	entry.RetryCount = 0
	return s.retry(ctx, entry)
}
