package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/logger"
	"gorm.io/gorm"
)

const (
	ScopeUnit  = "unit"
	ScopeFleet = "fleet"
)

var (
	ErrAssistantUnavailable = errors.New("assistant is not configured")
	ErrQuestionRequired     = errors.New("question is required for fleet scope")
	ErrAssistantLogNotFound = errors.New("assistant log not found")
)

type AskRequest struct {
	Scope     string `json:"scope" binding:"omitempty,oneof=unit fleet"`
	Unit      string `json:"unit"`
	Question  string `json:"question"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Role      string `json:"-"`
}

type AskResult struct {
	LogID    uint   `json:"log_id"`
	Status   string `json:"status"`
	Answer   string `json:"answer,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// AssistantService answers free-form questions over a unit's history or the
// fleet table. It never writes to the report store.
type AssistantService struct {
	db         *gorm.DB
	reports    *ReportService
	llmConfigs *LLMConfigService
	settings   *SystemConfigService
	bootstrap  config.AssistantConfig
	caller     LLMCaller
	events     EventPublisher
}

func NewAssistantService(db *gorm.DB, reports *ReportService, bootstrap config.AssistantConfig, caller LLMCaller, events EventPublisher) *AssistantService {
	if caller == nil {
		caller = NewProviderCaller()
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &AssistantService{
		db:         db,
		reports:    reports,
		llmConfigs: NewLLMConfigService(db),
		settings:   NewSystemConfigService(db),
		bootstrap:  bootstrap,
		caller:     caller,
		events:     events,
	}
}

// Available reports whether any provider is configured.
func (s *AssistantService) Available() bool {
	return len(s.candidates(0)) > 0
}

func (s *AssistantService) candidates(preferredID uint) []models.LLMConfig {
	configs := s.llmConfigs.Ordered(preferredID)
	if cfg, ok := bootstrapLLMConfig(s.bootstrap); ok {
		configs = append(configs, cfg)
	}
	return configs
}

// Ask answers synchronously and records the exchange.
func (s *AssistantService) Ask(ctx context.Context, req *AskRequest) (*AskResult, error) {
	entry, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, ErrAssistantUnavailable
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record assistant log: %w", err)
	}
	return s.run(ctx, entry)
}

// Submit records a pending request for a worker to answer later.
func (s *AssistantService) Submit(ctx context.Context, req *AskRequest) (*models.AssistantLog, error) {
	entry, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, ErrAssistantUnavailable
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record assistant log: %w", err)
	}
	return entry, nil
}

// ProcessTask answers a pending request recorded by Submit.
func (s *AssistantService) ProcessTask(ctx context.Context, task *AnalysisTask) error {
	entry, err := s.GetLog(task.AssistantLogID)
	if err != nil {
		return err
	}
	if entry.Status != models.AssistantStatusPending {
		logger.Infof("[Assistant] Log %d already %s, skipping", entry.ID, entry.Status)
		return nil
	}
	_, err = s.run(ctx, entry)
	return err
}

func (s *AssistantService) prepare(req *AskRequest) (*models.AssistantLog, error) {
	scope := req.Scope
	if scope == "" {
		scope = ScopeUnit
	}
	window, err := reporting.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	entry := &models.AssistantLog{
		Scope:       scope,
		Role:        req.Role,
		Question:    strings.TrimSpace(req.Question),
		Status:      models.AssistantStatusPending,
		WindowStart: window.Start.String(),
		WindowEnd:   window.End.String(),
	}

	switch scope {
	case ScopeUnit:
		unit := strings.TrimSpace(req.Unit)
		if _, ok := reporting.FindUnit(s.reports.Reports(), unit); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unit)
		}
		entry.UnitName = unit
		if entry.Question == "" {
			entry.Question = models.DefaultUnitQuestion
		}
	case ScopeFleet:
		if entry.Question == "" {
			return nil, ErrQuestionRequired
		}
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
	return entry, nil
}

// buildPrompt renders the template against the current snapshot. Unit scope
// sends the full history; fleet scope sends the aggregate table for the window.
func (s *AssistantService) buildPrompt(entry *models.AssistantLog) (string, int, error) {
	snapshot := s.reports.Reports()

	var payload []byte
	var err error
	subject := entry.UnitName
	if entry.Scope == ScopeFleet {
		window, perr := reporting.ParseDateRange(entry.WindowStart, entry.WindowEnd)
		if perr != nil {
			return "", 0, perr
		}
		payload, err = reporting.BuildFleetContext(snapshot, window).JSON()
		subject = "flotte entière " + window.String()
	} else {
		payload, err = reporting.BuildUnitContext(snapshot, entry.UnitName).JSON()
	}
	if err != nil {
		return "", 0, err
	}

	return RenderPrompt(s.settings.AssistantPrompt(), subject, string(payload), entry.Question), len(payload), nil
}

// RenderPrompt fills the {{unit}}, {{context}} and {{question}} placeholders.
// Templates without {{context}} get the data appended.
func RenderPrompt(template, unit, contextJSON, question string) string {
	if !strings.Contains(template, "{{context}}") {
		template += "\n\n{{context}}"
	}
	if !strings.Contains(template, "{{question}}") {
		template += "\n\n{{question}}"
	}
	return strings.NewReplacer(
		"{{unit}}", unit,
		"{{context}}", contextJSON,
		"{{question}}", question,
	).Replace(template)
}

func (s *AssistantService) run(ctx context.Context, entry *models.AssistantLog) (*AskResult, error) {
	prompt, contextBytes, err := s.buildPrompt(entry)
	if err != nil {
		s.fail(entry, err)
		return nil, err
	}
	entry.ContextBytes = contextBytes

	start := time.Now()
	answer, used, err := s.complete(ctx, prompt, 0)
	entry.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		s.fail(entry, err)
		return nil, err
	}

	entry.Answer = answer
	entry.Status = models.AssistantStatusCompleted
	entry.Provider = used.Provider
	entry.Model = used.Model
	if used.ID != 0 {
		id := used.ID
		entry.LLMConfigID = &id
	}
	if err := s.db.Save(entry).Error; err != nil {
		logger.Errorf("[Assistant] Failed to save answer for log %d: %v", entry.ID, err)
	}

	logger.Infof("[Assistant] Answered log %d (%s/%s) in %dms", entry.ID, used.Provider, used.Model, entry.LatencyMs)
	s.events.Publish(Event{Type: EventAssistantCompleted, Data: map[string]interface{}{
		"id": entry.ID, "scope": entry.Scope, "unitName": entry.UnitName,
	}})

	return &AskResult{
		LogID:    entry.ID,
		Status:   entry.Status,
		Answer:   answer,
		Provider: used.Provider,
		Model:    used.Model,
	}, nil
}

func (s *AssistantService) fail(entry *models.AssistantLog, err error) {
	entry.Status = models.AssistantStatusFailed
	entry.ErrorMessage = err.Error()
	if saveErr := s.db.Save(entry).Error; saveErr != nil {
		logger.Errorf("[Assistant] Failed to save failure for log %d: %v", entry.ID, saveErr)
	}
	logger.Warnf("[Assistant] Log %d failed: %v", entry.ID, err)
	s.events.Publish(Event{Type: EventAssistantFailed, Data: map[string]interface{}{
		"id": entry.ID, "error": err.Error(),
	}})
}

// Complete sends a raw prompt through the ordered providers and returns the
// first answer with the config that produced it.
func (s *AssistantService) Complete(ctx context.Context, prompt string, preferredID uint) (string, *models.LLMConfig, error) {
	answer, used, err := s.complete(ctx, prompt, preferredID)
	if err != nil {
		return "", nil, err
	}
	return answer, &used, nil
}

func (s *AssistantService) complete(ctx context.Context, prompt string, preferredID uint) (string, models.LLMConfig, error) {
	configs := s.candidates(preferredID)
	if len(configs) == 0 {
		return "", models.LLMConfig{}, ErrAssistantUnavailable
	}

	var lastErr error
	for _, cfg := range configs {
		answer, err := s.caller.Call(ctx, &cfg, prompt)
		if err == nil {
			return answer, cfg, nil
		}
		if ctx.Err() != nil {
			return "", models.LLMConfig{}, ctx.Err()
		}
		lastErr = err
		logger.Warnf("[Assistant] LLM %s failed: %v, trying next...", cfg.Name, err)
	}
	return "", models.LLMConfig{}, fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *AssistantService) GetLog(id uint) (*models.AssistantLog, error) {
	var entry models.AssistantLog
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrAssistantLogNotFound, id)
		}
		return nil, err
	}
	return &entry, nil
}

type AssistantLogListRequest struct {
	Unit     string `form:"unit"`
	Status   string `form:"status"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type AssistantLogListResponse struct {
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Items    []models.AssistantLog `json:"items"`
}

func (s *AssistantService) ListLogs(req *AssistantLogListRequest) (*AssistantLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.AssistantLog{})
	if req.Unit != "" {
		query = query.Where("unit_name = ?", req.Unit)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.AssistantLog
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("id DESC").Offset(offset).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &AssistantLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}
