package models

import "time"

const (
	AssistantStatusPending   = "pending"
	AssistantStatusCompleted = "completed"
	AssistantStatusFailed    = "failed"
)

// AssistantLog records one question put to the assistant and its outcome.
type AssistantLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Scope        string    `gorm:"size:20;not null" json:"scope"` // unit, fleet
	UnitName     string    `gorm:"size:200;index" json:"unit_name"`
	Role         string    `gorm:"size:20" json:"role"`
	WindowStart  string    `gorm:"size:10" json:"window_start,omitempty"`
	WindowEnd    string    `gorm:"size:10" json:"window_end,omitempty"`
	Question     string    `gorm:"type:text" json:"question"`
	Answer       string    `gorm:"type:text" json:"answer"`
	Status       string    `gorm:"size:20;default:pending;index" json:"status"`
	LLMConfigID  *uint     `json:"llm_config_id"`
	Provider     string    `gorm:"size:50" json:"provider"`
	Model        string    `gorm:"size:100" json:"model"`
	ContextBytes int       `json:"context_bytes"`
	LatencyMs    int64     `json:"latency_ms"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int       `gorm:"default:0" json:"retry_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AssistantLog) TableName() string { return "assistant_logs" }
