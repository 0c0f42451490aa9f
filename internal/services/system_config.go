package services

import (
	"strconv"
	"strings"

	"github.com/huangang/basewatch/internal/models"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where(map[string]interface{}{"key": key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where(map[string]interface{}{"key": key}).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where(map[string]interface{}{"group": group}).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

type DigestSettings struct {
	Enabled        bool   `json:"enabled"`
	Time           string `json:"time"`
	HolidayCountry string `json:"holiday_country"`
	LowSupplyDays  int    `json:"low_supply_days"`
	LLMConfigID    uint   `json:"llm_config_id"`
}

func (s *SystemConfigService) GetDigestSettings() DigestSettings {
	lowSupply, err := strconv.Atoi(s.GetWithDefault("digest_low_supply_days", "3"))
	if err != nil || lowSupply < 0 {
		lowSupply = 3
	}
	llmID, _ := strconv.ParseUint(s.GetWithDefault("digest_llm_config_id", "0"), 10, 64)
	return DigestSettings{
		Enabled:        s.GetWithDefault("digest_enabled", "false") == "true",
		Time:           s.GetWithDefault("digest_time", "18:00"),
		HolidayCountry: strings.ToUpper(s.GetWithDefault("digest_holiday_country", "FR")),
		LowSupplyDays:  lowSupply,
		LLMConfigID:    uint(llmID),
	}
}

type UpdateDigestSettingsRequest struct {
	Enabled        *bool   `json:"enabled"`
	Time           *string `json:"time"`
	HolidayCountry *string `json:"holiday_country"`
	LowSupplyDays  *int    `json:"low_supply_days" binding:"omitempty,min=0"`
	LLMConfigID    *uint   `json:"llm_config_id"`
}

func (s *SystemConfigService) UpdateDigestSettings(req *UpdateDigestSettingsRequest) error {
	if req.Enabled != nil {
		if err := s.Set("digest_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			return err
		}
	}
	if req.Time != nil {
		if err := s.Set("digest_time", strings.TrimSpace(*req.Time)); err != nil {
			return err
		}
	}
	if req.HolidayCountry != nil {
		if err := s.Set("digest_holiday_country", strings.ToUpper(strings.TrimSpace(*req.HolidayCountry))); err != nil {
			return err
		}
	}
	if req.LowSupplyDays != nil {
		if err := s.Set("digest_low_supply_days", strconv.Itoa(*req.LowSupplyDays)); err != nil {
			return err
		}
	}
	if req.LLMConfigID != nil {
		if err := s.Set("digest_llm_config_id", strconv.FormatUint(uint64(*req.LLMConfigID), 10)); err != nil {
			return err
		}
	}
	return nil
}

// AssistantPrompt returns the override template, or the built-in one.
func (s *SystemConfigService) AssistantPrompt() string {
	if p := strings.TrimSpace(s.GetWithDefault("assistant_prompt", "")); p != "" {
		return p
	}
	return models.DefaultAssistantPrompt
}
