package models

import (
	"fmt"

	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the configured database and installs the tracing plugin when
// tracing is on.
func InitDB(cfg *config.DatabaseConfig, tracing bool) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			logger.Warn().Err(err).Msg("db connected but failed to install otelgorm plugin")
		}
	}

	DB = db
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BuildingReport{},
		&LLMConfig{},
		&SystemConfig{},
		&AssistantLog{},
		&FleetDigest{},
		&NotificationBot{},
		&SchedulerLock{},
	)
}

// DefaultAssistantPrompt is used when the assistant_prompt setting is empty.
// Placeholders: {{unit}}, {{context}}, {{question}}.
const DefaultAssistantPrompt = `Tu es un assistant militaire expert en gestion de bases. Réponds en français de manière concise et professionnelle.

Périmètre : {{unit}}

Données des rapports :
{{context}}

Question :
{{question}}`

// DefaultUnitQuestion is asked when a unit-scoped request carries no question.
const DefaultUnitQuestion = `Analyse ces rapports quotidiens et fournis un résumé stratégique concis :
1. Vue d'ensemble de l'état opérationnel
2. Tendances des ressources (carburant, eau, vivres)
3. Points d'attention critiques
4. Recommandations`

// SeedDefaultData inserts settings that do not exist yet. Existing values are kept.
func SeedDefaultData(db *gorm.DB) error {
	defaultConfigs := []SystemConfig{
		{Key: "digest_enabled", Value: "false", Type: "bool", Group: "digest", Label: "Enable Fleet Digest"},
		{Key: "digest_time", Value: "18:00", Type: "time", Group: "digest", Label: "Digest Time (HH:MM)"},
		{Key: "digest_holiday_country", Value: "FR", Type: "string", Group: "digest", Label: "Skip Digest On Holidays Of"},
		{Key: "digest_low_supply_days", Value: "3", Type: "int", Group: "digest", Label: "Low Supply Threshold (days)"},
		{Key: "digest_llm_config_id", Value: "0", Type: "int", Group: "digest", Label: "Digest LLM Config"},
		{Key: "assistant_prompt", Value: "", Type: "string", Group: "assistant", Label: "Assistant Prompt Override"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		if err := db.Model(&SystemConfig{}).Where(map[string]interface{}{"key": cfg.Key}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
