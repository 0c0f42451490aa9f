package models

import (
	"testing"

	"github.com/huangang/basewatch/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSeedDefaultData_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := SeedDefaultData(db); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := db.Model(&SystemConfig{}).Where(map[string]interface{}{"key": "digest_time"}).Update("value", "07:30").Error; err != nil {
		t.Fatal(err)
	}
	if err := SeedDefaultData(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	db.Model(&SystemConfig{}).Count(&count)
	if count != 6 {
		t.Errorf("expected 6 settings, got %d", count)
	}

	var digestTime SystemConfig
	db.Where(map[string]interface{}{"key": "digest_time"}).First(&digestTime)
	if digestTime.Value != "07:30" {
		t.Errorf("reseeding overwrote digest_time: %q", digestTime.Value)
	}
}

func TestInitDB_UnsupportedDriver(t *testing.T) {
	if err := InitDB(&config.DatabaseConfig{Driver: "oracle"}, false); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestLLMConfig_MaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"sk-ant-1234567890", "sk-a****7890"},
	}
	for _, tt := range tests {
		c := LLMConfig{APIKey: tt.key}
		if got := c.MaskAPIKey(); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, expected %q", tt.key, got, tt.want)
		}
	}
}
