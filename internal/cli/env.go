package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/internal/services/reporting"
	"gopkg.in/yaml.v3"
)

// openReports connects to the configured database and loads every report.
func openReports(ctx context.Context) (*services.ReportService, func(), error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if err := models.InitDB(&cfg.Database, false); err != nil {
		return nil, nil, err
	}
	db := models.GetDB()
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if err := models.AutoMigrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}

	reports := services.NewReportService(reporting.NewStore(), services.NewGormReportRepository(db), nil)
	if err := reports.Hydrate(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return reports, closeDB, nil
}

// printYAML writes v as YAML using its JSON field names.
func printYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
