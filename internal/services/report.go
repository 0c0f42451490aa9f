package services

import (
	"context"
	"fmt"

	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/logger"
	"gorm.io/gorm"
)

// ReportRepository persists reports outside the in-memory store.
type ReportRepository interface {
	Save(ctx context.Context, r reporting.Report) error
	LoadAll(ctx context.Context) ([]reporting.Report, error)
}

type GormReportRepository struct {
	db *gorm.DB
}

func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

func (r *GormReportRepository) Save(ctx context.Context, report reporting.Report) error {
	row := toReportModel(report)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert report %d: %w", report.ID, err)
	}
	return nil
}

func (r *GormReportRepository) LoadAll(ctx context.Context) ([]reporting.Report, error) {
	var rows []models.BuildingReport
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	reports := make([]reporting.Report, 0, len(rows))
	for _, row := range rows {
		report, err := fromReportModel(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func toReportModel(r reporting.Report) models.BuildingReport {
	return models.BuildingReport{
		ID:             uint64(r.ID),
		UnitName:       r.UnitName,
		ReportDate:     r.Date.String(),
		SubmittedAt:    r.Timestamp,
		Satisfaction:   r.Satisfaction,
		Fuel:           string(r.Fuel),
		Water:          string(r.Water),
		Provisions:     string(r.Provisions),
		Armament:       r.Armament,
		CommanderNote:  r.CommanderNote,
		Forecast:       r.Forecast,
		PhotoCaption:   r.PhotoCaption,
		DefibAvailable: r.Defibrillators.Available,
		DefibTotal:     r.Defibrillators.Total,
		Photo:          r.Photo,
	}
}

func fromReportModel(row models.BuildingReport) (reporting.Report, error) {
	date, err := reporting.ParseDate(row.ReportDate)
	if err != nil {
		return reporting.Report{}, fmt.Errorf("report %d: %w", row.ID, err)
	}
	return reporting.Report{
		ID:             reporting.ReportID(row.ID),
		UnitName:       row.UnitName,
		Date:           date,
		Timestamp:      row.SubmittedAt.UTC(),
		Satisfaction:   row.Satisfaction,
		Fuel:           reporting.SupplyReading(row.Fuel),
		Water:          reporting.SupplyReading(row.Water),
		Provisions:     reporting.SupplyReading(row.Provisions),
		Armament:       row.Armament,
		CommanderNote:  row.CommanderNote,
		Forecast:       row.Forecast,
		PhotoCaption:   row.PhotoCaption,
		Defibrillators: reporting.Defibrillators{Available: row.DefibAvailable, Total: row.DefibTotal},
		Photo:          row.Photo,
	}, nil
}

// ReportService owns the process-wide store. Every submission goes through the
// store's append lock and is written to the repository before it becomes visible.
type ReportService struct {
	store  *reporting.Store
	repo   ReportRepository
	events EventPublisher
}

func NewReportService(store *reporting.Store, repo ReportRepository, events EventPublisher) *ReportService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ReportService{store: store, repo: repo, events: events}
}

// Hydrate loads persisted reports into the empty store.
func (s *ReportService) Hydrate(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	reports, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Restore(reports); err != nil {
		return err
	}
	logger.Infof("[Report] Hydrated %d reports", len(reports))
	return nil
}

type SubmitResult struct {
	Report   reporting.Report `json:"report"`
	Warnings []string         `json:"warnings,omitempty"`
}

func (s *ReportService) Submit(ctx context.Context, draft reporting.Draft) (*SubmitResult, error) {
	var commit func(reporting.Report) error
	if s.repo != nil {
		commit = func(r reporting.Report) error {
			return s.repo.Save(ctx, r)
		}
	}

	report, err := s.store.AppendWith(draft, commit)
	if err != nil {
		return nil, err
	}

	warnings := report.QualityWarnings()
	for _, w := range warnings {
		logger.Warn().Uint64("report_id", uint64(report.ID)).Str("unit", report.UnitName).Msg("[Report] " + w)
	}
	logger.Infof("[Report] Accepted report %d for %s dated %s", report.ID, report.UnitName, report.Date)

	s.events.Publish(Event{
		Type: EventReportSubmitted,
		Data: map[string]interface{}{
			"id":       report.ID,
			"unitName": report.UnitName,
			"date":     report.Date,
		},
	})

	return &SubmitResult{Report: report, Warnings: warnings}, nil
}

// Reports returns the current snapshot. Callers must not modify it.
func (s *ReportService) Reports() []reporting.Report {
	return s.store.All()
}

func (s *ReportService) Store() *reporting.Store {
	return s.store
}
