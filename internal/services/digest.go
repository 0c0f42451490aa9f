package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	digestLockName = "fleet_digest"
	digestLockTTL  = 30 * time.Minute
)

// DefaultDigestQuestion asks the assistant for the end-of-day fleet summary.
const DefaultDigestQuestion = `Rédige la synthèse de fin de journée de la flotte :
1. État général
2. Unités en difficulté (satisfaction basse)
3. Ravitaillement critique
4. Recommandations
Le texte sera lu dans une messagerie : 300 mots maximum.`

var ErrDigestNotFound = errors.New("digest not found")

// LowSupplyUnit is one resource below the digest threshold.
type LowSupplyUnit struct {
	Unit     string  `json:"unit"`
	Resource string  `json:"resource"` // fuel, water, provisions
	Days     float64 `json:"days"`
}

type DigestService struct {
	db        *gorm.DB
	reports   *ReportService
	assistant *AssistantService
	bots      *NotificationBotService
	settings  *SystemConfigService
	holidays  *HolidayService
	locker    Locker
	events    EventPublisher
	now       func() time.Time

	mu             sync.Mutex
	cronScheduler  *cron.Cron
	currentEntryID cron.EntryID
}

// NewDigestService accepts a nil assistant; digests then carry the built-in summary.
func NewDigestService(db *gorm.DB, reports *ReportService, assistant *AssistantService, locker Locker, events EventPublisher) *DigestService {
	if events == nil {
		events = nopPublisher{}
	}
	if locker == nil {
		locker = NewDBLocker(db)
	}
	return &DigestService{
		db:        db,
		reports:   reports,
		assistant: assistant,
		bots:      NewNotificationBotService(db),
		settings:  NewSystemConfigService(db),
		holidays:  NewHolidayService(),
		locker:    locker,
		events:    events,
		now:       time.Now,
	}
}

func (s *DigestService) StartScheduler() {
	s.mu.Lock()
	s.cronScheduler = cron.New()
	s.mu.Unlock()

	s.Reschedule()
	s.cronScheduler.Start()
	logger.Infof("[Digest] Scheduler started")
}

func (s *DigestService) StopScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

// Reschedule re-reads digest_time; call it after the settings change.
func (s *DigestService) Reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cronScheduler == nil {
		return
	}
	if s.currentEntryID != 0 {
		s.cronScheduler.Remove(s.currentEntryID)
		s.currentEntryID = 0
	}

	at := s.settings.GetDigestSettings().Time
	cronExpr := cronExprFor(at)
	entryID, err := s.cronScheduler.AddFunc(cronExpr, func() {
		if err := s.RunScheduled(context.Background()); err != nil {
			logger.Errorf("[Digest] Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("[Digest] Failed to add cron job: %v", err)
		return
	}
	s.currentEntryID = entryID
	logger.Infof("[Digest] Scheduled at %s (cron: %s)", at, cronExpr)
}

// cronExprFor turns "HH:MM" into a daily cron spec, defaulting to 18:00.
func cronExprFor(hhmm string) string {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return "0 18 * * *"
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
}

// RunScheduled generates and sends today's digest unless it is disabled, today
// is not a workday, or another instance holds today's lock. The lock is kept
// after a successful run so no instance repeats the day.
func (s *DigestService) RunScheduled(ctx context.Context) error {
	settings := s.settings.GetDigestSettings()
	if !settings.Enabled {
		logger.Debug().Msg("[Digest] Disabled, skipping")
		return nil
	}

	now := s.now()
	if !s.holidays.IsWorkday(now, settings.HolidayCountry) {
		logger.Infof("[Digest] %s is not a workday in %s, skipping", now.Format(reporting.DateLayout), settings.HolidayCountry)
		return nil
	}

	date := reporting.NewDate(now)
	lock, ok, err := s.locker.TryLock(ctx, digestLockName, date.String(), digestLockTTL)
	if err != nil {
		return fmt.Errorf("digest lock: %w", err)
	}
	if !ok {
		logger.Infof("[Digest] Another instance holds the %s digest, skipping", date)
		return nil
	}

	if _, err := s.Generate(ctx, date, true); err != nil {
		if rerr := lock.Release(ctx); rerr != nil {
			logger.Warnf("[Digest] Failed to release lock: %v", rerr)
		}
		return err
	}
	return nil
}

// Generate computes the digest of date from the current snapshot, stores it
// (replacing an earlier digest of the same date) and optionally notifies bots.
func (s *DigestService) Generate(ctx context.Context, date reporting.Date, notify bool) (*models.FleetDigest, error) {
	settings := s.settings.GetDigestSettings()
	snapshot := s.reports.Reports()
	window := reporting.SingleDay(date)

	units := reporting.ComputeGlobal(snapshot, window)
	totals := reporting.ComputeFleetTotals(units)
	lowSupply := findLowSupply(units, float64(settings.LowSupplyDays))

	unitsJSON, err := json.Marshal(units)
	if err != nil {
		return nil, err
	}
	lowJSON, err := json.Marshal(lowSupply)
	if err != nil {
		return nil, err
	}

	summary, modelUsed := s.summarize(ctx, snapshot, window, totals, lowSupply, settings.LLMConfigID)

	digest := &models.FleetDigest{
		DigestDate:      date.String(),
		TotalUnits:      totals.TotalUnits,
		TotalReports:    totals.TotalReports,
		AvgSatisfaction: totals.AvgSatisfaction,
		UnitStats:       string(unitsJSON),
		LowSupplyUnits:  string(lowJSON),
		Summary:         summary,
		AIModelUsed:     modelUsed,
	}
	if err := s.upsert(ctx, digest); err != nil {
		return nil, err
	}
	logger.Infof("[Digest] Digest for %s stored (ID: %d, units: %d, reports: %d)", digest.DigestDate, digest.ID, digest.TotalUnits, digest.TotalReports)

	if notify {
		s.notify(ctx, digest, lowSupply)
	}

	s.events.Publish(Event{Type: EventDigestGenerated, Data: map[string]interface{}{
		"id": digest.ID, "date": digest.DigestDate,
	}})
	return digest, nil
}

func (s *DigestService) upsert(ctx context.Context, digest *models.FleetDigest) error {
	db := s.db.WithContext(ctx)
	var existing models.FleetDigest
	err := db.Where("digest_date = ?", digest.DigestDate).First(&existing).Error
	switch {
	case err == nil:
		digest.ID = existing.ID
		digest.CreatedAt = existing.CreatedAt
		digest.NotifiedAt = existing.NotifiedAt
		digest.NotifyError = existing.NotifyError
		return db.Save(digest).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Create(digest).Error
	default:
		return err
	}
}

func findLowSupply(units []reporting.AggregateStat, threshold float64) []LowSupplyUnit {
	low := make([]LowSupplyUnit, 0)
	for _, u := range units {
		for _, r := range []struct {
			name string
			days *float64
		}{{"fuel", u.FuelDays}, {"water", u.WaterDays}, {"provisions", u.ProvisionDays}} {
			if r.days != nil && *r.days < threshold {
				low = append(low, LowSupplyUnit{Unit: u.UnitName, Resource: r.name, Days: *r.days})
			}
		}
	}
	return low
}

var resourceLabels = map[string]string{"fuel": "carburant", "water": "eau", "provisions": "vivres"}

func (l LowSupplyUnit) String() string {
	return fmt.Sprintf("%s : %s %s j", l.Unit, resourceLabels[l.Resource], formatDays(l.Days))
}

func formatDays(d float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", d), "0"), ".")
}

func (s *DigestService) summarize(ctx context.Context, snapshot []reporting.Report, window reporting.DateRange, totals reporting.FleetTotals, low []LowSupplyUnit, llmConfigID uint) (string, string) {
	if s.assistant == nil || totals.TotalReports == 0 || !s.assistant.Available() {
		return buildDefaultDigestSummary(window.Start.String(), totals, low), ""
	}

	payload, err := reporting.BuildFleetContext(snapshot, window).JSON()
	if err != nil {
		return buildDefaultDigestSummary(window.Start.String(), totals, low), ""
	}
	prompt := RenderPrompt(s.settings.AssistantPrompt(), "flotte entière "+window.String(), string(payload), DefaultDigestQuestion)

	answer, used, err := s.assistant.Complete(ctx, prompt, llmConfigID)
	if err != nil {
		logger.Warnf("[Digest] AI analysis failed: %v", err)
		return buildDefaultDigestSummary(window.Start.String(), totals, low), ""
	}
	return answer, used.Model
}

func buildDefaultDigestSummary(date string, totals reporting.FleetTotals, low []LowSupplyUnit) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Synthèse flotte du %s\n", date))
	if totals.TotalReports == 0 {
		sb.WriteString("Aucun rapport reçu ce jour.\n")
		return sb.String()
	}

	avg := reporting.AggregateStat{AvgSatisfaction: totals.AvgSatisfaction}.SatisfactionLabel()
	sb.WriteString(fmt.Sprintf("- Unités ayant rapporté : %d\n", totals.TotalUnits))
	sb.WriteString(fmt.Sprintf("- Rapports : %d\n", totals.TotalReports))
	sb.WriteString(fmt.Sprintf("- Satisfaction moyenne : %s/10\n", avg))
	if len(low) == 0 {
		sb.WriteString("- Aucun ravitaillement critique\n")
		return sb.String()
	}
	sb.WriteString("Ravitaillement critique :\n")
	for _, l := range low {
		sb.WriteString("- " + l.String() + "\n")
	}
	return sb.String()
}

func (s *DigestService) notify(ctx context.Context, digest *models.FleetDigest, low []LowSupplyUnit) {
	bots, err := s.bots.DigestRecipients()
	if err != nil {
		logger.Errorf("[Digest] Failed to load bots: %v", err)
		return
	}
	if len(bots) == 0 {
		logger.Infof("[Digest] No bots subscribed to the digest")
		return
	}

	lowLines := make([]string, 0, len(low))
	for _, l := range low {
		lowLines = append(lowLines, l.String())
	}
	n := &DigestNotification{
		Date:            digest.DigestDate,
		TotalUnits:      digest.TotalUnits,
		TotalReports:    digest.TotalReports,
		AvgSatisfaction: reporting.AggregateStat{AvgSatisfaction: digest.AvgSatisfaction}.SatisfactionLabel(),
		LowSupply:       lowLines,
		Summary:         digest.Summary,
	}

	delivered, err := Broadcast(ctx, bots, n)
	digest.NotifyError = ""
	if err != nil {
		digest.NotifyError = err.Error()
	}
	if delivered > 0 {
		now := s.now()
		digest.NotifiedAt = &now
	}
	if err := s.db.WithContext(ctx).Model(digest).Select("notified_at", "notify_error").Updates(digest).Error; err != nil {
		logger.Errorf("[Digest] Failed to record notification result: %v", err)
	}
	logger.Infof("[Digest] Sent to %d/%d bots", delivered, len(bots))
}

func (s *DigestService) List(page, pageSize int) ([]models.FleetDigest, int64, error) {
	var digests []models.FleetDigest
	var total int64

	if err := s.db.Model(&models.FleetDigest{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := s.db.Order("digest_date DESC").Offset(offset).Limit(pageSize).Find(&digests).Error; err != nil {
		return nil, 0, err
	}
	return digests, total, nil
}

func (s *DigestService) GetByID(id uint) (*models.FleetDigest, error) {
	var digest models.FleetDigest
	if err := s.db.First(&digest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDigestNotFound, id)
		}
		return nil, err
	}
	return &digest, nil
}

// Resend notifies bots again with a stored digest.
func (s *DigestService) Resend(ctx context.Context, id uint) (*models.FleetDigest, error) {
	digest, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	var low []LowSupplyUnit
	if digest.LowSupplyUnits != "" {
		if err := json.Unmarshal([]byte(digest.LowSupplyUnits), &low); err != nil {
			return nil, fmt.Errorf("digest %d: %w", id, err)
		}
	}
	s.notify(ctx, digest, low)
	return digest, nil
}
