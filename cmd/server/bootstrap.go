package main

import (
	"context"

	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/observability"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var version = "dev"

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg             *config.Config
	db              *gorm.DB
	hub             *services.SSEHub
	reports         *services.ReportService
	dashboard       *services.DashboardService
	assistant       *services.AssistantService
	retries         *services.RetryService
	llmConfigs      *services.LLMConfigService
	settings        *services.SystemConfigService
	bots            *services.NotificationBotService
	digests         *services.DigestService
	taskQueue       services.TaskQueue
	worker          *services.Worker
	redis           *redis.Client
	shutdownTracing observability.ShutdownFunc
}

// bootstrap initializes all application dependencies: tracing, database,
// store hydration, queue and schedulers.
func bootstrap(ctx context.Context, cfg *config.Config) *appServices {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, version)
	if err != nil {
		logger.Warn().Err(err).Msg("Tracing disabled")
	}

	if err := models.InitDB(&cfg.Database, cfg.Tracing.Enabled); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	hub := services.NewSSEHub()
	reports := services.NewReportService(reporting.NewStore(), services.NewGormReportRepository(db), hub)
	if err := reports.Hydrate(ctx); err != nil {
		logger.Fatalf("Failed to load reports: %v", err)
	}

	assistant := services.NewAssistantService(db, reports, cfg.Assistant, nil, hub)
	if !assistant.Available() {
		logger.Warn().Msg("No LLM configured, assistant endpoints will answer 503")
	}

	// Uses Redis if enabled and reachable, otherwise sync mode.
	taskQueue := services.NewTaskQueue(&cfg.Redis)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(assistant.ProcessTask)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(assistant.ProcessTask)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start worker")
			}
		}
	}

	retries := services.NewRetryService(db, assistant)
	retries.StartScheduler()

	locker, redisClient := services.NewLocker(ctx, db, &cfg.Redis)
	digests := services.NewDigestService(db, reports, assistant, locker, hub)
	digests.StartScheduler()

	return &appServices{
		cfg:             cfg,
		db:              db,
		hub:             hub,
		reports:         reports,
		dashboard:       services.NewDashboardService(reports),
		assistant:       assistant,
		retries:         retries,
		llmConfigs:      services.NewLLMConfigService(db),
		settings:        services.NewSystemConfigService(db),
		bots:            services.NewNotificationBotService(db),
		digests:         digests,
		taskQueue:       taskQueue,
		worker:          worker,
		redis:           redisClient,
		shutdownTracing: shutdownTracing,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown(ctx context.Context) {
	s.digests.StopScheduler()
	logger.Info().Msg("Digest scheduler stopped")
	s.retries.StopScheduler()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Task queue close failed")
		}
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if err := s.shutdownTracing(ctx); err != nil {
		logger.Warn().Err(err).Msg("Tracing shutdown failed")
	}
}
