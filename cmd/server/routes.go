package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/handlers"
	"github.com/huangang/basewatch/internal/middleware"
	"github.com/huangang/basewatch/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	if svc.cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(svc.cfg.Tracing.ServiceName))
	}
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(), middleware.Role())

	limits := svc.cfg.RateLimit
	submitLimit := middleware.RateLimit(limits.SubmitRPS, limits.SubmitBurst, "too many reports submitted, please slow down")
	assistantLimit := middleware.RateLimit(limits.AssistantRPS, limits.AssistantBurst, "too many assistant requests, please try again later")

	healthHandler := handlers.NewHealthHandler(svc.db, svc.reports, svc.taskQueue, svc.hub)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", healthHandler.Metrics)

	api := r.Group("/api")
	{
		api.GET("/events", handlers.NewSSEHandler(svc.hub).Stream)

		reportHandler := handlers.NewReportHandler(svc.reports)
		api.POST("/reports", submitLimit, reportHandler.Submit)

		dashboardHandler := handlers.NewDashboardHandler(svc.dashboard)
		api.GET("/units", dashboardHandler.ListUnits)
		api.GET("/units/:name/stats", dashboardHandler.UnitStats)
		api.GET("/units/:name/reports", dashboardHandler.UnitHistory)
		api.GET("/stats", dashboardHandler.GetStats)
		api.GET("/stats/export", dashboardHandler.Export)
		api.GET("/views", dashboardHandler.View)

		assistantHandler := handlers.NewAssistantHandler(svc.assistant, svc.taskQueue, svc.retries)
		assistant := api.Group("/assistant")
		{
			assistant.POST("/ask", assistantLimit, assistantHandler.Ask)
			assistant.POST("/jobs", assistantLimit, assistantHandler.Enqueue)
			assistant.GET("/logs", assistantHandler.ListLogs)
			assistant.GET("/logs/:id", assistantHandler.GetLog)
			assistant.POST("/logs/:id/retry", assistantLimit, assistantHandler.Retry)
		}

		llmConfigHandler := handlers.NewLLMConfigHandler(svc.llmConfigs)
		api.GET("/llm-configs", llmConfigHandler.List)
		api.GET("/llm-configs/:id", llmConfigHandler.GetByID)
		api.POST("/llm-configs", llmConfigHandler.Create)
		api.PUT("/llm-configs/:id", llmConfigHandler.Update)
		api.DELETE("/llm-configs/:id", llmConfigHandler.Delete)

		digestHandler := handlers.NewDigestHandler(svc.digests, svc.settings)
		api.GET("/digests", digestHandler.List)
		api.GET("/digests/:id", digestHandler.GetByID)
		api.POST("/digests/generate", digestHandler.Generate)
		api.POST("/digests/:id/resend", digestHandler.Resend)
		api.GET("/settings/digest", digestHandler.GetSettings)
		api.PUT("/settings/digest", digestHandler.UpdateSettings)
		api.GET("/settings/digest/countries", digestHandler.Countries)

		botHandler := handlers.NewNotificationBotHandler(svc.bots)
		api.GET("/notification-bots", botHandler.List)
		api.POST("/notification-bots", botHandler.Create)
		api.DELETE("/notification-bots/:id", botHandler.Delete)
	}
}
