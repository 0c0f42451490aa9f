package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of each subsystem.
type HealthHandler struct {
	db      *gorm.DB
	reports *services.ReportService
	queue   services.TaskQueue
	hub     *services.SSEHub
}

func NewHealthHandler(db *gorm.DB, reports *services.ReportService, queue services.TaskQueue, hub *services.SSEHub) *HealthHandler {
	return &HealthHandler{db: db, reports: reports, queue: queue, hub: hub}
}

// CheckHealth handles GET /health.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "basewatch",
		"components": gin.H{
			"database":    dbStatus,
			"queue":       queueMode,
			"sse_clients": h.hub.ClientCount(),
			"reports":     h.reports.Store().Len(),
		},
	})
}
