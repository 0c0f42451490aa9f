package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/internal/services/reporting"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
// GET /metrics
func (h *HealthHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "basewatch_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "basewatch_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "basewatch_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "basewatch_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "basewatch_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "basewatch_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	writeGauge(&b, "basewatch_sse_active_clients", "Number of active SSE connections", float64(h.hub.ClientCount()))
	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1
	}
	writeGauge(&b, "basewatch_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	snapshot := h.reports.Reports()
	writeGauge(&b, "basewatch_reports_total", "Reports held in the store", float64(len(snapshot)))
	writeGauge(&b, "basewatch_units_total", "Units that have reported at least once", float64(len(reporting.ListUnits(snapshot))))

	for _, status := range []string{models.AssistantStatusPending, models.AssistantStatusCompleted, models.AssistantStatusFailed} {
		var count int64
		h.db.Model(&models.AssistantLog{}).Where("status = ?", status).Count(&count)
		writeGauge(&b, "basewatch_assistant_requests_"+status, "Assistant requests with status "+status, float64(count))
	}

	var digests int64
	h.db.Model(&models.FleetDigest{}).Count(&digests)
	writeGauge(&b, "basewatch_digests_total", "Stored fleet digests", float64(digests))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
