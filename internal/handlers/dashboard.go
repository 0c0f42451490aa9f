package handlers

import (
	"bytes"

	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/middleware"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboard}
}

// ListUnits returns every unit that has reported, sorted by name.
// GET /api/units
func (h *DashboardHandler) ListUnits(c *gin.Context) {
	response.Success(c, h.dashboardService.ListUnits())
}

// GET /api/units/:name/stats
func (h *DashboardHandler) UnitStats(c *gin.Context) {
	var req services.DashboardStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stat, err := h.dashboardService.UnitStats(c.Param("name"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stat)
}

// GET /api/units/:name/reports
func (h *DashboardHandler) UnitHistory(c *gin.Context) {
	history, err := h.dashboardService.UnitHistory(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, history)
}

// GetStats returns per-unit statistics and fleet totals.
// GET /api/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	var req services.DashboardStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.dashboardService.GetStats(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Export streams the statistics as an XLSX workbook.
// GET /api/stats/export
func (h *DashboardHandler) Export(c *gin.Context) {
	var req services.DashboardStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.dashboardService.GetStats(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteStatsWorkbook(&buf, resp); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+services.ExportFilename(resp.Window))
	c.Data(200, services.ExportContentType, buf.Bytes())
}

// View resolves a role label into its dashboard view.
// GET /api/views
func (h *DashboardHandler) View(c *gin.Context) {
	var q services.ViewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if role := middleware.GetRole(c); role != "" {
		q.Role = role
	}

	resp, err := h.dashboardService.View(&q)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}
