package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/response"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Submit appends one report.
// POST /api/reports
func (h *ReportHandler) Submit(c *gin.Context) {
	var draft reporting.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reports.Submit(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}
