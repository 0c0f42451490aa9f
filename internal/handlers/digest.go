package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/response"
)

type DigestHandler struct {
	digests  *services.DigestService
	settings *services.SystemConfigService
	holidays *services.HolidayService
}

func NewDigestHandler(digests *services.DigestService, settings *services.SystemConfigService) *DigestHandler {
	return &DigestHandler{digests: digests, settings: settings, holidays: services.NewHolidayService()}
}

type digestListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List returns stored digests, latest first.
// GET /api/digests
func (h *DigestHandler) List(c *gin.Context) {
	var q digestListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}

	digests, total, err := h.digests.List(q.Page, q.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"total": total, "page": q.Page, "page_size": q.PageSize, "items": digests})
}

// GET /api/digests/:id
func (h *DigestHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	digest, err := h.digests.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, digest)
}

type generateDigestRequest struct {
	Date   string `json:"date"` // defaults to today
	Notify bool   `json:"notify"`
}

// Generate builds (or rebuilds) the digest of a day.
// POST /api/digests/generate
func (h *DigestHandler) Generate(c *gin.Context) {
	var req generateDigestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	date := reporting.NewDate(time.Now())
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := reporting.ParseDate(req.Date)
		if err != nil {
			respondError(c, err)
			return
		}
		date = parsed
	}

	digest, err := h.digests.Generate(c.Request.Context(), date, req.Notify)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, digest)
}

// POST /api/digests/:id/resend
func (h *DigestHandler) Resend(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	digest, err := h.digests.Resend(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, digest)
}

// GET /api/settings/digest
func (h *DigestHandler) GetSettings(c *gin.Context) {
	response.Success(c, h.settings.GetDigestSettings())
}

// UpdateSettings saves the digest settings and moves the cron entry.
// PUT /api/settings/digest
func (h *DigestHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateDigestSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Time != nil {
		if _, err := time.Parse("15:04", strings.TrimSpace(*req.Time)); err != nil {
			response.Error(c, response.NewValidation(err, "time", "expected HH:MM"))
			return
		}
	}
	if req.HolidayCountry != nil && !h.supportedCountry(*req.HolidayCountry) {
		response.BadRequest(c, "unsupported holiday country: "+*req.HolidayCountry)
		return
	}

	if err := h.settings.UpdateDigestSettings(&req); err != nil {
		respondError(c, err)
		return
	}
	h.digests.Reschedule()
	response.Success(c, h.settings.GetDigestSettings())
}

// GET /api/settings/digest/countries
func (h *DigestHandler) Countries(c *gin.Context) {
	response.Success(c, h.holidays.SupportedCountries())
}

func (h *DigestHandler) supportedCountry(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, country := range h.holidays.SupportedCountries() {
		if country.Code == code {
			return true
		}
	}
	return false
}
