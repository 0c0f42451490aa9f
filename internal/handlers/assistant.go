package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/middleware"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/huangang/basewatch/pkg/response"
)

type AssistantHandler struct {
	assistant *services.AssistantService
	queue     services.TaskQueue
	retries   *services.RetryService
}

func NewAssistantHandler(assistant *services.AssistantService, queue services.TaskQueue, retries *services.RetryService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, queue: queue, retries: retries}
}

func bindAskRequest(c *gin.Context) (*services.AskRequest, bool) {
	var req services.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	req.Role = middleware.GetRole(c)
	return &req, true
}

// Ask answers synchronously.
// POST /api/assistant/ask
func (h *AssistantHandler) Ask(c *gin.Context) {
	req, ok := bindAskRequest(c)
	if !ok {
		return
	}

	result, err := h.assistant.Ask(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Enqueue records the question and hands it to the task queue.
// POST /api/assistant/jobs
func (h *AssistantHandler) Enqueue(c *gin.Context) {
	req, ok := bindAskRequest(c)
	if !ok {
		return
	}

	entry, err := h.assistant.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.queue.Enqueue(&services.AnalysisTask{AssistantLogID: entry.ID}); err != nil {
		logger.Error().Err(err).Uint("log_id", entry.ID).Msg("[Assistant] Failed to enqueue task")
		respondError(c, err)
		return
	}
	response.Accepted(c, entry)
}

// GET /api/assistant/logs/:id
func (h *AssistantHandler) GetLog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entry, err := h.assistant.GetLog(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, entry)
}

// GET /api/assistant/logs
func (h *AssistantHandler) ListLogs(c *gin.Context) {
	var req services.AssistantLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.assistant.ListLogs(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Retry re-runs a failed request immediately.
// POST /api/assistant/logs/:id/retry
func (h *AssistantHandler) Retry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.retries.ManualRetry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}
