package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/pkg/response"
)

type NotificationBotHandler struct {
	bots *services.NotificationBotService
}

func NewNotificationBotHandler(bots *services.NotificationBotService) *NotificationBotHandler {
	return &NotificationBotHandler{bots: bots}
}

func (h *NotificationBotHandler) List(c *gin.Context) {
	bots, err := h.bots.List()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, bots)
}

func (h *NotificationBotHandler) Create(c *gin.Context) {
	var req services.CreateNotificationBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	bot, err := h.bots.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, bot)
}

func (h *NotificationBotHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.bots.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "bot deleted successfully"})
}
