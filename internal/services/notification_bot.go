package services

import (
	"errors"
	"fmt"

	"github.com/huangang/basewatch/internal/models"
	"gorm.io/gorm"
)

var ErrNotificationBotNotFound = errors.New("notification bot not found")

type NotificationBotService struct {
	db *gorm.DB
}

func NewNotificationBotService(db *gorm.DB) *NotificationBotService {
	return &NotificationBotService{db: db}
}

type CreateNotificationBotRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=slack discord generic"`
	Webhook       string `json:"webhook" binding:"required,url"`
	DigestEnabled *bool  `json:"digest_enabled"`
}

func (s *NotificationBotService) List() ([]models.NotificationBot, error) {
	var bots []models.NotificationBot
	if err := s.db.Order("id ASC").Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (s *NotificationBotService) Create(req *CreateNotificationBotRequest) (*models.NotificationBot, error) {
	bot := models.NotificationBot{
		Name:          req.Name,
		Type:          req.Type,
		Webhook:       req.Webhook,
		IsActive:      true,
		DigestEnabled: true,
	}
	if err := s.db.Create(&bot).Error; err != nil {
		return nil, err
	}
	if req.DigestEnabled != nil && !*req.DigestEnabled {
		if err := s.db.Model(&bot).Update("digest_enabled", false).Error; err != nil {
			return nil, err
		}
		bot.DigestEnabled = false
	}
	return &bot, nil
}

func (s *NotificationBotService) Delete(id uint) error {
	result := s.db.Delete(&models.NotificationBot{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotificationBotNotFound, id)
	}
	return nil
}

// DigestRecipients returns active bots subscribed to the digest.
func (s *NotificationBotService) DigestRecipients() ([]models.NotificationBot, error) {
	var bots []models.NotificationBot
	err := s.db.Where("is_active = ? AND digest_enabled = ?", true, true).Order("id ASC").Find(&bots).Error
	return bots, err
}
