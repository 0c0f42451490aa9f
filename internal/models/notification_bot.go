package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	BotTypeSlack   = "slack"
	BotTypeDiscord = "discord"
	BotTypeGeneric = "generic"
)

// NotificationBot is a chat webhook that receives fleet digests.
type NotificationBot struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:100;not null" json:"name"`
	Type          string         `gorm:"size:50;not null" json:"type"` // slack, discord, generic
	Webhook       string         `gorm:"size:500;not null" json:"webhook"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	DigestEnabled bool           `gorm:"default:true" json:"digest_enabled"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (NotificationBot) TableName() string { return "notification_bots" }
