package models

import "time"

// FleetDigest is the generated end-of-day summary for one calendar date.
type FleetDigest struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	DigestDate string `gorm:"size:10;uniqueIndex;not null" json:"digest_date"` // YYYY-MM-DD

	TotalUnits      int      `json:"total_units"`
	TotalReports    int      `json:"total_reports"`
	AvgSatisfaction *float64 `json:"avg_satisfaction"`

	UnitStats      string `gorm:"type:text" json:"unit_stats"`       // JSON []AggregateStat
	LowSupplyUnits string `gorm:"type:text" json:"low_supply_units"` // JSON []LowSupplyUnit

	Summary     string `gorm:"type:text" json:"summary"`
	AIModelUsed string `gorm:"size:100" json:"ai_model_used"`

	NotifiedAt  *time.Time `json:"notified_at"`
	NotifyError string     `gorm:"type:text" json:"notify_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FleetDigest) TableName() string { return "fleet_digests" }
