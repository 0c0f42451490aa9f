package models

import "time"

// BuildingReport is the persisted form of one submitted report. ID is assigned
// by the in-memory store before insert, never by the database.
type BuildingReport struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UnitName       string    `gorm:"size:200;not null;index" json:"unit_name"`
	ReportDate     string    `gorm:"size:10;not null;index" json:"report_date"` // YYYY-MM-DD
	SubmittedAt    time.Time `gorm:"not null;index" json:"submitted_at"`
	Satisfaction   int       `gorm:"not null" json:"satisfaction"`
	Fuel           string    `gorm:"size:64" json:"fuel"`
	Water          string    `gorm:"size:64" json:"water"`
	Provisions     string    `gorm:"size:64" json:"provisions"`
	Armament       string    `gorm:"type:text" json:"armament"`
	CommanderNote  string    `gorm:"type:text" json:"commander_note"`
	Forecast       string    `gorm:"type:text" json:"forecast"`
	PhotoCaption   string    `gorm:"size:500" json:"photo_caption"`
	DefibAvailable int       `json:"defib_available"`
	DefibTotal     int       `json:"defib_total"`
	Photo          string    `gorm:"type:text" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (BuildingReport) TableName() string { return "reports" }
