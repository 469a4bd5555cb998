package models

import "time"

// DailyStat is one day's aggregate counters for the state. Exactly one record
// exists per calendar date; the whole collection is replaced on every run.
type DailyStat struct {
	ID   uint      `gorm:"primaryKey" json:"-"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`

	Tests    int `gorm:"not null;default:0" json:"tests"`
	NewTests int `gorm:"not null;default:0" json:"new_tests"`

	Deaths       int     `gorm:"not null;default:0" json:"deaths"`
	NewDeaths    int     `gorm:"not null;default:0" json:"new_deaths"`
	DeathsGrowth float64 `gorm:"not null;default:0" json:"deaths_growth"`

	Hospitalized       int     `gorm:"not null;default:0" json:"hospitalized"`
	NewHospitalized    int     `gorm:"not null;default:0" json:"new_hospitalized"`
	HospitalizedGrowth float64 `gorm:"not null;default:0" json:"hospitalized_growth"`
}

// TableName specifies the table name
func (DailyStat) TableName() string {
	return "daily_stats"
}
