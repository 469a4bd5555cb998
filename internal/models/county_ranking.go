package models

import "time"

// CountyRanking is one (county, date) point of the cumulative series for the
// top-N counties by total case count. NormalizedCount is cases per 1,000
// residents, rounded to two decimals. The collection is recomputed and
// replaced on every analytics run.
type CountyRanking struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	County          string    `gorm:"type:varchar(100);not null;index" json:"county"`
	Date            time.Time `gorm:"type:date;not null" json:"date"`
	Count           int       `gorm:"not null" json:"count"`
	NormalizedCount float64   `gorm:"not null" json:"normalized_count"`
}

// TableName specifies the table name
func (CountyRanking) TableName() string {
	return "county_rankings"
}
