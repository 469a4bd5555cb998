package models

import "time"

// GrowthSeries labels a growth point as observed or extrapolated.
type GrowthSeries string

const (
	SeriesActual    GrowthSeries = "actual"
	SeriesPredicted GrowthSeries = "predicted"
)

// GrowthPoint is one point of the cumulative case-count series. For a given
// date at most one actual and one predicted point may coexist; predicted
// points are only ever appended beyond the last actual date.
type GrowthPoint struct {
	ID     uint         `gorm:"primaryKey" json:"-"`
	Date   time.Time    `gorm:"type:date;not null;index" json:"date"`
	Count  float64      `gorm:"not null" json:"count"`
	Series GrowthSeries `gorm:"type:varchar(10);not null;index" json:"series"`
}

// TableName specifies the table name
func (GrowthPoint) TableName() string {
	return "growth_points"
}

// GrowthRate is the day-over-day ratio of the cumulative case count.
type GrowthRate struct {
	ID   uint      `gorm:"primaryKey" json:"-"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`
	Rate float64   `gorm:"not null" json:"rate"`
}

// TableName specifies the table name
func (GrowthRate) TableName() string {
	return "growth_rates"
}
