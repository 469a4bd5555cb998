package models

import (
	"strings"
	"time"
)

// TravelStatusUnderInvestigation is the distinguished travel status the health
// authority assigns while a case's travel classification is still pending.
// Cases carrying it are re-checked on every ingestion run.
const TravelStatusUnderInvestigation = "Under Investigation"

// CaseRecord is one confirmed case as published by the health authority.
// CaseNumber is the unique key within the dataset; the source assigns the
// numbers monotonically, which the reconciliation watermark relies on.
type CaseRecord struct {
	CaseNumber   int64  `gorm:"primaryKey;autoIncrement:false" json:"case_number"`
	County       string `gorm:"type:varchar(100);index" json:"county"`
	Age          *int   `gorm:"type:int" json:"age,omitempty"`
	Sex          string `gorm:"type:varchar(20)" json:"sex"`
	TravelStatus string `gorm:"type:varchar(100);index" json:"travel_status"`

	// TravelDetail is derived by splitting the raw travel string; nil when the
	// source reported no detail.
	TravelDetail StringList `gorm:"type:text" json:"travel_detail,omitempty"`

	ContactWithConfirmedCase string `gorm:"type:varchar(20)" json:"contact_with_confirmed_case"`

	// RecordedDate is date-only; time-of-day is always zero.
	RecordedDate time.Time `gorm:"type:date;not null;index" json:"recorded_date"`

	Deceased     string  `gorm:"type:varchar(20)" json:"deceased"`
	Hospitalized *string `gorm:"type:varchar(20)" json:"hospitalized,omitempty"`
	EDVisit      *string `gorm:"type:varchar(20)" json:"ed_visit,omitempty"`

	// Location is resolved through the county directory; nil when the county
	// name did not resolve.
	Latitude  *float64 `gorm:"type:decimal(9,6)" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"type:decimal(9,6)" json:"longitude,omitempty"`
}

// TableName specifies the table name
func (CaseRecord) TableName() string {
	return "cases"
}

// UnderInvestigation reports whether the case still awaits a final travel
// classification. The match is case-insensitive because the source has
// published both "Under Investigation" and "Under investigation".
func (c *CaseRecord) UnderInvestigation() bool {
	return strings.EqualFold(c.TravelStatus, TravelStatusUnderInvestigation)
}

// SetLocation fills the coordinate columns from a directory entry.
func (c *CaseRecord) SetLocation(lat, lng float64) {
	c.Latitude = &lat
	c.Longitude = &lng
}
