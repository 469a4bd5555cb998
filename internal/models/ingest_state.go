package models

import "time"

// IngestState tracks the outcome of ingestion runs. A single row is kept and
// updated after every run; the admin API serves it as operational status.
type IngestState struct {
	ID            int        `gorm:"primaryKey" json:"id"`
	LastAttempt   time.Time  `gorm:"not null" json:"last_attempt"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
	SuccessCount  int        `gorm:"not null;default:0" json:"success_count"`
	FailureCount  int        `gorm:"not null;default:0" json:"failure_count"`
	LastStage     string     `gorm:"type:varchar(20)" json:"last_stage,omitempty"`
	LastReason    string     `json:"last_reason,omitempty"`
	LastNewCases  int        `gorm:"not null;default:0" json:"last_new_cases"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (IngestState) TableName() string {
	return "ingest_state"
}

// RecordSuccess records a completed run and the number of cases it added.
func (s *IngestState) RecordSuccess(newCases int) {
	now := time.Now()
	s.SuccessCount++
	s.FailureCount = 0
	s.LastAttempt = now
	s.LastSuccess = &now
	s.LastStage = ""
	s.LastReason = ""
	s.LastNewCases = newCases
}

// RecordFailure records a failed run with the stage it died in.
func (s *IngestState) RecordFailure(stage, reason string) {
	s.FailureCount++
	s.LastAttempt = time.Now()
	s.LastStage = stage
	s.LastReason = reason
	s.LastNewCases = 0
}
