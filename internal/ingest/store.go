package ingest

import (
	"covid-data-portal/internal/models"
)

// Store is the document store contract the orchestrator writes through.
// Implementations are not transactional across delete and insert; callers
// must not run two ingestion jobs against the same dataset concurrently.
type Store interface {
	CaseCount() (int, error)
	AllCases() ([]models.CaseRecord, error)
	InsertCases(records []models.CaseRecord) error
	// ReplaceCases deletes every stored case and bulk-inserts the batch.
	ReplaceCases(records []models.CaseRecord) error
	// UpdateTravelStatus rewrites only the travel status of one stored case.
	UpdateTravelStatus(caseNumber int64, status string) error

	ReplaceDailyStats(stats []models.DailyStat) error

	IngestState() (*models.IngestState, error)
	SaveIngestState(state *models.IngestState) error
}
