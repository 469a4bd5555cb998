// Package reconcile classifies a freshly normalized batch of case records
// against the currently persisted dataset, deciding which records are new
// and which stored records need their travel status corrected. Replaying the
// same batch against an up-to-date dataset is a no-op beyond re-confirming
// still-open investigations.
package reconcile

import "covid-data-portal/internal/models"

// TravelUpdate is a targeted correction of one stored record: only the
// travel status is rewritten, every other stored field is left untouched.
// The source's investigation outcome is the only attribute that changes
// after a case is first published.
type TravelUpdate struct {
	CaseNumber   int64
	TravelStatus string
}

// Delta is the write-set produced by reconciling a batch.
type Delta struct {
	ToInsert []models.CaseRecord
	ToUpdate []TravelUpdate
}

// Reconcile compares incoming records against the current dataset.
//
// Anything above the highest persisted case number is new: the source
// assigns case numbers monotonically, so the maximum acts as a watermark.
// Records the store still carries as under investigation are re-checked
// every run and receive the batch's travel status. A record that is both
// above the watermark and under investigation is only inserted; it does not
// exist in the store yet, so there is nothing to update.
//
// Incoming batches must not contain duplicate case numbers; the normalizer
// guarantees that and no deduplication happens here.
func Reconcile(incoming, current []models.CaseRecord) Delta {
	var maxKnown int64
	for _, record := range current {
		if record.CaseNumber > maxKnown {
			maxKnown = record.CaseNumber
		}
	}

	underInvestigation := make(map[int64]struct{})
	for _, record := range current {
		if record.UnderInvestigation() {
			underInvestigation[record.CaseNumber] = struct{}{}
		}
	}

	var delta Delta
	for _, record := range incoming {
		if record.CaseNumber > maxKnown {
			delta.ToInsert = append(delta.ToInsert, record)
			continue
		}
		if _, ok := underInvestigation[record.CaseNumber]; ok {
			delta.ToUpdate = append(delta.ToUpdate, TravelUpdate{
				CaseNumber:   record.CaseNumber,
				TravelStatus: record.TravelStatus,
			})
		}
	}

	return delta
}

// FullRefreshNewCount is the "new record" count reported in full-refresh
// mode, where the whole stored dataset is replaced by the incoming snapshot.
// It is a size delta, not a true diff, and can be negative when the source
// drops records.
func FullRefreshNewCount(incomingLen, currentCount int) int {
	return incomingLen - currentCount
}
