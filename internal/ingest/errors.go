package ingest

import "fmt"

// Stage is one step of the run state machine.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageReconcile Stage = "reconcile"
	StagePersist   Stage = "persist"
	StageAnalyze   Stage = "analyze"
	StageNotify    Stage = "notify"
)

// SourceUnavailableError wraps a failure to reach or parse the record
// source. The run aborts before any store mutation.
type SourceUnavailableError struct {
	Err error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("record source unavailable: %v", e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// StoreWriteError wraps a persistence failure. Writes are not transactional
// across delete and insert, so a failure can leave a collection empty or
// partially populated; operators must re-run from a known-good snapshot.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed (%s): %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// NotificationError wraps a notifier failure. It is logged, never escalated:
// ingestion success is independent of notification success.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
