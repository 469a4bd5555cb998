package ingest

import (
	"context"
	"errors"
	"fmt"

	"covid-data-portal/internal/analytics"
	"covid-data-portal/internal/models"
	"covid-data-portal/internal/normalize"
	"covid-data-portal/internal/reconcile"
	"covid-data-portal/internal/source"

	log "github.com/sirupsen/logrus"
)

// Mode selects how a run's write-set is computed and persisted.
type Mode int

const (
	// ModeIncremental inserts records above the case-number watermark and
	// re-checks stored records still under investigation.
	ModeIncremental Mode = iota
	// ModeFullRefresh replaces the whole stored dataset with the incoming
	// snapshot. Appropriate only for sources known to return their complete
	// dataset each run; the reported "new" count is a size delta.
	ModeFullRefresh
)

// Source produces the raw case rows for one run.
type Source interface {
	Fetch(ctx context.Context) ([]source.CaseRow, error)
}

// StatsSource produces the raw daily statistics rows for one run.
type StatsSource interface {
	Fetch(ctx context.Context) ([]source.StatFeedRow, error)
}

// StatTotalsSource produces raw running-total statistics rows for one run,
// the shape the CSV export carries.
type StatTotalsSource interface {
	Fetch(ctx context.Context) ([]source.StatTotalsRow, error)
}

// Notifier delivers a status summary to the configured recipient.
type Notifier interface {
	Notify(message, dashboardURL string) error
}

// Indexer refreshes the case search index after persistence.
type Indexer interface {
	IndexCases(records []models.CaseRecord) error
}

// Result is the structured outcome of one run. Stage failures surface here
// instead of as raised errors; only configuration problems abort before the
// state machine starts.
type Result struct {
	Success      bool   `json:"success"`
	Stage        Stage  `json:"stage,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message"`
	NewCases     int    `json:"new_cases"`
	UpdatedCases int    `json:"updated_cases"`
	NoData       bool   `json:"no_data,omitempty"`
}

// Runner sequences one batch run: fetch, normalize, reconcile, persist,
// optionally analyze and notify. A failed stage skips everything after it.
type Runner struct {
	source     Source
	normalizer *normalize.Normalizer
	store      Store
	mode       Mode

	// Optional collaborators; nil disables the corresponding stage.
	stats     StatsSource
	totals    StatTotalsSource
	analytics *analytics.Service
	notifier  Notifier
	indexer   Indexer

	dashboardURL        string
	recomputeSimulation bool
}

// Options configures a Runner.
type Options struct {
	Source     Source
	Normalizer *normalize.Normalizer
	Store      Store
	Mode       Mode

	Stats     StatsSource
	Totals    StatTotalsSource
	Analytics *analytics.Service
	Notifier  Notifier
	Indexer   Indexer

	DashboardURL        string
	RecomputeSimulation bool
}

// NewRunner creates a run orchestrator.
func NewRunner(opts Options) *Runner {
	return &Runner{
		source:              opts.Source,
		normalizer:          opts.Normalizer,
		store:               opts.Store,
		mode:                opts.Mode,
		stats:               opts.Stats,
		totals:              opts.Totals,
		analytics:           opts.Analytics,
		notifier:            opts.Notifier,
		indexer:             opts.Indexer,
		dashboardURL:        opts.DashboardURL,
		recomputeSimulation: opts.RecomputeSimulation,
	}
}

// Run executes one batch run and records its outcome in the ingest state.
func (r *Runner) Run(ctx context.Context) Result {
	result := r.run(ctx)
	r.recordOutcome(result)
	return result
}

func (r *Runner) run(ctx context.Context) Result {
	// FETCH
	rows, err := r.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, source.ErrNoData) {
			log.Info("Ingest: Source reported no data, nothing to do")
			return Result{Success: true, NoData: true, Message: "no data available"}
		}
		return fail(StageFetch, &SourceUnavailableError{Err: err})
	}
	log.Infof("Ingest: Fetched %d raw rows", len(rows))

	// NORMALIZE. One bad row aborts the whole batch.
	records, err := r.normalizer.Batch(rows)
	if err != nil {
		return fail(StageNormalize, err)
	}

	// RECONCILE + PERSIST
	var newCases, updatedCases int
	switch r.mode {
	case ModeFullRefresh:
		count, err := r.store.CaseCount()
		if err != nil {
			return fail(StageReconcile, err)
		}
		newCases = reconcile.FullRefreshNewCount(len(records), count)
		log.Infof("Ingest: Replacing %d cases (%d new)", len(records), newCases)
		if err := r.store.ReplaceCases(records); err != nil {
			return fail(StagePersist, &StoreWriteError{Op: "replace cases", Err: err})
		}
	default:
		current, err := r.store.AllCases()
		if err != nil {
			return fail(StageReconcile, err)
		}
		delta := reconcile.Reconcile(records, current)
		newCases = len(delta.ToInsert)
		updatedCases = len(delta.ToUpdate)
		log.Infof("Ingest: Found %d new cases, %d travel-status corrections", newCases, updatedCases)

		if len(delta.ToInsert) > 0 {
			if err := r.store.InsertCases(delta.ToInsert); err != nil {
				return fail(StagePersist, &StoreWriteError{Op: "insert cases", Err: err})
			}
		}
		for _, update := range delta.ToUpdate {
			if err := r.store.UpdateTravelStatus(update.CaseNumber, update.TravelStatus); err != nil {
				return fail(StagePersist, &StoreWriteError{Op: "update travel status", Err: err})
			}
		}
	}

	// The search index lags rather than fails the run.
	if r.indexer != nil {
		if err := r.indexer.IndexCases(records); err != nil {
			log.Warnf("Ingest: Failed to refresh search index: %v", err)
		}
	}

	// ANALYZE
	if err := r.analyze(ctx, newCases); err != nil {
		return fail(StageAnalyze, err)
	}

	result := Result{
		Success:      true,
		Message:      fmt.Sprintf("%d new cases added", newCases),
		NewCases:     newCases,
		UpdatedCases: updatedCases,
	}

	// NOTIFY, only when the run produced genuinely new records.
	if r.notifier != nil && newCases > 0 {
		if err := r.notifier.Notify(result.Message, r.dashboardURL); err != nil {
			notifyErr := &NotificationError{Err: err}
			log.Warnf("Ingest: %v", notifyErr)
		}
	}

	return result
}

// analyze ingests daily statistics and rebuilds the derived collections.
// Statistics are only refreshed when the case run found something new.
func (r *Runner) analyze(ctx context.Context, newCases int) error {
	if newCases > 0 {
		if err := r.refreshStats(ctx); err != nil {
			return err
		}
	}

	if r.analytics != nil {
		if err := r.analytics.PushGrowth(r.recomputeSimulation); err != nil {
			return err
		}
		if err := r.analytics.PushCountyRankings(); err != nil {
			return err
		}
	}

	return nil
}

// refreshStats replaces the daily statistics collection from whichever
// statistics collaborator is configured: the REST feed carries explicit
// day-over-day increases, the CSV export carries running totals only.
func (r *Runner) refreshStats(ctx context.Context) error {
	stats, err := r.collectStats(ctx)
	switch {
	case errors.Is(err, source.ErrNoData):
		log.Info("Ingest: Stats source reported no data")
		return nil
	case err != nil:
		return err
	case stats == nil:
		return nil
	}

	if err := r.store.ReplaceDailyStats(stats); err != nil {
		return &StoreWriteError{Op: "replace daily stats", Err: err}
	}
	log.Infof("Ingest: Replaced %d daily statistic records", len(stats))
	return nil
}

func (r *Runner) collectStats(ctx context.Context) ([]models.DailyStat, error) {
	switch {
	case r.stats != nil:
		rows, err := r.stats.Fetch(ctx)
		if err != nil {
			return nil, &SourceUnavailableError{Err: err}
		}
		return normalize.StatFeed(rows)
	case r.totals != nil:
		rows, err := r.totals.Fetch(ctx)
		if err != nil {
			return nil, &SourceUnavailableError{Err: err}
		}
		return normalize.StatTotals(rows)
	}
	return nil, nil
}

func (r *Runner) recordOutcome(result Result) {
	state, err := r.store.IngestState()
	if err != nil {
		log.Warnf("Ingest: Failed to load ingest state: %v", err)
		return
	}
	if result.Success {
		state.RecordSuccess(result.NewCases)
	} else {
		state.RecordFailure(string(result.Stage), result.Reason)
	}
	if err := r.store.SaveIngestState(state); err != nil {
		log.Warnf("Ingest: Failed to save ingest state: %v", err)
	}
}

func fail(stage Stage, err error) Result {
	log.Errorf("Ingest: Run failed at %s stage: %v", stage, err)
	return Result{
		Success: false,
		Stage:   stage,
		Reason:  err.Error(),
		Message: fmt.Sprintf("run failed during %s", stage),
	}
}
