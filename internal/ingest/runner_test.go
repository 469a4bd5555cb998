package ingest

import (
	"context"
	"errors"
	"testing"

	"covid-data-portal/internal/locations"
	"covid-data-portal/internal/models"
	"covid-data-portal/internal/normalize"
	"covid-data-portal/internal/source"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rows []source.CaseRow
	err  error
}

func (f *fakeSource) Fetch(ctx context.Context) ([]source.CaseRow, error) {
	return f.rows, f.err
}

type fakeStore struct {
	cases         []models.CaseRecord
	inserted      []models.CaseRecord
	replaced      bool
	travelUpdates map[int64]string
	stats         []models.DailyStat
	state         models.IngestState
	failInsert    bool
}

func newFakeStore(current []models.CaseRecord) *fakeStore {
	return &fakeStore{
		cases:         current,
		travelUpdates: make(map[int64]string),
		state:         models.IngestState{ID: 1},
	}
}

func (f *fakeStore) CaseCount() (int, error)                { return len(f.cases), nil }
func (f *fakeStore) AllCases() ([]models.CaseRecord, error) { return f.cases, nil }

func (f *fakeStore) InsertCases(records []models.CaseRecord) error {
	if f.failInsert {
		return errors.New("disk full")
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeStore) ReplaceCases(records []models.CaseRecord) error {
	if f.failInsert {
		return errors.New("disk full")
	}
	f.replaced = true
	f.cases = records
	return nil
}

func (f *fakeStore) UpdateTravelStatus(caseNumber int64, status string) error {
	f.travelUpdates[caseNumber] = status
	return nil
}

func (f *fakeStore) ReplaceDailyStats(stats []models.DailyStat) error {
	f.stats = stats
	return nil
}

func (f *fakeStore) IngestState() (*models.IngestState, error) {
	state := f.state
	return &state, nil
}

func (f *fakeStore) SaveIngestState(state *models.IngestState) error {
	f.state = *state
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(message, dashboardURL string) error {
	f.messages = append(f.messages, message)
	return f.err
}

func testNormalizer(t *testing.T) *normalize.Normalizer {
	t.Helper()
	directory, err := locations.Parse([]byte(`[]`))
	require.NoError(t, err)
	return normalize.New(directory)
}

func row(id, status string) source.CaseRow {
	return source.CaseRow{
		CaseNumber:   id,
		County:       "Broward",
		Age:          "40",
		Sex:          "Female",
		TravelStatus: status,
		Date:         source.RawDate{Kind: source.DateMonthDayYear, Value: "3/15/20"},
	}
}

func stored(id int64, status string) models.CaseRecord {
	return models.CaseRecord{CaseNumber: id, TravelStatus: status}
}

func TestRunIncremental(t *testing.T) {
	store := newFakeStore([]models.CaseRecord{
		stored(1, "Under Investigation"),
		stored(2, "Confirmed"),
	})
	notifier := &fakeNotifier{}
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "Confirmed"), row("2", "Confirmed"), row("3", "No")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
		Notifier:   notifier,
	})

	result := runner.Run(context.Background())

	require.True(t, result.Success)
	require.Equal(t, 1, result.NewCases)
	require.Equal(t, 1, result.UpdatedCases)

	require.Len(t, store.inserted, 1)
	require.Equal(t, int64(3), store.inserted[0].CaseNumber)
	require.Equal(t, "Confirmed", store.travelUpdates[1])
	require.False(t, store.replaced)

	require.Len(t, notifier.messages, 1)
	require.Equal(t, "1 new cases added", notifier.messages[0])

	require.Equal(t, 1, store.state.SuccessCount)
	require.Equal(t, 1, store.state.LastNewCases)
}

func TestRunFullRefresh(t *testing.T) {
	store := newFakeStore([]models.CaseRecord{stored(1, "Confirmed")})
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "Confirmed"), row("2", "No"), row("3", "No")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeFullRefresh,
	})

	result := runner.Run(context.Background())

	require.True(t, result.Success)
	require.Equal(t, 2, result.NewCases)
	require.True(t, store.replaced)
	require.Len(t, store.cases, 3)
}

func TestRunNoData(t *testing.T) {
	store := newFakeStore(nil)
	runner := NewRunner(Options{
		Source:     &fakeSource{err: source.ErrNoData},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeFullRefresh,
	})

	result := runner.Run(context.Background())

	require.True(t, result.Success)
	require.True(t, result.NoData)
	require.False(t, store.replaced)
	require.Empty(t, store.inserted)
}

func TestRunFetchFailure(t *testing.T) {
	store := newFakeStore(nil)
	runner := NewRunner(Options{
		Source:     &fakeSource{err: errors.New("connection refused")},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
	})

	result := runner.Run(context.Background())

	require.False(t, result.Success)
	require.Equal(t, StageFetch, result.Stage)
	require.Contains(t, result.Reason, "record source unavailable")
	require.False(t, store.replaced)
	require.Empty(t, store.inserted)

	require.Equal(t, 1, store.state.FailureCount)
	require.Equal(t, string(StageFetch), store.state.LastStage)
}

func TestRunNormalizeFailureAbortsBatch(t *testing.T) {
	bad := row("", "No") // no digits in the case number
	store := newFakeStore(nil)
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "No"), bad}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
	})

	result := runner.Run(context.Background())

	require.False(t, result.Success)
	require.Equal(t, StageNormalize, result.Stage)
	require.Empty(t, store.inserted)
}

func TestRunPersistFailure(t *testing.T) {
	store := newFakeStore(nil)
	store.failInsert = true
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "No")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
	})

	result := runner.Run(context.Background())

	require.False(t, result.Success)
	require.Equal(t, StagePersist, result.Stage)
	require.Contains(t, result.Reason, "store write failed")
}

func TestNoNotificationWithoutNewCases(t *testing.T) {
	store := newFakeStore([]models.CaseRecord{stored(1, "Confirmed")})
	notifier := &fakeNotifier{}
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "Confirmed")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
		Notifier:   notifier,
	})

	result := runner.Run(context.Background())

	require.True(t, result.Success)
	require.Equal(t, 0, result.NewCases)
	require.Empty(t, notifier.messages)
}

func TestNotificationFailureIsNonFatal(t *testing.T) {
	store := newFakeStore(nil)
	notifier := &fakeNotifier{err: errors.New("smtp timeout")}
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "No")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
		Notifier:   notifier,
	})

	result := runner.Run(context.Background())

	require.True(t, result.Success)
	require.Len(t, notifier.messages, 1)
	require.Equal(t, 1, store.state.SuccessCount)
}

type fakeStatsSource struct {
	rows []source.StatFeedRow
}

func (f *fakeStatsSource) Fetch(ctx context.Context) ([]source.StatFeedRow, error) {
	return f.rows, nil
}

type fakeTotalsSource struct {
	rows []source.StatTotalsRow
}

func (f *fakeTotalsSource) Fetch(ctx context.Context) ([]source.StatTotalsRow, error) {
	return f.rows, nil
}

func TestStatsIngestedOnlyWithNewCases(t *testing.T) {
	feed := &fakeStatsSource{rows: []source.StatFeedRow{
		{Date: source.RawDate{Kind: source.DateCompact, Value: "20200401"}, Tests: 10, NewTests: 10},
	}}

	// No new cases: the statistics collection stays untouched.
	store := newFakeStore([]models.CaseRecord{stored(1, "Confirmed")})
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "Confirmed")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
		Stats:      feed,
	})
	result := runner.Run(context.Background())
	require.True(t, result.Success)
	require.Empty(t, store.stats)

	// A new case triggers the follow-on statistics refresh.
	store = newFakeStore(nil)
	runner = NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "No")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeIncremental,
		Stats:      feed,
	})
	result = runner.Run(context.Background())
	require.True(t, result.Success)
	require.Len(t, store.stats, 1)
}

func TestStatTotalsRefreshedFromExport(t *testing.T) {
	totals := &fakeTotalsSource{rows: []source.StatTotalsRow{
		{Date: source.RawDate{Kind: source.DateMonthDayYear, Value: "3/14/20"}, Hospitalized: 50, Tests: 1000},
		{Date: source.RawDate{Kind: source.DateMonthDayYear, Value: "3/15/20"}, Hospitalized: 75, Tests: 1600},
	}}

	store := newFakeStore(nil)
	runner := NewRunner(Options{
		Source:     &fakeSource{rows: []source.CaseRow{row("1", "No"), row("2", "No")}},
		Normalizer: testNormalizer(t),
		Store:      store,
		Mode:       ModeFullRefresh,
		Totals:     totals,
	})

	result := runner.Run(context.Background())

	require.True(t, result.Success)
	require.Equal(t, 2, result.NewCases)
	require.Len(t, store.stats, 2)
	require.Equal(t, 1000, store.stats[0].NewTests)
	require.Equal(t, 600, store.stats[1].NewTests)
	require.Equal(t, 75, store.stats[1].Hospitalized)
}
