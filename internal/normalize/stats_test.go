package normalize

import (
	"testing"
	"time"

	"covid-data-portal/internal/source"

	"github.com/stretchr/testify/require"
)

func TestStatFeed(t *testing.T) {
	rows := []source.StatFeedRow{
		{
			Date:            source.RawDate{Kind: source.DateCompact, Value: "20200401"},
			Tests:           1000,
			NewTests:        200,
			Deaths:          30,
			NewDeaths:       10,
			Hospitalized:    120,
			NewHospitalized: 20,
		},
		{
			// First report: no prior totals, growth stays 0.
			Date:      source.RawDate{Kind: source.DateCompact, Value: "20200302"},
			Deaths:    2,
			NewDeaths: 2,
		},
	}

	stats, err := StatFeed(rows)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	require.Equal(t, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC), stats[0].Date)
	require.InDelta(t, 1.5, stats[0].DeathsGrowth, 1e-9)  // 30 / 20
	require.InDelta(t, 1.2, stats[0].HospitalizedGrowth, 1e-9) // 120 / 100

	require.Equal(t, 0.0, stats[1].DeathsGrowth)
	require.Equal(t, 0.0, stats[1].HospitalizedGrowth)
}

func TestStatTotalsDerivesNewTests(t *testing.T) {
	rows := []source.StatTotalsRow{
		{Date: source.RawDate{Kind: source.DateMonthDayYear, Value: "3/1/20"}, Tests: 100, Hospitalized: 5},
		{Date: source.RawDate{Kind: source.DateMonthDayYear, Value: "3/2/20"}, Tests: 180, Hospitalized: 9},
		{Date: source.RawDate{Kind: source.DateMonthDayYear, Value: "3/3/20"}, Tests: 180, Hospitalized: 12},
	}

	stats, err := StatTotals(rows)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	require.Equal(t, 100, stats[0].NewTests)
	require.Equal(t, 80, stats[1].NewTests)
	require.Equal(t, 0, stats[2].NewTests)
	require.Equal(t, 12, stats[2].Hospitalized)
}

func TestStatFeedBadDate(t *testing.T) {
	rows := []source.StatFeedRow{
		{Date: source.RawDate{Kind: source.DateCompact, Value: "0"}},
	}
	_, err := StatFeed(rows)
	require.Error(t, err)
}
