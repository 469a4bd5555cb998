package normalize

import (
	"covid-data-portal/internal/models"
	"covid-data-portal/internal/source"
)

// StatFeed converts daily statistics feed rows into DailyStat records. The
// feed already carries day-over-day increases; growth ratios are derived
// from the increase against the prior total, with 0 when the prior total is
// not positive.
func StatFeed(rows []source.StatFeedRow) ([]models.DailyStat, error) {
	stats := make([]models.DailyStat, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, err
		}
		stats = append(stats, models.DailyStat{
			Date:               date,
			Tests:              row.Tests,
			NewTests:           row.NewTests,
			Deaths:             row.Deaths,
			NewDeaths:          row.NewDeaths,
			DeathsGrowth:       growthRatio(row.Deaths, row.NewDeaths),
			Hospitalized:       row.Hospitalized,
			NewHospitalized:    row.NewHospitalized,
			HospitalizedGrowth: growthRatio(row.Hospitalized, row.NewHospitalized),
		})
	}
	return stats, nil
}

// StatTotals converts CSV statistics rows, which carry running totals only.
// New-test counts are derived from consecutive totals in row order; the
// first row's previous total is 0.
func StatTotals(rows []source.StatTotalsRow) ([]models.DailyStat, error) {
	stats := make([]models.DailyStat, 0, len(rows))
	prevTests := 0
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, err
		}
		stats = append(stats, models.DailyStat{
			Date:         date,
			Tests:        row.Tests,
			NewTests:     row.Tests - prevTests,
			Hospitalized: row.Hospitalized,
		})
		prevTests = row.Tests
	}
	return stats, nil
}

// growthRatio is total / (total - increase), or 0 when the prior total is
// not positive.
func growthRatio(total, increase int) float64 {
	prev := total - increase
	if prev <= 0 {
		return 0
	}
	return float64(total) / float64(prev)
}
