// Package analytics computes derived time series from persisted case
// records: cumulative counts, day-over-day growth rates, naive forward
// projections and per-county rankings.
package analytics

import (
	"math"
	"sort"
	"time"

	"covid-data-portal/internal/locations"
	"covid-data-portal/internal/models"
)

// Point is one (date, cumulative count) pair of a cumulative series,
// ordered by date ascending.
type Point struct {
	Date  time.Time
	Count float64
}

// RatePoint is the day-over-day growth ratio of a cumulative series.
type RatePoint struct {
	Date time.Time
	Rate float64
}

// CumulativeByDate groups records by recorded date, counts them per date and
// running-sums the counts in date order. Dates with no records simply do not
// appear; the cumulative value carries forward implicitly.
func CumulativeByDate(records []models.CaseRecord) []Point {
	counts := make(map[time.Time]int)
	for _, record := range records {
		counts[record.RecordedDate]++
	}

	dates := make([]time.Time, 0, len(counts))
	for date := range counts {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	series := make([]Point, 0, len(dates))
	total := 0
	for _, date := range dates {
		total += counts[date]
		series = append(series, Point{Date: date, Count: float64(total)})
	}
	return series
}

// GrowthRates computes rate[d] = cumulative[d] / cumulative[d-1] for every
// point after the first, with 0 when the prior value is 0. The first point
// has no defined rate and is omitted. A positive window restricts the output
// to the trailing N points.
func GrowthRates(series []Point, window int) []RatePoint {
	if len(series) < 2 {
		return nil
	}

	rates := make([]RatePoint, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		rate := 0.0
		if series[i-1].Count > 0 {
			rate = series[i].Count / series[i-1].Count
		}
		rates = append(rates, RatePoint{Date: series[i].Date, Rate: rate})
	}

	if window > 0 && len(rates) > window {
		rates = rates[len(rates)-window:]
	}
	return rates
}

// MeanRate averages a set of growth rates; it feeds the projection factor.
func MeanRate(rates []RatePoint) float64 {
	if len(rates) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rates {
		sum += r.Rate
	}
	return sum / float64(len(rates))
}

// Project extrapolates the series forward by multiplying the last known
// count by a constant daily factor, one calendar day at a time. Counts are
// kept as unrounded floats; this is a deliberately naive constant-ratio
// extrapolation, not a fitted model. An empty series projects to nothing.
func Project(series []Point, horizon int, growthFactor float64) []Point {
	if len(series) == 0 || horizon <= 0 {
		return nil
	}

	last := series[len(series)-1]
	projected := make([]Point, 0, horizon)
	date, count := last.Date, last.Count
	for i := 0; i < horizon; i++ {
		date = date.AddDate(0, 0, 1)
		count *= growthFactor
		projected = append(projected, Point{Date: date, Count: count})
	}
	return projected
}

// TopCounties ranks counties by total record count descending and returns
// the first n names. Equal counts are broken by county name ascending so the
// ranking is deterministic.
func TopCounties(records []models.CaseRecord, n int) []string {
	counts := make(map[string]int)
	for _, record := range records {
		counts[record.County]++
	}

	counties := make([]string, 0, len(counts))
	for county := range counts {
		counties = append(counties, county)
	}
	sort.Slice(counties, func(i, j int) bool {
		if counts[counties[i]] != counts[counties[j]] {
			return counts[counties[i]] > counts[counties[j]]
		}
		return counties[i] < counties[j]
	})

	if len(counties) > n {
		counties = counties[:n]
	}
	return counties
}

// CumulativeByCounty computes the per-county cumulative series for the given
// counties and normalizes each point per 1,000 residents using the county
// directory. Counties missing from the directory get a normalized count of
// 0 rather than being dropped.
func CumulativeByCounty(records []models.CaseRecord, counties []string, directory *locations.Directory) []models.CountyRanking {
	byCounty := make(map[string][]models.CaseRecord)
	for _, record := range records {
		byCounty[record.County] = append(byCounty[record.County], record)
	}

	var rankings []models.CountyRanking
	for _, county := range counties {
		series := CumulativeByDate(byCounty[county])
		population, _ := directory.Population(county)
		for _, point := range series {
			normalized := 0.0
			if population > 0 {
				normalized = round2(point.Count / (float64(population) / 1000))
			}
			rankings = append(rankings, models.CountyRanking{
				County:          county,
				Date:            point.Date,
				Count:           int(point.Count),
				NormalizedCount: normalized,
			})
		}
	}
	return rankings
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
