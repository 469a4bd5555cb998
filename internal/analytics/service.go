package analytics

import (
	"fmt"
	"time"

	"covid-data-portal/internal/locations"
	"covid-data-portal/internal/models"

	log "github.com/sirupsen/logrus"
)

// Store is the slice of the document store the analytics engine needs.
type Store interface {
	AllCases() ([]models.CaseRecord, error)
	// CasesBefore returns cases recorded strictly before the cutoff date.
	CasesBefore(cutoff time.Time) ([]models.CaseRecord, error)
	ReplaceGrowthSeries(series models.GrowthSeries, points []models.GrowthPoint) error
	ReplaceGrowthRates(rates []models.GrowthRate) error
	ReplaceCountyRankings(rankings []models.CountyRanking) error
}

// Service recomputes the derived collections from the persisted cases.
type Service struct {
	store     Store
	directory *locations.Directory

	// Horizon is the number of future days a simulation projects.
	Horizon int
	// RateWindow is the number of trailing growth rates averaged into the
	// projection factor.
	RateWindow int
	// TopN is the number of counties ranked in the county series.
	TopN int
}

// NewService creates an analytics service with the standard defaults:
// a 14-day projection from the mean of the last 10 growth rates, ranking
// the top 5 counties.
func NewService(store Store, directory *locations.Directory) *Service {
	return &Service{
		store:      store,
		directory:  directory,
		Horizon:    14,
		RateWindow: 10,
		TopN:       5,
	}
}

// PushGrowth rebuilds the cumulative growth series and growth rates from the
// stored cases. Actual points and rates are replaced on every call; the
// predicted series survives untouched unless recomputeSimulation is set, in
// which case it is rebuilt from the current trailing growth factor.
func (s *Service) PushGrowth(recomputeSimulation bool) error {
	cases, err := s.store.AllCases()
	if err != nil {
		return fmt.Errorf("failed to load cases: %w", err)
	}

	series := CumulativeByDate(cases)
	actual := make([]models.GrowthPoint, 0, len(series))
	for _, point := range series {
		actual = append(actual, models.GrowthPoint{
			Date:   point.Date,
			Count:  point.Count,
			Series: models.SeriesActual,
		})
	}
	if err := s.store.ReplaceGrowthSeries(models.SeriesActual, actual); err != nil {
		return fmt.Errorf("failed to replace actual growth series: %w", err)
	}

	if recomputeSimulation {
		factor := MeanRate(GrowthRates(series, s.RateWindow))
		projected := Project(series, s.Horizon, factor)
		predicted := make([]models.GrowthPoint, 0, len(projected))
		for _, point := range projected {
			predicted = append(predicted, models.GrowthPoint{
				Date:   point.Date,
				Count:  point.Count,
				Series: models.SeriesPredicted,
			})
		}
		if err := s.store.ReplaceGrowthSeries(models.SeriesPredicted, predicted); err != nil {
			return fmt.Errorf("failed to replace predicted growth series: %w", err)
		}
		log.Infof("Analytics: Simulated %d days at growth factor %.4f", s.Horizon, factor)
	}

	ratePoints := GrowthRates(series, 0)
	rates := make([]models.GrowthRate, 0, len(ratePoints))
	for _, point := range ratePoints {
		rates = append(rates, models.GrowthRate{Date: point.Date, Rate: point.Rate})
	}
	if err := s.store.ReplaceGrowthRates(rates); err != nil {
		return fmt.Errorf("failed to replace growth rates: %w", err)
	}

	log.Infof("Analytics: Pushed %d growth points and %d rates", len(actual), len(rates))
	return nil
}

// PushCountyRankings rebuilds the top-N county series. The most recent day
// is excluded: the source publishes it incrementally during the day and its
// counts are not yet final.
func (s *Service) PushCountyRankings() error {
	cutoff := time.Now().AddDate(0, 0, -1)
	cases, err := s.store.CasesBefore(cutoff)
	if err != nil {
		return fmt.Errorf("failed to load cases: %w", err)
	}

	top := TopCounties(cases, s.TopN)
	rankings := CumulativeByCounty(cases, top, s.directory)
	if err := s.store.ReplaceCountyRankings(rankings); err != nil {
		return fmt.Errorf("failed to replace county rankings: %w", err)
	}

	log.Infof("Analytics: Ranked %d counties (%d points)", len(top), len(rankings))
	return nil
}
