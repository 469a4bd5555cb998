package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// StatsFeedSource pulls state-level daily testing, death and hospitalization
// counters from the national tracking API.
type StatsFeedSource struct {
	client *resty.Client
	url    string
	state  string
}

// StatsFeedConfig tunes the daily statistics client.
type StatsFeedConfig struct {
	URL     string
	State   string
	Timeout time.Duration
}

// NewStatsFeedSource creates a daily statistics client.
func NewStatsFeedSource(cfg StatsFeedConfig) *StatsFeedSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	return &StatsFeedSource{
		client: client,
		url:    cfg.URL,
		state:  cfg.State,
	}
}

// The feed leaves counters null before they were first reported.
type statsFeedItem struct {
	Date                      int  `json:"date"`
	TotalTestResults          *int `json:"totalTestResults"`
	TotalTestResultsIncrease  *int `json:"totalTestResultsIncrease"`
	Death                     *int `json:"death"`
	DeathIncrease             *int `json:"deathIncrease"`
	Hospitalized              *int `json:"hospitalized"`
	HospitalizedIncrease      *int `json:"hospitalizedIncrease"`
}

// Fetch retrieves the full daily history for the configured state.
func (s *StatsFeedSource) Fetch(ctx context.Context) ([]StatFeedRow, error) {
	var items []statsFeedItem
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("state", s.state).
		SetResult(&items).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("stats feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("stats feed: unexpected status %s", resp.Status())
	}
	if len(items) == 0 {
		return nil, ErrNoData
	}

	rows := make([]StatFeedRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, StatFeedRow{
			Date:            RawDate{Kind: DateCompact, Value: strconv.Itoa(item.Date)},
			Tests:           intValue(item.TotalTestResults),
			NewTests:        intValue(item.TotalTestResultsIncrease),
			Deaths:          intValue(item.Death),
			NewDeaths:       intValue(item.DeathIncrease),
			Hospitalized:    intValue(item.Hospitalized),
			NewHospitalized: intValue(item.HospitalizedIncrease),
		})
	}

	log.Infof("StatsFeed: Retrieved %d daily records for %s", len(rows), s.state)
	return rows, nil
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
