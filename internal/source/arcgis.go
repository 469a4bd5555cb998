package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const defaultPageSize = 2000

// ArcGISSource pulls case records from the health authority's ArcGIS feature
// feed. The feed is paginated and rate-limited upstream, so a fixed delay is
// inserted between page requests.
type ArcGISSource struct {
	client    *resty.Client
	url       string
	pageSize  int
	pageDelay time.Duration
	breaker   *breaker
}

// ArcGISConfig tunes the feed client.
type ArcGISConfig struct {
	URL       string
	PageSize  int
	PageDelay time.Duration
	Timeout   time.Duration
}

// NewArcGISSource creates a feed client with the given configuration.
func NewArcGISSource(cfg ArcGISConfig) *ArcGISSource {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)

	return &ArcGISSource{
		client:    client,
		url:       cfg.URL,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
		breaker:   newBreaker(15 * time.Minute),
	}
}

type arcgisFeature struct {
	Attributes arcgisAttributes `json:"attributes"`
}

type arcgisAttributes struct {
	ObjectID      int64      `json:"ObjectId"`
	CaseTimestamp int64      `json:"Case_"`
	County        string     `json:"County"`
	Age           flexString `json:"Age"`
	Gender        string     `json:"Gender"`
	TravelRelated string     `json:"Travel_related"`
	Origin        string     `json:"Origin"`
	EDVisit       string     `json:"EDvisit"`
	Hospitalized  string     `json:"Hospitalized"`
	Died          string     `json:"Died"`
	Contact       string     `json:"Contact"`
}

type arcgisResponse struct {
	Count    int             `json:"count"`
	Features []arcgisFeature `json:"features"`
}

// flexString tolerates the feed's habit of switching a field between JSON
// string, number and null across publishes.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Fetch retrieves the full feed, page by page. It returns ErrNoData when the
// upstream count probe reports zero records.
func (s *ArcGISSource) Fetch(ctx context.Context) ([]CaseRow, error) {
	count, err := s.recordCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoData
	}

	pages := int(math.Ceil(float64(count) / float64(s.pageSize)))
	log.Infof("ArcGIS: %d records available across %d pages", count, pages)

	var rows []CaseRow
	for page := 0; page < pages; page++ {
		if !s.breaker.allow() {
			return nil, fmt.Errorf("feed page %d: upstream is throttling, run abandoned", page+1)
		}
		log.Infof("ArcGIS: Requesting page %d of %d", page+1, pages)

		var body arcgisResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"outFields":         "Case_, ObjectId, County, Age, Gender, Travel_Related, Origin, EDVisit, Hospitalized, Died, Contact, EventDate",
				"where":             "Case_ not like 'NA%'",
				"returnCountOnly":   "false",
				"resultOffset":      strconv.Itoa(page * s.pageSize),
				"resultRecordCount": strconv.Itoa(s.pageSize),
				"orderByFields":     "Case_",
				"f":                 "pjson",
			}).
			SetResult(&body).
			Get(s.url)
		if err != nil {
			return nil, fmt.Errorf("feed page %d: %w", page+1, err)
		}
		if resp.IsError() {
			s.breaker.recordFailure(resp.StatusCode())
			return nil, fmt.Errorf("feed page %d: unexpected status %s", page+1, resp.Status())
		}
		s.breaker.recordSuccess()

		for _, feature := range body.Features {
			rows = append(rows, feature.Attributes.toRow())
		}

		// Fixed pause between pages to respect upstream throttling.
		if page < pages-1 {
			if err := sleepContext(ctx, s.pageDelay); err != nil {
				return nil, err
			}
		}
	}

	return rows, nil
}

func (s *ArcGISSource) recordCount(ctx context.Context) (int, error) {
	var body arcgisResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"where":           "1>0",
			"returnCountOnly": "true",
			"f":               "pjson",
		}).
		SetResult(&body).
		Get(s.url)
	if err != nil {
		return 0, fmt.Errorf("feed count probe: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("feed count probe: unexpected status %s", resp.Status())
	}
	return body.Count, nil
}

func (a arcgisAttributes) toRow() CaseRow {
	return CaseRow{
		CaseNumber:   strconv.FormatInt(a.ObjectID, 10),
		County:       a.County,
		Age:          string(a.Age),
		Sex:          a.Gender,
		TravelStatus: a.TravelRelated,
		TravelDetail: a.Origin,
		Contact:      a.Contact,
		Date:         RawDate{Kind: DateEpochMillis, Value: strconv.FormatInt(a.CaseTimestamp, 10)},
		Deceased:     a.Died,
		Hospitalized: a.Hospitalized,
		EDVisit:      a.EDVisit,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
