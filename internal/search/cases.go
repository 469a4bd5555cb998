package search

import (
	"covid-data-portal/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

// SearchClient maintains the case search index. The index is a convenience
// layer for the dashboard; indexing failures never fail an ingestion run.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

// NewSearchClient creates a client for the given Meilisearch instance.
func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "cases",
	}
}

// InitIndex initializes the case index.
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "case_number",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"county",
		"travel_status",
		"travel_detail",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"county",
		"sex",
		"travel_status",
		"deceased",
		"recorded_date",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"case_number",
		"recorded_date",
		"age",
	})
	return err
}

// IndexCases indexes a batch of case records.
func (s *SearchClient) IndexCases(records []models.CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(records)
	return err
}

// Search searches the case index.
func (s *SearchClient) Search(query string, limit int64) ([]models.CaseRecord, error) {
	result, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	cases := make([]models.CaseRecord, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		record := models.CaseRecord{}
		if number, ok := doc["case_number"].(float64); ok {
			record.CaseNumber = int64(number)
		}
		if county, ok := doc["county"].(string); ok {
			record.County = county
		}
		if status, ok := doc["travel_status"].(string); ok {
			record.TravelStatus = status
		}
		cases = append(cases, record)
	}
	return cases, nil
}
