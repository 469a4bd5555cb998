package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// CSV column layout of the state's case export.
const (
	csvColCase = iota
	csvColCounty
	csvColAge
	csvColSex
	csvColTravel
	csvColTravelDetail
	csvColContact
	csvColJurisdiction
	csvColDate
	csvColDeceased
	csvCaseColumns
)

// CSVSource reads case records from the state's flat CSV export. The export
// is a complete dataset snapshot, so it pairs with full-refresh persistence.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source reading the given export file.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Fetch reads every row of the export. Returns ErrNoData on an empty file.
func (s *CSVSource) Fetch(ctx context.Context) ([]CaseRow, error) {
	records, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	rows := make([]CaseRow, 0, len(records))
	for i, record := range records {
		if len(record) < csvCaseColumns {
			return nil, fmt.Errorf("case export row %d: expected %d columns, got %d", i+1, csvCaseColumns, len(record))
		}
		rows = append(rows, CaseRow{
			CaseNumber:   record[csvColCase],
			County:       record[csvColCounty],
			Age:          record[csvColAge],
			Sex:          record[csvColSex],
			TravelStatus: record[csvColTravel],
			TravelDetail: record[csvColTravelDetail],
			Contact:      record[csvColContact],
			Jurisdiction: record[csvColJurisdiction],
			Date:         RawDate{Kind: DateMonthDayYear, Value: record[csvColDate]},
			Deceased:     record[csvColDeceased],
		})
	}

	log.Infof("CSV: Read %d case rows from %s", len(rows), s.path)
	return rows, nil
}

// StatCSVSource reads the daily statistics export: date, hospitalized
// running total, tests running total.
type StatCSVSource struct {
	path string
}

// NewStatCSVSource creates a source reading the given statistics file.
func NewStatCSVSource(path string) *StatCSVSource {
	return &StatCSVSource{path: path}
}

// Fetch reads every statistics row in file order. Row order matters: the
// normalizer derives new-test counts from consecutive totals.
func (s *StatCSVSource) Fetch(ctx context.Context) ([]StatTotalsRow, error) {
	records, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	rows := make([]StatTotalsRow, 0, len(records))
	for i, record := range records {
		if len(record) < 3 {
			return nil, fmt.Errorf("stats export row %d: expected 3 columns, got %d", i+1, len(record))
		}
		hospitalized, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("stats export row %d: bad hospitalized count %q", i+1, record[1])
		}
		tests, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("stats export row %d: bad test count %q", i+1, record[2])
		}
		rows = append(rows, StatTotalsRow{
			Date:         RawDate{Kind: DateMonthDayYear, Value: record[0]},
			Hospitalized: hospitalized,
			Tests:        tests,
		})
	}

	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	return records, nil
}
