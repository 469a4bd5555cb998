package normalize

import (
	"errors"
	"testing"
	"time"

	"covid-data-portal/internal/locations"
	"covid-data-portal/internal/models"
	"covid-data-portal/internal/source"

	"github.com/stretchr/testify/require"
)

func testDirectory(t *testing.T) *locations.Directory {
	t.Helper()
	directory, err := locations.Parse([]byte(`[
		{"county": "Broward", "location": {"lat": 26.15, "lng": -80.45}, "population": 1951260},
		{"county": "Dade", "location": {"lat": 25.61, "lng": -80.5}, "population": 2716940}
	]`))
	require.NoError(t, err)
	return directory
}

func validRow() source.CaseRow {
	return source.CaseRow{
		CaseNumber:   "17",
		County:       "Broward",
		Age:          "45",
		Sex:          "Male",
		TravelStatus: "Yes",
		TravelDetail: "Miami; Uk",
		Contact:      "NA",
		Date:         source.RawDate{Kind: source.DateMonthDayYear, Value: "3/15/20"},
		Deceased:     "NA",
	}
}

func TestCaseNormalization(t *testing.T) {
	n := New(testDirectory(t))

	record, err := n.Case(validRow())
	require.NoError(t, err)

	require.Equal(t, int64(17), record.CaseNumber)
	require.Equal(t, "Broward", record.County)
	require.NotNil(t, record.Age)
	require.Equal(t, 45, *record.Age)
	require.Equal(t, models.StringList{"Miami", "Uk"}, record.TravelDetail)
	require.Equal(t, "No", record.ContactWithConfirmedCase)
	require.Equal(t, "No", record.Deceased)
	require.Equal(t, time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC), record.RecordedDate)
	require.NotNil(t, record.Latitude)
	require.InDelta(t, 26.15, *record.Latitude, 1e-9)
}

func TestAgeSentinels(t *testing.T) {
	n := New(testDirectory(t))

	testCases := []struct {
		raw      string
		expected *int
	}{
		{raw: "NA", expected: nil},
		{raw: "", expected: nil},
		{raw: "  ", expected: nil},
		{raw: "years", expected: nil},
		{raw: "45 ", expected: intPtr(45)},
		{raw: "0", expected: intPtr(0)},
	}

	for _, tc := range testCases {
		row := validRow()
		row.Age = tc.raw
		record, err := n.Case(row)
		require.NoError(t, err, "age %q", tc.raw)
		if tc.expected == nil {
			require.Nil(t, record.Age, "age %q", tc.raw)
		} else {
			require.NotNil(t, record.Age, "age %q", tc.raw)
			require.Equal(t, *tc.expected, *record.Age)
		}
	}
}

func TestCaseNumberStripsNonDigits(t *testing.T) {
	n := New(testDirectory(t))

	row := validRow()
	row.CaseNumber = "Case #123"
	record, err := n.Case(row)
	require.NoError(t, err)
	require.Equal(t, int64(123), record.CaseNumber)
}

func TestCaseNumberEmptyFails(t *testing.T) {
	n := New(testDirectory(t))

	row := validRow()
	row.CaseNumber = "pending"
	_, err := n.Case(row)
	require.Error(t, err)

	var normErr *NormalizationError
	require.True(t, errors.As(err, &normErr))
	require.Equal(t, "case_number", normErr.Field)
}

func TestTravelDetailSplitting(t *testing.T) {
	n := New(testDirectory(t))

	testCases := []struct {
		raw      string
		expected models.StringList
	}{
		{raw: "NA", expected: nil},
		{raw: "", expected: nil},
		// Tokens of length 2 or less are passed through untouched.
		{raw: "ny; uk; london", expected: models.StringList{"ny", "uk", "London"}},
		{raw: "MIAMI BEACH;  spain ", expected: models.StringList{"Miami Beach", "Spain"}},
	}

	for _, tc := range testCases {
		row := validRow()
		row.TravelDetail = tc.raw
		record, err := n.Case(row)
		require.NoError(t, err, "travel %q", tc.raw)
		require.Equal(t, tc.expected, record.TravelDetail, "travel %q", tc.raw)
	}
}

func TestContactDefaults(t *testing.T) {
	n := New(testDirectory(t))

	row := validRow()
	row.Contact = "NA"
	record, err := n.Case(row)
	require.NoError(t, err)
	require.Equal(t, "No", record.ContactWithConfirmedCase)

	row.Contact = ""
	record, err = n.Case(row)
	require.NoError(t, err)
	require.Equal(t, "Unknown", record.ContactWithConfirmedCase)

	row.Contact = "yes"
	record, err = n.Case(row)
	require.NoError(t, err)
	require.Equal(t, "Yes", record.ContactWithConfirmedCase)
}

func TestOptionalFlags(t *testing.T) {
	n := New(testDirectory(t))

	row := validRow()
	row.Hospitalized = "NA"
	row.EDVisit = "yes"
	record, err := n.Case(row)
	require.NoError(t, err)
	require.Nil(t, record.Hospitalized)
	require.NotNil(t, record.EDVisit)
	require.Equal(t, "Yes", *record.EDVisit)
}

func TestDateFormats(t *testing.T) {
	n := New(testDirectory(t))

	// Epoch milliseconds truncate to the date.
	row := validRow()
	ts := time.Date(2020, 3, 20, 17, 45, 12, 0, time.UTC)
	row.Date = source.RawDate{Kind: source.DateEpochMillis, Value: "1584726312000"}
	record, err := n.Case(row)
	require.NoError(t, err)
	require.Equal(t, time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), record.RecordedDate)

	row.Date = source.RawDate{Kind: source.DateCompact, Value: "20200320"}
	record, err = n.Case(row)
	require.NoError(t, err)
	require.Equal(t, time.Date(2020, 3, 20, 0, 0, 0, 0, time.UTC), record.RecordedDate)

	row.Date = source.RawDate{Kind: source.DateMonthDayYear, Value: "not a date"}
	_, err = n.Case(row)
	var normErr *NormalizationError
	require.True(t, errors.As(err, &normErr))
	require.Equal(t, "recorded_date", normErr.Field)
}

func TestUnresolvedCountyYieldsNullLocation(t *testing.T) {
	n := New(testDirectory(t))

	row := validRow()
	row.County = "Atlantis"
	record, err := n.Case(row)
	require.NoError(t, err)
	require.Nil(t, record.Latitude)
	require.Nil(t, record.Longitude)
}

func TestBatchRejectsDuplicates(t *testing.T) {
	n := New(testDirectory(t))

	a := validRow()
	b := validRow()
	b.County = "Dade"

	_, err := n.Batch([]source.CaseRow{a, b})
	require.Error(t, err)

	var normErr *NormalizationError
	require.True(t, errors.As(err, &normErr))
	require.Equal(t, "case_number", normErr.Field)
}

func TestBatchAbortsOnFirstBadRow(t *testing.T) {
	n := New(testDirectory(t))

	bad := validRow()
	bad.Date = source.RawDate{Kind: source.DateMonthDayYear, Value: "garbage"}
	good := validRow()
	good.CaseNumber = "18"

	_, err := n.Batch([]source.CaseRow{bad, good})
	require.Error(t, err)
}

func intPtr(v int) *int { return &v }
