package source

import "errors"

// ErrNoData signals that the upstream reported zero available records. It is
// a "nothing to do" outcome, not a failure; callers end the run without
// touching the store.
var ErrNoData = errors.New("source reported no data")

// DateKind identifies how a raw row encodes its record date.
type DateKind int

const (
	// DateEpochMillis is a millisecond unix timestamp (ArcGIS attributes).
	DateEpochMillis DateKind = iota
	// DateMonthDayYear is MM/DD/YY text (CSV exports).
	DateMonthDayYear
	// DateCompact is a YYYYMMDD integer rendered as text (stats feed).
	DateCompact
)

// RawDate is an unparsed record date plus its encoding.
type RawDate struct {
	Kind  DateKind
	Value string
}

// CaseRow is one raw case row as produced by a record source, before
// normalization. All fields are kept as source text; the normalizer owns
// sentinel handling, coercion and defaulting.
type CaseRow struct {
	CaseNumber   string
	County       string
	Age          string
	Sex          string
	TravelStatus string
	// TravelDetail is the raw ";"-separated origin string; empty or "NA"
	// means the source reported none.
	TravelDetail string
	Contact      string
	Jurisdiction string
	Date         RawDate
	Deceased     string
	Hospitalized string
	EDVisit      string
}

// StatFeedRow is one raw day of aggregate counters from the statistics feed.
// The feed reports running totals alongside day-over-day increases; absent
// fields arrive as zero.
type StatFeedRow struct {
	Date            RawDate
	Tests           int
	NewTests        int
	Deaths          int
	NewDeaths       int
	Hospitalized    int
	NewHospitalized int
}

// StatTotalsRow is one raw day from the CSV statistics export, which carries
// running totals only; increases are derived during normalization.
type StatTotalsRow struct {
	Date         RawDate
	Hospitalized int
	Tests        int
}
