package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"covid-data-portal/internal/locations"
	"covid-data-portal/internal/models"
	"covid-data-portal/internal/source"
)

// nullSentinel is the provider's "not available" marker. An empty field is
// treated the same way.
const nullSentinel = "NA"

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizationError identifies the field of a raw row that could not be
// converted to the canonical shape.
type NormalizationError struct {
	Field string
	Value string
	Err   error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot normalize field %s (value %q): %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("cannot normalize field %s (value %q)", e.Field, e.Value)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Normalizer converts raw source rows into canonical case records. It
// consults the county directory for coordinates and applies the same
// field-level parsing rules regardless of which source produced the row.
type Normalizer struct {
	directory *locations.Directory
}

// New creates a normalizer backed by the given county directory.
func New(directory *locations.Directory) *Normalizer {
	return &Normalizer{directory: directory}
}

// Case converts one raw row into a CaseRecord.
func (n *Normalizer) Case(row source.CaseRow) (models.CaseRecord, error) {
	caseNumber, err := parseCaseNumber(row.CaseNumber)
	if err != nil {
		return models.CaseRecord{}, err
	}

	recordedDate, err := parseDate(row.Date)
	if err != nil {
		return models.CaseRecord{}, err
	}

	record := models.CaseRecord{
		CaseNumber:               caseNumber,
		County:                   row.County,
		Age:                      parseAge(row.Age),
		Sex:                      row.Sex,
		TravelStatus:             row.TravelStatus,
		TravelDetail:             splitTravelDetail(row.TravelDetail),
		ContactWithConfirmedCase: normalizeFlag(row.Contact, "No", "Unknown"),
		RecordedDate:             recordedDate,
		Deceased:                 defaultIfNull(row.Deceased, "No"),
		Hospitalized:             optionalFlag(row.Hospitalized),
		EDVisit:                  optionalFlag(row.EDVisit),
	}

	// Unresolved counties map to a null location, never a failure.
	if loc, ok := n.directory.Location(row.County); ok {
		record.SetLocation(loc.Latitude, loc.Longitude)
	}

	return record, nil
}

// Batch converts a whole batch, failing on the first bad row. A batch
// containing two rows with the same case number is rejected: downstream
// reconciliation assumes batch-internal uniqueness.
func (n *Normalizer) Batch(rows []source.CaseRow) ([]models.CaseRecord, error) {
	records := make([]models.CaseRecord, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		record, err := n.Case(row)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[record.CaseNumber]; dup {
			return nil, &NormalizationError{
				Field: "case_number",
				Value: strconv.FormatInt(record.CaseNumber, 10),
				Err:   fmt.Errorf("duplicate case number in batch"),
			}
		}
		seen[record.CaseNumber] = struct{}{}
		records = append(records, record)
	}
	return records, nil
}

// parseCaseNumber strips all non-digit characters before parsing. Unlike
// age, an empty result is a hard failure.
func parseCaseNumber(raw string) (int64, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, &NormalizationError{Field: "case_number", Value: raw}
	}
	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, &NormalizationError{Field: "case_number", Value: raw, Err: err}
	}
	return number, nil
}

// parseAge returns nil (age unknown) for null sentinels and for values that
// contain no digits at all; the source occasionally publishes ages like
// "45 " or "NA".
func parseAge(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == nullSentinel {
		return nil
	}
	digits := nonDigits.ReplaceAllString(trimmed, "")
	if digits == "" {
		return nil
	}
	age, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &age
}

// splitTravelDetail breaks the raw origin string on ";" and title-cases each
// trimmed token, except tokens of length 2 or less, which are passed through
// untouched so country codes like "UK" or "uk" survive.
func splitTravelDetail(raw string) models.StringList {
	if raw == "" || raw == nullSentinel {
		return nil
	}
	tokens := strings.Split(raw, ";")
	detail := make(models.StringList, 0, len(tokens))
	for _, token := range tokens {
		trimmed := strings.TrimSpace(token)
		if len(trimmed) > 2 {
			trimmed = titleCase(trimmed)
		}
		detail = append(detail, trimmed)
	}
	return detail
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

// normalizeFlag maps the provider's null sentinel and empty values to fixed
// defaults and title-cases everything else.
func normalizeFlag(raw, naDefault, emptyDefault string) string {
	if raw == nullSentinel {
		return naDefault
	}
	if strings.TrimSpace(raw) == "" {
		return emptyDefault
	}
	return titleCase(raw)
}

// defaultIfNull replaces a null-sentinel or empty value with a fixed default
// and leaves anything else as the source wrote it.
func defaultIfNull(raw, def string) string {
	if raw == nullSentinel || strings.TrimSpace(raw) == "" {
		return def
	}
	return raw
}

// optionalFlag returns nil for null sentinels, matching fields the source
// may omit entirely.
func optionalFlag(raw string) *string {
	if raw == "" || raw == nullSentinel {
		return nil
	}
	value := titleCase(raw)
	return &value
}

// parseDate parses a raw date per its source encoding and truncates it to a
// date-only UTC value.
func parseDate(raw source.RawDate) (time.Time, error) {
	switch raw.Kind {
	case source.DateEpochMillis:
		millis, err := strconv.ParseInt(raw.Value, 10, 64)
		if err != nil {
			return time.Time{}, &NormalizationError{Field: "recorded_date", Value: raw.Value, Err: err}
		}
		return truncateToDate(time.UnixMilli(millis).UTC()), nil
	case source.DateMonthDayYear:
		t, err := time.Parse("1/2/06", strings.TrimSpace(raw.Value))
		if err != nil {
			return time.Time{}, &NormalizationError{Field: "recorded_date", Value: raw.Value, Err: err}
		}
		return t, nil
	case source.DateCompact:
		t, err := time.Parse("20060102", strings.TrimSpace(raw.Value))
		if err != nil {
			return time.Time{}, &NormalizationError{Field: "recorded_date", Value: raw.Value, Err: err}
		}
		return t, nil
	default:
		return time.Time{}, &NormalizationError{Field: "recorded_date", Value: raw.Value, Err: fmt.Errorf("unknown date encoding %d", raw.Kind)}
	}
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
