package database

import (
	"database/sql"
	"fmt"
	"time"

	"covid-data-portal/internal/models"

	_ "github.com/lib/pq"
)

// PostgresStore is the alternate document store, on plain database/sql.
// It implements the same contract as GormStore.
type PostgresStore struct {
	conn *sql.DB
}

// NewPostgresStore opens a PostgreSQL connection and verifies it.
func NewPostgresStore(host, port, user, password, dbname string) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

// InitSchema creates the collections if they don't exist.
func (s *PostgresStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS cases (
		case_number BIGINT PRIMARY KEY,
		county VARCHAR(100),
		age INTEGER,
		sex VARCHAR(20),
		travel_status VARCHAR(100),
		travel_detail TEXT,
		contact_with_confirmed_case VARCHAR(20),
		recorded_date DATE NOT NULL,
		deceased VARCHAR(20),
		hospitalized VARCHAR(20),
		ed_visit VARCHAR(20),
		latitude DECIMAL(9,6),
		longitude DECIMAL(9,6)
	);
	CREATE INDEX IF NOT EXISTS idx_cases_county ON cases(county);
	CREATE INDEX IF NOT EXISTS idx_cases_travel_status ON cases(travel_status);
	CREATE INDEX IF NOT EXISTS idx_cases_recorded_date ON cases(recorded_date);

	CREATE TABLE IF NOT EXISTS daily_stats (
		id SERIAL PRIMARY KEY,
		date DATE NOT NULL UNIQUE,
		tests INTEGER NOT NULL DEFAULT 0,
		new_tests INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		new_deaths INTEGER NOT NULL DEFAULT 0,
		deaths_growth DOUBLE PRECISION NOT NULL DEFAULT 0,
		hospitalized INTEGER NOT NULL DEFAULT 0,
		new_hospitalized INTEGER NOT NULL DEFAULT 0,
		hospitalized_growth DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS growth_points (
		id SERIAL PRIMARY KEY,
		date DATE NOT NULL,
		count DOUBLE PRECISION NOT NULL,
		series VARCHAR(10) NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_growth_points_series ON growth_points(series);

	CREATE TABLE IF NOT EXISTS growth_rates (
		id SERIAL PRIMARY KEY,
		date DATE NOT NULL UNIQUE,
		rate DOUBLE PRECISION NOT NULL
	);

	CREATE TABLE IF NOT EXISTS county_rankings (
		id SERIAL PRIMARY KEY,
		county VARCHAR(100) NOT NULL,
		date DATE NOT NULL,
		count INTEGER NOT NULL,
		normalized_count DOUBLE PRECISION NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ingest_state (
		id INTEGER PRIMARY KEY,
		last_attempt TIMESTAMP NOT NULL,
		last_success TIMESTAMP,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		last_stage VARCHAR(20) NOT NULL DEFAULT '',
		last_reason TEXT NOT NULL DEFAULT '',
		last_new_cases INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`
	_, err := s.conn.Exec(query)
	return err
}

func (s *PostgresStore) CaseCount() (int, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM cases`).Scan(&count)
	return count, err
}

const caseColumns = `case_number, county, age, sex, travel_status, travel_detail,
	contact_with_confirmed_case, recorded_date, deceased, hospitalized, ed_visit,
	latitude, longitude`

func (s *PostgresStore) AllCases() ([]models.CaseRecord, error) {
	rows, err := s.conn.Query(`SELECT ` + caseColumns + ` FROM cases ORDER BY case_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (s *PostgresStore) CasesBefore(cutoff time.Time) ([]models.CaseRecord, error) {
	rows, err := s.conn.Query(
		`SELECT `+caseColumns+` FROM cases WHERE recorded_date < $1 ORDER BY case_number ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func scanCases(rows *sql.Rows) ([]models.CaseRecord, error) {
	var cases []models.CaseRecord
	for rows.Next() {
		var c models.CaseRecord
		err := rows.Scan(
			&c.CaseNumber, &c.County, &c.Age, &c.Sex, &c.TravelStatus, &c.TravelDetail,
			&c.ContactWithConfirmedCase, &c.RecordedDate, &c.Deceased, &c.Hospitalized,
			&c.EDVisit, &c.Latitude, &c.Longitude,
		)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (s *PostgresStore) InsertCases(records []models.CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range records {
		_, err := stmt.Exec(
			c.CaseNumber, c.County, c.Age, c.Sex, c.TravelStatus, c.TravelDetail,
			c.ContactWithConfirmedCase, c.RecordedDate, c.Deceased, c.Hospitalized,
			c.EDVisit, c.Latitude, c.Longitude,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ReplaceCases(records []models.CaseRecord) error {
	if _, err := s.conn.Exec(`DELETE FROM cases`); err != nil {
		return err
	}
	return s.InsertCases(records)
}

func (s *PostgresStore) UpdateTravelStatus(caseNumber int64, status string) error {
	_, err := s.conn.Exec(`UPDATE cases SET travel_status = $1 WHERE case_number = $2`, status, caseNumber)
	return err
}

func (s *PostgresStore) ReplaceDailyStats(stats []models.DailyStat) error {
	if _, err := s.conn.Exec(`DELETE FROM daily_stats`); err != nil {
		return err
	}
	for _, stat := range stats {
		_, err := s.conn.Exec(`
			INSERT INTO daily_stats (date, tests, new_tests, deaths, new_deaths,
				deaths_growth, hospitalized, new_hospitalized, hospitalized_growth)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			stat.Date, stat.Tests, stat.NewTests, stat.Deaths, stat.NewDeaths,
			stat.DeathsGrowth, stat.Hospitalized, stat.NewHospitalized, stat.HospitalizedGrowth)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ReplaceGrowthSeries(series models.GrowthSeries, points []models.GrowthPoint) error {
	if _, err := s.conn.Exec(`DELETE FROM growth_points WHERE series = $1`, series); err != nil {
		return err
	}
	for _, point := range points {
		_, err := s.conn.Exec(
			`INSERT INTO growth_points (date, count, series) VALUES ($1, $2, $3)`,
			point.Date, point.Count, point.Series)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ReplaceGrowthRates(rates []models.GrowthRate) error {
	if _, err := s.conn.Exec(`DELETE FROM growth_rates`); err != nil {
		return err
	}
	for _, rate := range rates {
		_, err := s.conn.Exec(
			`INSERT INTO growth_rates (date, rate) VALUES ($1, $2)`, rate.Date, rate.Rate)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ReplaceCountyRankings(rankings []models.CountyRanking) error {
	if _, err := s.conn.Exec(`DELETE FROM county_rankings`); err != nil {
		return err
	}
	for _, ranking := range rankings {
		_, err := s.conn.Exec(`
			INSERT INTO county_rankings (county, date, count, normalized_count)
			VALUES ($1, $2, $3, $4)`,
			ranking.County, ranking.Date, ranking.Count, ranking.NormalizedCount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) IngestState() (*models.IngestState, error) {
	var state models.IngestState
	// Rows bootstrapped before the column defaults existed carry NULLs.
	var lastStage, lastReason sql.NullString
	err := s.conn.QueryRow(`
		SELECT id, last_attempt, last_success, success_count, failure_count,
			   last_stage, last_reason, last_new_cases, created_at, updated_at
		FROM ingest_state WHERE id = 1`).Scan(
		&state.ID, &state.LastAttempt, &state.LastSuccess, &state.SuccessCount,
		&state.FailureCount, &lastStage, &lastReason, &state.LastNewCases,
		&state.CreatedAt, &state.UpdatedAt,
	)
	state.LastStage = lastStage.String
	state.LastReason = lastReason.String
	if err == sql.ErrNoRows {
		state = models.IngestState{ID: 1, LastAttempt: time.Now()}
		// Explicit empty strings: a pre-existing table may lack the column
		// defaults, and a NULL here breaks every later scan of this row.
		_, err := s.conn.Exec(
			`INSERT INTO ingest_state (id, last_attempt, last_stage, last_reason) VALUES (1, $1, '', '')`,
			state.LastAttempt)
		if err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *PostgresStore) SaveIngestState(state *models.IngestState) error {
	_, err := s.conn.Exec(`
		UPDATE ingest_state
		SET last_attempt = $1, last_success = $2, success_count = $3, failure_count = $4,
			last_stage = $5, last_reason = $6, last_new_cases = $7, updated_at = NOW()
		WHERE id = $8`,
		state.LastAttempt, state.LastSuccess, state.SuccessCount, state.FailureCount,
		state.LastStage, state.LastReason, state.LastNewCases, state.ID)
	return err
}
