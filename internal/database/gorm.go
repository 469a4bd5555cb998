package database

import (
	"fmt"
	"time"

	"covid-data-portal/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore is the primary document store, backed by MySQL through GORM.
// Collection replacement is delete-then-bulk-insert and is not atomic: a
// concurrent reader can observe an empty collection mid-replace. Runs are
// serialized externally, so no lock is taken here.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a MySQL connection and verifies it.
func NewGormStore(host, port, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an existing gorm.DB instance.
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates the collections using GORM AutoMigrate.
func (s *GormStore) InitSchema() error {
	return s.db.AutoMigrate(
		&models.CaseRecord{},
		&models.DailyStat{},
		&models.GrowthPoint{},
		&models.GrowthRate{},
		&models.CountyRanking{},
		&models.IngestState{},
	)
}

func (s *GormStore) CaseCount() (int, error) {
	var count int64
	if err := s.db.Model(&models.CaseRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *GormStore) AllCases() ([]models.CaseRecord, error) {
	var cases []models.CaseRecord
	err := s.db.Order("case_number ASC").Find(&cases).Error
	return cases, err
}

func (s *GormStore) CasesBefore(cutoff time.Time) ([]models.CaseRecord, error) {
	var cases []models.CaseRecord
	err := s.db.Where("recorded_date < ?", cutoff).Order("case_number ASC").Find(&cases).Error
	return cases, err
}

func (s *GormStore) InsertCases(records []models.CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.CreateInBatches(records, 500).Error
}

func (s *GormStore) ReplaceCases(records []models.CaseRecord) error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CaseRecord{}).Error; err != nil {
		return err
	}
	return s.InsertCases(records)
}

func (s *GormStore) UpdateTravelStatus(caseNumber int64, status string) error {
	return s.db.Model(&models.CaseRecord{}).
		Where("case_number = ?", caseNumber).
		Update("travel_status", status).Error
}

func (s *GormStore) ReplaceDailyStats(stats []models.DailyStat) error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.DailyStat{}).Error; err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}
	return s.db.CreateInBatches(stats, 500).Error
}

func (s *GormStore) ReplaceGrowthSeries(series models.GrowthSeries, points []models.GrowthPoint) error {
	if err := s.db.Where("series = ?", series).Delete(&models.GrowthPoint{}).Error; err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	return s.db.CreateInBatches(points, 500).Error
}

func (s *GormStore) ReplaceGrowthRates(rates []models.GrowthRate) error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.GrowthRate{}).Error; err != nil {
		return err
	}
	if len(rates) == 0 {
		return nil
	}
	return s.db.CreateInBatches(rates, 500).Error
}

func (s *GormStore) ReplaceCountyRankings(rankings []models.CountyRanking) error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CountyRanking{}).Error; err != nil {
		return err
	}
	if len(rankings) == 0 {
		return nil
	}
	return s.db.CreateInBatches(rankings, 500).Error
}

// IngestState loads the single state row, creating it on first use.
func (s *GormStore) IngestState() (*models.IngestState, error) {
	var state models.IngestState
	err := s.db.First(&state, 1).Error
	if err == gorm.ErrRecordNotFound {
		state = models.IngestState{ID: 1, LastAttempt: time.Now()}
		if err := s.db.Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *GormStore) SaveIngestState(state *models.IngestState) error {
	return s.db.Save(state).Error
}

// DB returns the underlying gorm.DB instance.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}
