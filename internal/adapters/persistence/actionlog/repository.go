package actionlog

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ActionRecord is one routine dispatch or failure, kept for post-mortem
// queries across daemon restarts.
type ActionRecord struct {
	ID        uint      `gorm:"primaryKey"`
	CharName  string    `gorm:"index;not null"`
	Routine   string    `gorm:"index;not null"`
	Outcome   string    `gorm:"not null"` // run or error
	Detail    string
	CreatedAt time.Time `gorm:"index"`
}

// Repository persists action records to a local sqlite file
type Repository struct {
	db *gorm.DB
}

// NewRepository opens (and migrates) the action log database
func NewRepository(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open action log: %w", err)
	}
	if err := db.AutoMigrate(&ActionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate action log: %w", err)
	}
	return &Repository{db: db}, nil
}

// RecordRoutineRun implements the scheduler's RunRecorder
func (r *Repository) RecordRoutineRun(charName, routine string) {
	r.db.Create(&ActionRecord{CharName: charName, Routine: routine, Outcome: "run"})
}

// RecordRoutineError implements the scheduler's RunRecorder
func (r *Repository) RecordRoutineError(charName, routine string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	r.db.Create(&ActionRecord{CharName: charName, Routine: routine, Outcome: "error", Detail: detail})
}

// RecentForChar returns the latest records for one character, newest first
func (r *Repository) RecentForChar(charName string, limit int) ([]ActionRecord, error) {
	var records []ActionRecord
	err := r.db.Where("char_name = ?", charName).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ErrorCountSince counts failures recorded after the cutoff
func (r *Repository) ErrorCountSince(cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&ActionRecord{}).
		Where("outcome = ? AND created_at > ?", "error", cutoff).
		Count(&count).Error
	return count, err
}

// Close releases the underlying database handle
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
