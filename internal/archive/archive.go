// Package archive records fetched snapshots for the history API. Only
// upstream-derived snapshots are stored; local optimistic edits never reach
// the archive.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zulandar/crewdeck/internal/config"
	"github.com/zulandar/crewdeck/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists snapshots through GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// DSN builds a MySQL DSN for the archive database.
func DSN(host string, port int, database string) string {
	return fmt.Sprintf("root@tcp(%s:%d)/%s?parseTime=true", host, port, database)
}

// Open connects to the configured archive backend and migrates the schema.
// Returns (nil, nil) when the archive is disabled.
func Open(cfg config.ArchiveConfig) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("archive: open %s: %w", cfg.Path, err)
		}
	case "mysql":
		db, err = gorm.Open(mysql.Open(DSN(cfg.Host, cfg.Port, cfg.Database)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("archive: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q", cfg.Driver)
	}

	return NewStore(db)
}

// NewStore wraps an existing GORM connection and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("archive: db is required")
	}
	if err := db.AutoMigrate(&models.SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save records one snapshot. Error payloads are not archived.
func (s *Store) Save(snap models.Snapshot) error {
	if snap.Error != "" {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal snapshot: %w", err)
	}
	rec := models.SnapshotRecord{
		FetchedAt:     s.now(),
		LastUpdate:    snap.LastUpdate,
		AgentCount:    len(snap.Agents),
		TaskCount:     len(snap.Tasks),
		ActivityCount: len(snap.Activities),
		Payload:       string(payload),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("archive: save: %w", err)
	}
	return nil
}

// Recent returns the n most recently fetched snapshots, newest first.
func (s *Store) Recent(n int) ([]models.SnapshotRecord, error) {
	if n <= 0 {
		n = 20
	}
	var recs []models.SnapshotRecord
	if err := s.db.Order("fetched_at DESC, id DESC").Limit(n).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("archive: recent: %w", err)
	}
	return recs, nil
}

// FirstSince returns the oldest record fetched at or after t, or nil when
// the window is empty. Digests use it as the baseline for delta counts.
func (s *Store) FirstSince(t time.Time) (*models.SnapshotRecord, error) {
	var rec models.SnapshotRecord
	err := s.db.Where("fetched_at >= ?", t).Order("fetched_at ASC, id ASC").First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: first since: %w", err)
	}
	return &rec, nil
}

// Prune deletes all but the keep newest records.
func (s *Store) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var cutoff models.SnapshotRecord
	err := s.db.Order("id DESC").Offset(keep - 1).Limit(1).First(&cutoff).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("archive: prune cutoff: %w", err)
	}
	res := s.db.Where("id < ?", cutoff.ID).Delete(&models.SnapshotRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("archive: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}
