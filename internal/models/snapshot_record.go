package models

import "time"

// SnapshotRecord is one archived snapshot row. The archive records only
// upstream-derived snapshots; local optimistic edits are never persisted.
type SnapshotRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	FetchedAt     time.Time `gorm:"index"`
	LastUpdate    string    `gorm:"size:64"`
	AgentCount    int
	TaskCount     int
	ActivityCount int
	Payload       string `gorm:"type:json"`
}
