package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/*
LEARNING: SNAPSHOT PERSISTENCE

The coordinator persists one serialized blob per dashboard and reads it back
on cold start. The store is a write-through key/value surface, not a query
engine: no indexing, no partial reads. Rewriting the full blob on every
mutation is acceptable at room sizes; an append-only change log with
compaction is the upgrade path if that ever stops being true.
*/

// ErrSnapshotNotFound reports an absent key. Callers treat absence as "room
// has never been initialized", which is a normal cold-start outcome.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore is the durable store adapter contract: exactly one blob per
// dashboard key.
type SnapshotStore interface {
	Get(ctx context.Context, dashboardID string) ([]byte, error)
	Put(ctx context.Context, dashboardID string, data []byte) error
}

// RoomSnapshot is the persistence row backing the Postgres store.
type RoomSnapshot struct {
	DashboardID string    `gorm:"type:text;primaryKey"`
	Data        []byte    `gorm:"type:bytea;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SnapshotRepositoryImpl stores room snapshots in Postgres through GORM.
type SnapshotRepositoryImpl struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a Postgres-backed snapshot store.
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepositoryImpl {
	return &SnapshotRepositoryImpl{db: db}
}

// Get reads the blob for a dashboard. Returns ErrSnapshotNotFound when the
// room has never been persisted.
func (r *SnapshotRepositoryImpl) Get(ctx context.Context, dashboardID string) ([]byte, error) {
	var row RoomSnapshot
	err := r.db.WithContext(ctx).
		Where("dashboard_id = ?", dashboardID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", dashboardID, err)
	}
	return row.Data, nil
}

// Put upserts the blob for a dashboard.
func (r *SnapshotRepositoryImpl) Put(ctx context.Context, dashboardID string, data []byte) error {
	row := RoomSnapshot{DashboardID: dashboardID, Data: data}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dashboard_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to persist snapshot for %s: %w", dashboardID, err)
	}
	return nil
}
