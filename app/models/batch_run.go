package models

import (
	"time"

	"gorm.io/gorm"
)

// BatchRun records one batch processing pass over a gallery selection so a
// run's outcome survives beyond the Redis status keys.
type BatchRun struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RunID     string `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"run_id"`
	GalleryID uint   `gorm:"index;not null" json:"gallery_id"`
	// Transform holds the transform type the run applied
	Transform string `gorm:"type:varchar(50);not null" json:"transform"`
	ItemCount int    `gorm:"not null" json:"item_count"`
	Completed int    `gorm:"not null" json:"completed"`
	Errored   int    `gorm:"not null" json:"errored"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FindBatchRunByRunID looks up a run record by its public run identifier.
func FindBatchRunByRunID(db *gorm.DB, runID string) (*BatchRun, error) {
	var run BatchRun
	if err := db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
