package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sort modes for a gallery's image sequence
const (
	GallerySortModeManual = "manual"
	GallerySortModeSorted = "sorted"
)

// Sort criteria available in sorted mode
const (
	GallerySortByFileName   = "file_name"
	GallerySortByCapturedAt = "captured_at"
	GallerySortByUploadedAt = "uploaded_at"
	GallerySortByMetadata   = "metadata"
)

// Gallery is an ordered collection of images belonging to a project or car.
// The ordering itself lives in the gallery_images join rows (SortOrder);
// SortMode/SortCriterion/SortDirection describe how that order is derived.
type Gallery struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UUID          string `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	Title         string `gorm:"type:varchar(255);not null" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	SortMode      string `gorm:"type:varchar(20);not null;default:manual" json:"sort_mode"`
	SortCriterion string `gorm:"type:varchar(50)" json:"sort_criterion"`
	SortDirection string `gorm:"type:varchar(4)" json:"sort_direction"`
	// MetadataKey names the metadata field used when sorting by metadata
	MetadataKey string `gorm:"type:varchar(100)" json:"metadata_key"`

	Images []Image `gorm:"many2many:gallery_images" json:"images,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID if none is set yet
func (g *Gallery) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == "" {
		g.UUID = uuid.New().String()
	}
	return nil
}
