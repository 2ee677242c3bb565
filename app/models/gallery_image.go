package models

import "time"

// GalleryImage links an image into a gallery at a position. SortOrder values
// form a dense 0-based permutation of the gallery's image set after every
// successful reorder.
type GalleryImage struct {
	GalleryID uint      `gorm:"primaryKey;autoIncrement:false" json:"gallery_id"`
	ImageID   uint      `gorm:"primaryKey;autoIncrement:false" json:"image_id"`
	SortOrder int       `gorm:"not null;default:0;index" json:"sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
