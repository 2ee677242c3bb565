package repository

import (
	"github.com/trevall/carfolio/app/models"
	"gorm.io/gorm"
)

// ImageRepository defines the interface for image-related database operations
type ImageRepository interface {
	Create(image *models.Image) error
	GetByID(id uint) (*models.Image, error)
	GetByUUID(uuid string) (*models.Image, error)
	Update(image *models.Image) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Image, error)
	Count() (int64, error)
}

// GalleryRepository defines the interface for gallery-related database
// operations. ReplaceImage and PersistOrder are the two writes the transform
// pipeline depends on; both are transactional.
type GalleryRepository interface {
	Create(gallery *models.Gallery) error
	GetByID(id uint) (*models.Gallery, error)
	GetByUUID(uuid string) (*models.Gallery, error)
	Update(gallery *models.Gallery) error
	Delete(id uint) error

	// AddImage appends an image at the end of the gallery's sequence.
	AddImage(galleryID, imageID uint) error

	// GetImagesOrdered returns the gallery's images following the persisted
	// sort order; rows without explicit order fall back to insertion order.
	GetImagesOrdered(galleryID uint) ([]models.Image, error)

	// ReplaceImage atomically swaps the gallery's reference from oldImageID
	// to newImageID: the old reference is removed and the new one added in
	// the same persisted write, inheriting the old row's sort position.
	ReplaceImage(galleryID, oldImageID, newImageID uint) error

	// PersistOrder writes a full ordering. The entries must be a dense
	// 0-based permutation of the gallery's current image set, otherwise the
	// write is rejected before touching any row.
	PersistOrder(galleryID uint, entries []OrderEntry) error
}

// OrderEntry pairs an image with its target position.
type OrderEntry struct {
	ImageID uint `json:"image_id"`
	Order   int  `json:"order"`
}

// Repositories bundles all repository instances
type Repositories struct {
	Image   ImageRepository
	Gallery GalleryRepository
}

// NewRepositories creates all repositories backed by the given database
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Image:   NewImageRepository(db),
		Gallery: NewGalleryRepository(db),
	}
}
