package repository

import (
	"fmt"

	"github.com/trevall/carfolio/app/models"
	"gorm.io/gorm"
)

// galleryRepository implements the GalleryRepository interface
type galleryRepository struct {
	db *gorm.DB
}

// NewGalleryRepository creates a new gallery repository instance
func NewGalleryRepository(db *gorm.DB) GalleryRepository {
	return &galleryRepository{db: db}
}

// Create creates a new gallery in the database
func (r *galleryRepository) Create(gallery *models.Gallery) error {
	return r.db.Create(gallery).Error
}

// GetByID retrieves a gallery by its ID
func (r *galleryRepository) GetByID(id uint) (*models.Gallery, error) {
	var gallery models.Gallery
	if err := r.db.First(&gallery, id).Error; err != nil {
		return nil, err
	}
	return &gallery, nil
}

// GetByUUID retrieves a gallery by its public UUID
func (r *galleryRepository) GetByUUID(uuid string) (*models.Gallery, error) {
	var gallery models.Gallery
	if err := r.db.Where("uuid = ?", uuid).First(&gallery).Error; err != nil {
		return nil, err
	}
	return &gallery, nil
}

// Update updates an existing gallery in the database
func (r *galleryRepository) Update(gallery *models.Gallery) error {
	return r.db.Save(gallery).Error
}

// Delete soft deletes a gallery and removes its image associations
func (r *galleryRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM gallery_images WHERE gallery_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Gallery{}, id).Error
	})
}

// AddImage appends the image behind the gallery's current last position.
func (r *galleryRepository) AddImage(galleryID, imageID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var next int64
		if err := tx.Model(&models.GalleryImage{}).
			Where("gallery_id = ?", galleryID).
			Count(&next).Error; err != nil {
			return err
		}
		return tx.Create(&models.GalleryImage{
			GalleryID: galleryID,
			ImageID:   imageID,
			SortOrder: int(next),
		}).Error
	})
}

// GetImagesOrdered retrieves all images in a gallery following the persisted
// sort order; ties (legacy rows without explicit order) fall back to the
// join row's creation time.
func (r *galleryRepository) GetImagesOrdered(galleryID uint) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Table("images").
		Joins("JOIN gallery_images ON images.id = gallery_images.image_id").
		Where("gallery_images.gallery_id = ?", galleryID).
		Order("gallery_images.sort_order ASC, gallery_images.created_at ASC").
		Find(&images).Error
	return images, err
}

// ReplaceImage swaps the gallery's reference from oldImageID to newImageID in
// a single persisted write. The new reference inherits the old row's sort
// position, so the ordering invariant survives the swap.
func (r *galleryRepository) ReplaceImage(galleryID, oldImageID, newImageID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var row models.GalleryImage
		if err := tx.Where("gallery_id = ? AND image_id = ?", galleryID, oldImageID).
			First(&row).Error; err != nil {
			return fmt.Errorf("image %d not referenced by gallery %d: %w", oldImageID, galleryID, err)
		}

		res := tx.Exec("UPDATE gallery_images SET image_id = ? WHERE gallery_id = ? AND image_id = ?",
			newImageID, galleryID, oldImageID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("expected to swap exactly one reference, swapped %d", res.RowsAffected)
		}
		return nil
	})
}

// PersistOrder writes a complete ordering for the gallery. The entries must
// be a dense 0-based permutation of the gallery's current image set; partial
// or invalid permutations are rejected before any row is touched.
func (r *galleryRepository) PersistOrder(galleryID uint, entries []OrderEntry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current []models.GalleryImage
		if err := tx.Where("gallery_id = ?", galleryID).Find(&current).Error; err != nil {
			return err
		}

		if err := validatePermutation(current, entries); err != nil {
			return err
		}

		for _, entry := range entries {
			if err := tx.Exec("UPDATE gallery_images SET sort_order = ? WHERE gallery_id = ? AND image_id = ?",
				entry.Order, galleryID, entry.ImageID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// validatePermutation checks that entries cover exactly the gallery's image
// set with order values forming a dense 0-based permutation.
func validatePermutation(current []models.GalleryImage, entries []OrderEntry) error {
	if len(entries) != len(current) {
		return fmt.Errorf("order must cover all %d images, got %d entries", len(current), len(entries))
	}

	members := make(map[uint]bool, len(current))
	for _, row := range current {
		members[row.ImageID] = true
	}

	seenImage := make(map[uint]bool, len(entries))
	seenOrder := make(map[int]bool, len(entries))
	for _, entry := range entries {
		if !members[entry.ImageID] {
			return fmt.Errorf("image %d is not part of the gallery", entry.ImageID)
		}
		if seenImage[entry.ImageID] {
			return fmt.Errorf("image %d appears twice in the order", entry.ImageID)
		}
		if entry.Order < 0 || entry.Order >= len(entries) {
			return fmt.Errorf("order value %d out of range", entry.Order)
		}
		if seenOrder[entry.Order] {
			return fmt.Errorf("order value %d appears twice", entry.Order)
		}
		seenImage[entry.ImageID] = true
		seenOrder[entry.Order] = true
	}
	return nil
}
