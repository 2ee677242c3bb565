package repository

import (
	"github.com/trevall/carfolio/app/models"
	"gorm.io/gorm"
)

// imageRepository implements the ImageRepository interface
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository instance
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create creates a new image in the database
func (r *imageRepository) Create(image *models.Image) error {
	return r.db.Create(image).Error
}

// GetByID retrieves an image by its ID
func (r *imageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// GetByUUID retrieves an image by its public UUID
func (r *imageRepository) GetByUUID(uuid string) (*models.Image, error) {
	var image models.Image
	if err := r.db.Where("uuid = ?", uuid).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Update updates an existing image in the database
func (r *imageRepository) Update(image *models.Image) error {
	return r.db.Save(image).Error
}

// Delete soft deletes an image by its ID
func (r *imageRepository) Delete(id uint) error {
	return r.db.Delete(&models.Image{}, id).Error
}

// List returns a page of images ordered by creation time
func (r *imageRepository) List(offset, limit int) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&images).Error
	return images, err
}

// Count returns the total number of images
func (r *imageRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Count(&count).Error
	return count, err
}
