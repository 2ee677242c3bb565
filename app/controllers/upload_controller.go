package controllers

import (
	"bytes"
	"errors"
	"image"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/imagemeta"
	"github.com/trevall/carfolio/internal/pkg/jobqueue"
	"github.com/trevall/carfolio/internal/pkg/upload"
)

// HandleUploadImage ingests a new source image into a gallery: dimensions
// and EXIF capture date are extracted, the file goes to the asset store and
// the record is appended at the end of the gallery's sequence.
func HandleUploadImage(c *fiber.Ctx) error {
	galleryID, err := c.ParamsInt("id")
	if err != nil || galleryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid gallery id"})
	}

	galleryRepo := repository.GetGlobalFactory().GetGalleryRepository()
	if _, err := galleryRepo.GetByID(uint(galleryID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "gallery not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load gallery"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "file missing"})
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "could not read upload"})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "could not read upload"})
	}

	if _, err := upload.ValidateImageBySniff(fileHeader.Filename, head(data)); err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "unsupported_media_type", "message": err.Error()})
	}

	img := &models.Image{
		UUID:     uuid.New().String(),
		Title:    fileHeader.Filename,
		FileName: fileHeader.Filename,
		FileSize: int64(len(data)),
		FileType: ext,
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	// EXIF is best-effort; a stripped file simply has no capture date.
	if err := imagemeta.Extract(img, bytes.NewReader(data)); err != nil {
		log.Debugf("[Upload] no EXIF for %s: %v", fileHeader.Filename, err)
	}

	p := getPipeline()
	if !p.storeReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "asset store not available"})
	}
	url, err := p.store.PutObject(c.Context(), storeKeyFor(img.UUID, ext), data, contentTypeForUpload(ext))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upload_error", "message": "asset upload failed"})
	}
	img.DeliveryURL = url

	imgRepo := repository.GetGlobalFactory().GetImageRepository()
	if err := imgRepo.Create(img); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create image"})
	}
	if err := galleryRepo.AddImage(uint(galleryID), img.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to attach image to gallery"})
	}

	// New image at the tail; drop the cached order view.
	p.ordering.Evict(uint(galleryID))

	// Pre-warm the processing backend so the first preview is instant.
	if err := p.jobs.Enqueue(c.Context(), jobqueue.NewCacheWarmJob(img.UUID, img.DeliveryURL)); err != nil {
		log.Warnf("[Upload] could not enqueue cache warm for %s: %v", img.UUID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":          img.ID,
		"uuid":        img.UUID,
		"file_name":   img.FileName,
		"width":       img.Width,
		"height":      img.Height,
		"url":         img.DeliveryURL,
		"captured_at": img.CapturedAt,
	})
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}

func storeKeyFor(imageUUID, ext string) string {
	now := time.Now()
	return "sources/" + now.Format("2006/01") + "/" + imageUUID + ext
}

func contentTypeForUpload(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
