package assetstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// ProcessedUploader persists a confirmed transform result as a new image
// asset: object upload (unless the engine already delivered it) plus the
// database record that gives it a stable identity. It satisfies the
// replacement coordinator's Uploader interface.
type ProcessedUploader struct {
	client *Client
	images repository.ImageRepository
}

func NewProcessedUploader(client *Client, images repository.ImageRepository) *ProcessedUploader {
	return &ProcessedUploader{client: client, images: images}
}

func (u *ProcessedUploader) Upload(ctx context.Context, source transform.ImageRef, processed *transform.ProcessedImage) (*models.Image, error) {
	newUUID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(source.FileName))
	if ext == "" {
		ext = ".jpg"
	}

	var deliveryURL string
	switch {
	case processed.UploadedID != "":
		// The engine already persisted the result to the delivery network.
		deliveryURL = processed.ResultURL
	case len(processed.ResultBytes) > 0:
		key := u.client.config.GetObjectKey(newUUID, ext, time.Now())
		url, err := u.client.PutObject(ctx, key, processed.ResultBytes, contentTypeFor(ext))
		if err != nil {
			return nil, err
		}
		deliveryURL = url
	case processed.ResultURL != "":
		key := u.client.config.GetObjectKey(newUUID, ext, time.Now())
		url, err := u.client.FetchAndPut(ctx, processed.ResultURL, key, contentTypeFor(ext))
		if err != nil {
			return nil, err
		}
		deliveryURL = url
	default:
		return nil, fmt.Errorf("processed result carries neither bytes nor a URL")
	}

	image := &models.Image{
		UUID:        newUUID,
		Title:       source.FileName,
		FileName:    editedFileName(source.FileName, ext),
		FileType:    ext,
		Width:       processed.Dimensions.Width,
		Height:      processed.Dimensions.Height,
		DeliveryURL: deliveryURL,
	}
	if err := u.images.Create(image); err != nil {
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	return image, nil
}

// editedFileName marks the derived asset while keeping the original stem so
// filename sorting keeps related assets together.
func editedFileName(original, ext string) string {
	stem := strings.TrimSuffix(original, filepath.Ext(original))
	if stem == "" {
		stem = "image"
	}
	return stem + "_edited" + ext
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".avif":
		return "image/avif"
	default:
		return "image/jpeg"
	}
}
