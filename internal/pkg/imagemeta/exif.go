package imagemeta

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	"github.com/trevall/carfolio/app/models"
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// exifTimeLayout is the timestamp format EXIF uses for DateTimeOriginal.
const exifTimeLayout = "2006:01:02 15:04:05"

// Extract reads EXIF metadata from the image bytes and fills the model's
// Metadata document and CapturedAt. Missing EXIF data is not an error; many
// press-kit images are stripped.
func Extract(image *models.Image, r io.Reader) error {
	x, err := exif.Decode(r)
	if err != nil {
		log.Infof("[ImageMeta] no EXIF data for image %s: %v", image.UUID, err)
		return nil
	}

	allMetadata := make(map[string]interface{})

	// Walk the tags the ordering and detail views care about.
	for _, tag := range []exif.FieldName{
		exif.Model, exif.Make, exif.Software, exif.Artist, exif.Copyright,
		exif.ExposureTime, exif.FNumber, exif.ISOSpeedRatings,
		exif.FocalLength, exif.DateTime, exif.DateTimeOriginal,
		exif.DateTimeDigitized, exif.WhiteBalance,
	} {
		if tagVal, err := x.Get(tag); err == nil {
			raw := tagVal.String()
			allMetadata[string(tag)] = strings.Trim(raw, `"`)
		}
	}

	if captured, ok := captureTime(allMetadata); ok {
		image.CapturedAt = &captured
	}

	if len(allMetadata) > 0 {
		data, err := json.Marshal(allMetadata)
		if err != nil {
			return fmt.Errorf("error encoding metadata: %w", err)
		}
		image.Metadata = models.JSON(data)
	}

	return nil
}

// captureTime picks the best capture timestamp from the extracted tags,
// preferring DateTimeOriginal over DateTimeDigitized over DateTime.
func captureTime(metadata map[string]interface{}) (time.Time, bool) {
	for _, tag := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		raw, ok := metadata[string(tag)].(string)
		if !ok || raw == "" {
			continue
		}
		if t, err := time.Parse(exifTimeLayout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
