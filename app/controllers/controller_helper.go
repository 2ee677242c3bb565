package controllers

import (
	"strconv"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// imageRefFor projects the persisted record into the ephemeral reference the
// transform pipeline works with.
func imageRefFor(img *models.Image) transform.ImageRef {
	return transform.ImageRef{
		ID:       img.ID,
		UUID:     img.UUID,
		URL:      img.DeliveryURL,
		FileName: img.FileName,
		Metadata: img.MetadataMap(),
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
