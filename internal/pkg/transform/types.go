package transform

import (
	"time"

	"github.com/trevall/carfolio/internal/pkg/cropgeom"
)

// TransformType identifies one of the supported pixel transforms. All three
// share a single invocation contract; only the parameter bag differs.
type TransformType string

const (
	TypeCanvasExtension TransformType = "canvas-extension"
	TypeImageMatte      TransformType = "image-matte"
	TypeCrop            TransformType = "crop"
)

// IsValid reports whether t names a known transform.
func (t TransformType) IsValid() bool {
	switch t {
	case TypeCanvasExtension, TypeImageMatte, TypeCrop:
		return true
	}
	return false
}

// ImageRef is a reference to a gallery-owned image. Identity is ID; URL is a
// delivery-network locator that may carry a variant suffix. The transform
// pipeline never owns an ImageRef exclusively and never mutates one.
type ImageRef struct {
	ID       uint              `json:"id"`
	UUID     string            `json:"uuid"`
	URL      string            `json:"url"`
	FileName string            `json:"file_name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProcessedImage is the ephemeral result of a preview or commit round trip.
// It lives only until the user confirms or discards it.
type ProcessedImage struct {
	SourceImageID uint                `json:"source_image_id"`
	ResultURL     string              `json:"result_url,omitempty"`
	ResultBytes   []byte              `json:"-"`
	Dimensions    cropgeom.Dimensions `json:"dimensions"`
	UploadedID    string              `json:"uploaded_id,omitempty"`
	Elapsed       time.Duration       `json:"elapsed_ms"`
}
