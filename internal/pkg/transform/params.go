package transform

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/trevall/carfolio/internal/pkg/cropgeom"
)

// WhiteThresholdAuto is the sentinel the remote engine interprets as "derive
// the white threshold from the image itself". It is passed through opaquely;
// the detection algorithm lives entirely on the engine side.
const WhiteThresholdAuto = -1

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// CanvasExtensionParams drives the canvas-extension transform: the studio
// shot is extended vertically to the desired height by resampling its
// white top/bottom strips.
type CanvasExtensionParams struct {
	DesiredHeight  int     `json:"desired_height" validate:"gt=0"`
	PaddingPct     float64 `json:"padding_pct" validate:"gte=0,lte=1"`
	WhiteThreshold int     `json:"white_thresh" validate:"gte=-1,lte=255"`
}

// ImageMatteParams drives the image-matte transform: the source is centered
// on a solid-color canvas of the given size with optional padding.
type ImageMatteParams struct {
	CanvasWidth    int     `json:"canvas_width" validate:"gt=0"`
	CanvasHeight   int     `json:"canvas_height" validate:"gt=0"`
	PaddingPercent float64 `json:"padding_percent" validate:"gte=0,lt=50"`
	MatteColor     string  `json:"matte_color"`
}

// CropParams drives the crop transform: a validated crop area scaled to the
// requested output size.
type CropParams struct {
	Crop         cropgeom.CropArea   `json:"crop"`
	SourceDims   cropgeom.Dimensions `json:"source_dims"`
	OutputWidth  int                 `json:"output_width" validate:"gt=0"`
	OutputHeight int                 `json:"output_height" validate:"gt=0"`
	Scale        float64             `json:"scale" validate:"gt=0"`
}

// Parameters is the structured bag attached to every engine invocation.
// Exactly one of the transform-specific sub-structs must be set, matching
// Type. RequestedWidth/Height always carry the base-resolution target so the
// engine can produce multiplier variants without re-deriving geometry.
type Parameters struct {
	Type            TransformType          `json:"type"`
	RequestedWidth  int                    `json:"requested_width"`
	RequestedHeight int                    `json:"requested_height"`
	ScaleMultiplier int                    `json:"scale_multiplier"`
	CanvasExtension *CanvasExtensionParams `json:"canvas_extension,omitempty"`
	ImageMatte      *ImageMatteParams      `json:"image_matte,omitempty"`
	Crop            *CropParams            `json:"crop,omitempty"`
}

var validate = validator.New()

// Validate checks the parameter bag against the ranges the remote engine
// accepts. It runs before any network call; a failure is terminal and must be
// surfaced to the user verbatim, never corrected silently.
func (p *Parameters) Validate() error {
	if !p.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown transform type %q", p.Type)}
	}

	switch p.Type {
	case TypeCanvasExtension:
		if p.CanvasExtension == nil {
			return &ValidationError{Field: "canvas_extension", Reason: "parameters missing"}
		}
		if err := validate.Struct(p.CanvasExtension); err != nil {
			return wrapFieldError(err)
		}
	case TypeImageMatte:
		if p.ImageMatte == nil {
			return &ValidationError{Field: "image_matte", Reason: "parameters missing"}
		}
		if err := validate.Struct(p.ImageMatte); err != nil {
			return wrapFieldError(err)
		}
		if !hexColorPattern.MatchString(p.ImageMatte.MatteColor) {
			return &ValidationError{Field: "matte_color", Reason: "must be a 6-hex-digit RGB value"}
		}
	case TypeCrop:
		if p.Crop == nil {
			return &ValidationError{Field: "crop", Reason: "parameters missing"}
		}
		if err := validate.Struct(p.Crop); err != nil {
			return wrapFieldError(err)
		}
		if !cropgeom.Validate(p.Crop.Crop, p.Crop.SourceDims) {
			return &ValidationError{Field: "crop", Reason: fmt.Sprintf(
				"crop %dx%d at (%d,%d) exceeds source bounds %dx%d",
				p.Crop.Crop.Width, p.Crop.Crop.Height, p.Crop.Crop.X, p.Crop.Crop.Y,
				p.Crop.SourceDims.Width, p.Crop.SourceDims.Height)}
		}
	}

	return nil
}

// ToEngineMap flattens the bag into the wire format the processing engine
// expects, applying the resolution multiplier to the target dimensions while
// reporting the originally requested ones for proportional bookkeeping.
func (p *Parameters) ToEngineMap(multiplier int) map[string]interface{} {
	if multiplier < 1 {
		multiplier = 1
	}

	m := map[string]interface{}{
		"type":             string(p.Type),
		"requested_width":  p.RequestedWidth,
		"requested_height": p.RequestedHeight,
		"scale_multiplier": multiplier,
	}

	switch p.Type {
	case TypeCanvasExtension:
		m["desired_height"] = p.CanvasExtension.DesiredHeight * multiplier
		m["padding_pct"] = p.CanvasExtension.PaddingPct
		m["white_thresh"] = p.CanvasExtension.WhiteThreshold
		if p.RequestedHeight == 0 {
			m["requested_height"] = p.CanvasExtension.DesiredHeight
		}
	case TypeImageMatte:
		m["canvas_width"] = p.ImageMatte.CanvasWidth * multiplier
		m["canvas_height"] = p.ImageMatte.CanvasHeight * multiplier
		m["padding_percent"] = p.ImageMatte.PaddingPercent
		m["matte_color"] = p.ImageMatte.MatteColor
		if p.RequestedWidth == 0 {
			m["requested_width"] = p.ImageMatte.CanvasWidth
		}
		if p.RequestedHeight == 0 {
			m["requested_height"] = p.ImageMatte.CanvasHeight
		}
	case TypeCrop:
		// Crop geometry stays in source pixels; only the output size scales.
		m["crop_x"] = p.Crop.Crop.X
		m["crop_y"] = p.Crop.Crop.Y
		m["crop_width"] = p.Crop.Crop.Width
		m["crop_height"] = p.Crop.Crop.Height
		m["output_width"] = p.Crop.OutputWidth * multiplier
		m["output_height"] = p.Crop.OutputHeight * multiplier
		m["scale"] = p.Crop.Scale
		if p.RequestedWidth == 0 {
			m["requested_width"] = p.Crop.OutputWidth
		}
		if p.RequestedHeight == 0 {
			m["requested_height"] = p.Crop.OutputHeight
		}
	}

	return m
}

// wrapFieldError converts a validator error into our ValidationError type,
// keeping the first offending field.
func wrapFieldError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return &ValidationError{
			Field:  errs[0].Field(),
			Reason: fmt.Sprintf("failed %q constraint", errs[0].Tag()),
		}
	}
	return &ValidationError{Field: "parameters", Reason: err.Error()}
}
