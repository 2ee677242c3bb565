package cropgeom

// Dimensions describes the pixel size of a decoded source image. It is probed
// at runtime and never persisted by this subsystem.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropArea is a rectangular crop region in source-pixel coordinates.
type CropArea struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Initialize computes the largest rectangle matching the target aspect ratio
// that fits entirely within the source, centered. It is called on first load
// of the source dimensions or on an explicit aspect-preset selection; manual
// crop edits are never overwritten by re-initialization.
func Initialize(source Dimensions, targetWidth, targetHeight int) CropArea {
	if source.Width <= 0 || source.Height <= 0 || targetWidth <= 0 || targetHeight <= 0 {
		return CropArea{}
	}

	targetAspect := float64(targetWidth) / float64(targetHeight)
	sourceAspect := float64(source.Width) / float64(source.Height)

	var cropWidth, cropHeight int
	if targetAspect > sourceAspect {
		// Wider than the source: pin width, derive height.
		cropWidth = source.Width
		cropHeight = int(float64(cropWidth) / targetAspect)
	} else {
		// Taller than (or equal to) the source: pin height, derive width.
		cropHeight = source.Height
		cropWidth = int(float64(cropHeight) * targetAspect)
	}

	if cropWidth > source.Width {
		cropWidth = source.Width
	}
	if cropHeight > source.Height {
		cropHeight = source.Height
	}

	return CropArea{
		X:      (source.Width - cropWidth) / 2,
		Y:      (source.Height - cropHeight) / 2,
		Width:  cropWidth,
		Height: cropHeight,
	}
}

// Validate is a pure boundary check: the crop must lie entirely within the
// source bounds. A failing crop is rejected before any remote invocation,
// never clamped silently.
func Validate(crop CropArea, source Dimensions) bool {
	if crop.Width <= 0 || crop.Height <= 0 {
		return false
	}
	if crop.X < 0 || crop.Y < 0 {
		return false
	}
	if crop.X+crop.Width > source.Width {
		return false
	}
	if crop.Y+crop.Height > source.Height {
		return false
	}
	return true
}
