package cropgeom_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trevall/carfolio/internal/pkg/cropgeom"
)

func TestInitializeVerticalPresetOnLandscapeSource(t *testing.T) {
	// 4000x3000 source with a 1080x1920 (9:16) preset: target aspect 0.5625
	// is narrower than the source's 1.333, so height pins to 3000.
	crop := cropgeom.Initialize(cropgeom.Dimensions{Width: 4000, Height: 3000}, 1080, 1920)

	assert.Equal(t, cropgeom.CropArea{X: 1156, Y: 0, Width: 1687, Height: 3000}, crop)
	assert.True(t, cropgeom.Validate(crop, cropgeom.Dimensions{Width: 4000, Height: 3000}))
}

func TestInitializeWidePresetPinsWidth(t *testing.T) {
	source := cropgeom.Dimensions{Width: 1000, Height: 2000}
	crop := cropgeom.Initialize(source, 16, 9)

	assert.Equal(t, 1000, crop.Width)
	assert.Equal(t, 562, crop.Height) // floor(1000 / (16/9))
	assert.Equal(t, 0, crop.X)
	assert.Equal(t, 719, crop.Y) // floor((2000-562)/2)
	assert.True(t, cropgeom.Validate(crop, source))
}

func TestInitializeMatchesTargetAspectWithinRounding(t *testing.T) {
	cases := []struct {
		source cropgeom.Dimensions
		tw, th int
	}{
		{cropgeom.Dimensions{Width: 4000, Height: 3000}, 1080, 1920},
		{cropgeom.Dimensions{Width: 1920, Height: 1080}, 1, 1},
		{cropgeom.Dimensions{Width: 333, Height: 777}, 4, 5},
		{cropgeom.Dimensions{Width: 5000, Height: 5000}, 21, 9},
	}
	for _, tc := range cases {
		crop := cropgeom.Initialize(tc.source, tc.tw, tc.th)
		assert.True(t, cropgeom.Validate(crop, tc.source), "crop %+v must stay inside %+v", crop, tc.source)

		want := float64(tc.tw) / float64(tc.th)
		got := float64(crop.Width) / float64(crop.Height)
		// Integer flooring can shift the ratio by at most one pixel on the
		// derived axis.
		tolerance := math.Max(1.0/float64(crop.Height), 1.0/float64(crop.Width))
		assert.InDelta(t, want, got, tolerance+1e-9, "aspect drifted for %+v", tc)
	}
}

func TestValidateContainment(t *testing.T) {
	source := cropgeom.Dimensions{Width: 100, Height: 100}

	assert.True(t, cropgeom.Validate(cropgeom.CropArea{X: 0, Y: 0, Width: 100, Height: 100}, source))
	assert.True(t, cropgeom.Validate(cropgeom.CropArea{X: 10, Y: 10, Width: 80, Height: 80}, source))

	rejected := []cropgeom.CropArea{
		{X: -1, Y: 0, Width: 10, Height: 10},
		{X: 0, Y: -1, Width: 10, Height: 10},
		{X: 0, Y: 0, Width: 0, Height: 10},
		{X: 0, Y: 0, Width: 10, Height: 0},
		{X: 95, Y: 0, Width: 10, Height: 10},
		{X: 0, Y: 95, Width: 10, Height: 10},
	}
	for _, crop := range rejected {
		assert.False(t, cropgeom.Validate(crop, source), "expected rejection of %+v", crop)
	}
}

func TestInitializeDegenerateInputs(t *testing.T) {
	assert.Equal(t, cropgeom.CropArea{}, cropgeom.Initialize(cropgeom.Dimensions{}, 16, 9))
	assert.Equal(t, cropgeom.CropArea{}, cropgeom.Initialize(cropgeom.Dimensions{Width: 100, Height: 100}, 0, 9))
}
