package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trevall/carfolio/internal/pkg/cropgeom"
)

// fakeEngine records every request and replies with a canned response.
type fakeEngine struct {
	requests []ProcessRequest
	resp     *ProcessResponse
	err      error
}

func (f *fakeEngine) Process(_ context.Context, req ProcessRequest) (*ProcessResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &ProcessResponse{ResultURL: "https://media.example.com/cdn-cgi/imagedelivery/AbC123/result-1/public", Width: 1080, Height: 1920}, nil
}

func (f *fakeEngine) CacheSource(context.Context, string) (string, error) {
	return "/tmp/cached", nil
}

func testImage() ImageRef {
	return ImageRef{
		ID:       42,
		UUID:     "9f2c1d3e-0000-0000-0000-000000000042",
		URL:      "https://media.example.com/cdn-cgi/imagedelivery/AbC123/img-42/w=1080,q=85",
		FileName: "gt3rs_front.jpg",
		Metadata: map[string]string{"brand": "porsche"},
	}
}

func canvasParams() Parameters {
	return Parameters{
		Type: TypeCanvasExtension,
		CanvasExtension: &CanvasExtensionParams{
			DesiredHeight:  1200,
			PaddingPct:     0.05,
			WhiteThreshold: 90,
		},
	}
}

func TestPreviewResolvesProcessingURL(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine)

	_, err := inv.Preview(context.Background(), testImage(), canvasParams())
	require.NoError(t, err)
	require.Len(t, engine.requests, 1)

	req := engine.requests[0]
	assert.Equal(t, "https://media.example.com/cdn-cgi/imagedelivery/AbC123/img-42/original", req.ProcessingURL,
		"engine must receive the pristine source rendition")
	assert.False(t, req.Upload, "preview must not persist anything")
}

func TestPreviewHighResScalesTargetNotGeometry(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine)

	_, err := inv.PreviewHighRes(context.Background(), testImage(), canvasParams(), 2)
	require.NoError(t, err)

	p := engine.requests[0].Params
	assert.Equal(t, 2400, p["desired_height"])
	assert.Equal(t, 0.05, p["padding_pct"])
	assert.Equal(t, 90, p["white_thresh"])
	assert.Equal(t, 2, p["scale_multiplier"])
	assert.Equal(t, 1200, p["requested_height"], "original target kept for proportional bookkeeping")
}

func TestPreviewHighResRejectsUnknownMultiplier(t *testing.T) {
	inv := NewInvoker(&fakeEngine{})

	_, err := inv.PreviewHighRes(context.Background(), testImage(), canvasParams(), 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCropParamsScaleOutputOnly(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine)

	params := Parameters{
		Type: TypeCrop,
		Crop: &CropParams{
			Crop:         cropgeom.CropArea{X: 1156, Y: 0, Width: 1687, Height: 3000},
			SourceDims:   cropgeom.Dimensions{Width: 4000, Height: 3000},
			OutputWidth:  1080,
			OutputHeight: 1920,
			Scale:        1.0,
		},
	}

	_, err := inv.PreviewHighRes(context.Background(), testImage(), params, 4)
	require.NoError(t, err)

	p := engine.requests[0].Params
	assert.Equal(t, 1156, p["crop_x"])
	assert.Equal(t, 1687, p["crop_width"])
	assert.Equal(t, 3000, p["crop_height"])
	assert.Equal(t, 4320, p["output_width"])
	assert.Equal(t, 7680, p["output_height"])
	assert.Equal(t, 1080, p["requested_width"])
	assert.Equal(t, 1920, p["requested_height"])
}

func TestValidationFailuresNeverReachTheEngine(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine)

	bad := []Parameters{
		{Type: "sepia"},
		{Type: TypeCanvasExtension},
		{Type: TypeCanvasExtension, CanvasExtension: &CanvasExtensionParams{DesiredHeight: 0}},
		{Type: TypeCanvasExtension, CanvasExtension: &CanvasExtensionParams{DesiredHeight: 100, WhiteThreshold: 300}},
		{Type: TypeImageMatte, ImageMatte: &ImageMatteParams{CanvasWidth: 1920, CanvasHeight: 1080, PaddingPercent: 50, MatteColor: "ffffff"}},
		{Type: TypeImageMatte, ImageMatte: &ImageMatteParams{CanvasWidth: 1920, CanvasHeight: 1080, MatteColor: "#fff"}},
		{Type: TypeCrop, Crop: &CropParams{
			Crop:       cropgeom.CropArea{X: 3900, Y: 0, Width: 200, Height: 200},
			SourceDims: cropgeom.Dimensions{Width: 4000, Height: 3000},
			OutputWidth: 1080, OutputHeight: 1920, Scale: 1,
		}},
	}

	for _, params := range bad {
		_, err := inv.Preview(context.Background(), testImage(), params)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "params %+v", params)
	}
	assert.Empty(t, engine.requests, "validation errors must be raised before any network call")
}

func TestWhiteThresholdAutoSentinelPassesThrough(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine)

	params := canvasParams()
	params.CanvasExtension.WhiteThreshold = WhiteThresholdAuto

	_, err := inv.Preview(context.Background(), testImage(), params)
	require.NoError(t, err)
	assert.Equal(t, -1, engine.requests[0].Params["white_thresh"])
}

func TestPreviewDoesNotMutateTheSource(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine)

	img := testImage()
	want := testImage()

	for i := 0; i < 3; i++ {
		_, err := inv.Preview(context.Background(), img, canvasParams())
		require.NoError(t, err)
	}
	assert.Equal(t, want, img)
}

func TestRemoteFailureIsSurfacedNotRetried(t *testing.T) {
	engine := &fakeEngine{err: &RemoteProcessingError{StatusCode: 500, Message: "gpu node down"}}
	inv := NewInvoker(engine)

	_, err := inv.Preview(context.Background(), testImage(), canvasParams())
	var rerr *RemoteProcessingError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "gpu node down")
	assert.Len(t, engine.requests, 1, "no automatic retry")
}

func TestCommitPathRequestsUpload(t *testing.T) {
	engine := &fakeEngine{resp: &ProcessResponse{ResultURL: "u", UploadedID: "new-asset", Width: 10, Height: 10}}
	inv := NewInvoker(engine)

	res, err := inv.Process(context.Background(), testImage(), canvasParams(), 1)
	require.NoError(t, err)
	assert.True(t, engine.requests[0].Upload)
	assert.Equal(t, "new-asset", res.UploadedID)
	assert.Equal(t, uint(42), res.SourceImageID)
}

func TestRemoteProcessingErrorFormatting(t *testing.T) {
	err := &RemoteProcessingError{StatusCode: 422, Message: "bad crop"}
	assert.Contains(t, err.Error(), "422")
	assert.True(t, errors.As(error(err), new(*RemoteProcessingError)))
}
