package transform

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/internal/pkg/cdnurl"
	"github.com/trevall/carfolio/internal/pkg/cropgeom"
)

// Invoker issues preview and commit requests against the processing engine.
// One parameterized dispatch covers all three transform types; the source
// image is never mutated by a preview call, and failed calls are never
// retried automatically (a retry changes billed compute and needs an explicit
// user action).
type Invoker struct {
	engine Engine
}

func NewInvoker(engine Engine) *Invoker {
	return &Invoker{engine: engine}
}

// Preview runs the transform at base resolution without persisting anything.
func (inv *Invoker) Preview(ctx context.Context, img ImageRef, params Parameters) (*ProcessedImage, error) {
	return inv.invoke(ctx, img, params, 1, false)
}

// PreviewHighRes runs the transform at 2x or 4x output resolution. The crop
// and composition geometry established by the base preview is preserved; only
// the target dimensions scale.
func (inv *Invoker) PreviewHighRes(ctx context.Context, img ImageRef, params Parameters, multiplier int) (*ProcessedImage, error) {
	if multiplier != 2 && multiplier != 4 {
		return nil, &ValidationError{Field: "multiplier", Reason: "must be 2 or 4"}
	}
	return inv.invoke(ctx, img, params, multiplier, false)
}

// Process runs the transform and asks the engine to persist the result to
// the delivery network. Used by the replacement coordinator's commit path.
func (inv *Invoker) Process(ctx context.Context, img ImageRef, params Parameters, multiplier int) (*ProcessedImage, error) {
	if multiplier < 1 {
		multiplier = 1
	}
	return inv.invoke(ctx, img, params, multiplier, true)
}

func (inv *Invoker) invoke(ctx context.Context, img ImageRef, params Parameters, multiplier int, upload bool) (*ProcessedImage, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	req := ProcessRequest{
		ProcessingURL: cdnurl.ToProcessingURL(img.URL),
		Params:        params.ToEngineMap(multiplier),
		Upload:        upload,
	}

	started := time.Now()
	resp, err := inv.engine.Process(ctx, req)
	if err != nil {
		log.Errorf("[Transform] %s failed for image %d: %v", params.Type, img.ID, err)
		return nil, err
	}

	log.Debugf("[Transform] %s for image %d done in %s (%dx%d)",
		params.Type, img.ID, time.Since(started), resp.Width, resp.Height)

	return &ProcessedImage{
		SourceImageID: img.ID,
		ResultURL:     resp.ResultURL,
		Dimensions:    cropgeom.Dimensions{Width: resp.Width, Height: resp.Height},
		UploadedID:    resp.UploadedID,
		Elapsed:       time.Duration(resp.ElapsedMS) * time.Millisecond,
	}, nil
}
