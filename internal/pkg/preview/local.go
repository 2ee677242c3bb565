package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/trevall/carfolio/internal/pkg/cache"
	"github.com/trevall/carfolio/internal/pkg/cdnurl"
	"github.com/trevall/carfolio/internal/pkg/cropgeom"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

const (
	sourceCacheKeyFormat = "preview:source:%s" // keyed by processing URL
	sourceCacheTTL       = 30 * time.Minute
	previewQuality       = 75
)

// LocalRenderer produces cheap approximate previews on this machine while the
// user drags sliders. The remote engine's preview stays authoritative; this
// one only has to be fast. Output is WebP to keep payloads to the UI small.
type LocalRenderer struct {
	client   *http.Client
	cacheDir string
}

func NewLocalRenderer() *LocalRenderer {
	return &LocalRenderer{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheDir: filepath.Join(os.TempDir(), "carfolio-preview"),
	}
}

// Generate implements Generator.
func (r *LocalRenderer) Generate(ctx context.Context, img transform.ImageRef, params transform.Parameters) (*transform.ProcessedImage, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	src, err := r.loadSource(ctx, cdnurl.ToProcessingURL(img.URL))
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var out image.Image
	switch params.Type {
	case transform.TypeCrop:
		out = renderCrop(src, params.Crop)
	case transform.TypeImageMatte:
		out = renderMatte(src, params.ImageMatte)
	case transform.TypeCanvasExtension:
		out = renderCanvasExtension(src, params.CanvasExtension)
	}

	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, previewQuality)
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, out, opts); err != nil {
		return nil, fmt.Errorf("error encoding preview: %w", err)
	}

	bounds := out.Bounds()
	return &transform.ProcessedImage{
		SourceImageID: img.ID,
		ResultBytes:   buf.Bytes(),
		Dimensions:    cropgeom.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()},
		Elapsed:       time.Since(started),
	}, nil
}

// ProbeDimensions decodes the source far enough to learn its pixel size.
func (r *LocalRenderer) ProbeDimensions(ctx context.Context, imageURL string) (cropgeom.Dimensions, error) {
	src, err := r.loadSource(ctx, cdnurl.ToProcessingURL(imageURL))
	if err != nil {
		return cropgeom.Dimensions{}, err
	}
	bounds := src.Bounds()
	return cropgeom.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// loadSource fetches and decodes the source image, memoizing the downloaded
// bytes on local disk keyed through Redis so slider adjustments never
// re-download. A cache miss or a stale file falls back to a fresh fetch.
func (r *LocalRenderer) loadSource(ctx context.Context, processingURL string) (image.Image, error) {
	key := fmt.Sprintf(sourceCacheKeyFormat, processingURL)
	if cached, err := cache.Get(key); err == nil && cached != "" {
		if img, err := imaging.Open(cached); err == nil {
			return img, nil
		}
		// Stale token: the temp file is gone, drop it and re-fetch.
		_ = cache.Delete(key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, processingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build source request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read source image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	if err := os.MkdirAll(r.cacheDir, 0755); err == nil {
		path := filepath.Join(r.cacheDir, strconv.FormatInt(time.Now().UnixNano(), 36))
		if err := os.WriteFile(path, data, 0644); err == nil {
			if err := cache.Set(key, path, sourceCacheTTL); err != nil {
				log.Debugf("[Preview] failed to remember source cache token: %v", err)
			}
		}
	}

	return img, nil
}

func renderCrop(src image.Image, p *transform.CropParams) image.Image {
	rect := image.Rect(p.Crop.X, p.Crop.Y, p.Crop.X+p.Crop.Width, p.Crop.Y+p.Crop.Height)
	cropped := imaging.Crop(src, rect)
	return imaging.Resize(cropped, p.OutputWidth, p.OutputHeight, imaging.Lanczos)
}

func renderMatte(src image.Image, p *transform.ImageMatteParams) image.Image {
	canvas := imaging.New(p.CanvasWidth, p.CanvasHeight, parseHexColor(p.MatteColor))

	// Padding shrinks the usable area on every side.
	padX := int(float64(p.CanvasWidth) * p.PaddingPercent / 100)
	padY := int(float64(p.CanvasHeight) * p.PaddingPercent / 100)
	fitted := imaging.Fit(src, p.CanvasWidth-2*padX, p.CanvasHeight-2*padY, imaging.Lanczos)

	return imaging.PasteCenter(canvas, fitted)
}

func renderCanvasExtension(src image.Image, p *transform.CanvasExtensionParams) image.Image {
	// Approximation: the engine resamples the detected white strips; locally
	// we center the car on a white canvas of the desired height.
	bounds := src.Bounds()
	pad := int(float64(p.DesiredHeight) * p.PaddingPct)
	fitted := imaging.Fit(src, bounds.Dx(), p.DesiredHeight-2*pad, imaging.Lanczos)

	canvas := imaging.New(bounds.Dx(), p.DesiredHeight, color.White)
	return imaging.PasteCenter(canvas, fitted)
}

func parseHexColor(hex string) color.NRGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
