package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/cropgeom"
	"github.com/trevall/carfolio/internal/pkg/metrics/counter"
	"github.com/trevall/carfolio/internal/pkg/ordering"
	"github.com/trevall/carfolio/internal/pkg/prefs"
	"github.com/trevall/carfolio/internal/pkg/replace"
	"github.com/trevall/carfolio/internal/pkg/transform"
	"github.com/trevall/carfolio/internal/pkg/usercontext"
)

// HandleCropInit returns the centered initial crop for an image and target
// output size. Falls back to probing the source when the record carries no
// dimensions.
type cropInitRequest struct {
	TargetWidth  int `json:"target_width"`
	TargetHeight int `json:"target_height"`
}

func HandleCropInit(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	var req cropInitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid crop payload"})
	}
	if req.TargetWidth <= 0 || req.TargetHeight <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "target dimensions must be positive"})
	}

	source := cropgeom.Dimensions{Width: image.Width, Height: image.Height}
	if source.Width <= 0 || source.Height <= 0 {
		source, err = getPipeline().local.ProbeDimensions(c.Context(), image.DeliveryURL)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "bad_gateway", "message": "could not determine source dimensions"})
		}
	}

	crop := cropgeom.Initialize(source, req.TargetWidth, req.TargetHeight)
	return c.JSON(fiber.Map{"crop": crop, "source": source})
}

// HandleCacheSource pre-warms the processing backend with the image so the
// first preview does not pay the download.
func HandleCacheSource(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	cached, err := getPipeline().engine.CacheSource(c.Context(), image.DeliveryURL)
	if err != nil {
		return transformError(c, err)
	}
	return c.JSON(fiber.Map{"cached_url": cached})
}

// HandlePreview runs a single preview round trip. The processing venue
// follows the editor's preference; ?method=cloud|local overrides it for one
// request. Local previews answer with the rendered WebP itself, cloud
// previews with the result descriptor.
func HandlePreview(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	var params transform.Parameters
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid transform parameters"})
	}

	method := c.Query("method", prefs.GetProcessingMethod(usercontext.GetEditorID(c)))
	p := getPipeline()

	if method == prefs.MethodLocal {
		result, err := p.local.Generate(c.Context(), imageRefFor(image), params)
		if err != nil {
			return transformError(c, err)
		}
		counter.AddPreview(image.ID)
		c.Set(fiber.HeaderContentType, "image/webp")
		c.Set("X-Preview-Width", itoa(result.Dimensions.Width))
		c.Set("X-Preview-Height", itoa(result.Dimensions.Height))
		return c.Send(result.ResultBytes)
	}

	result, err := p.invoker.Preview(c.Context(), imageRefFor(image), params)
	if err != nil {
		return transformError(c, err)
	}
	counter.AddPreview(image.ID)
	return c.JSON(result)
}

// HandlePreviewHighRes runs a 2x or 4x preview against the remote engine.
func HandlePreviewHighRes(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	var params transform.Parameters
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid transform parameters"})
	}
	multiplier := c.QueryInt("multiplier", 2)

	result, err := getPipeline().invoker.PreviewHighRes(c.Context(), imageRefFor(image), params, multiplier)
	if err != nil {
		return transformError(c, err)
	}
	return c.JSON(result)
}

// HandleCommit turns the current parameter state into a durable gallery
// mutation: full-quality processing, upload, atomic swap, verification.
type commitRequest struct {
	Params     transform.Parameters `json:"params"`
	Multiplier int                  `json:"multiplier"`
}

func HandleCommit(c *fiber.Ctx) error {
	galleryID, err := c.ParamsInt("id")
	if err != nil || galleryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid gallery id"})
	}
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	var req commitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid commit payload"})
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}

	p := getPipeline()
	if !p.storeReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "asset store not available"})
	}

	ref := imageRefFor(image)
	processed, err := p.invoker.Process(c.Context(), ref, req.Params, req.Multiplier)
	if err != nil {
		return transformError(c, err)
	}

	result, err := p.coordinator.Commit(c.Context(), uint(galleryID), image.ID, ref, processed)
	if err != nil {
		return commitError(c, err)
	}
	counter.AddCommit(image.ID)

	// Keep the in-memory ordering view in step with the swapped reference.
	repo := repository.GetGlobalFactory().GetGalleryRepository()
	if engine, eErr := p.ordering.ForGallery(uint(galleryID), func() ([]models.Image, ordering.SortState, error) {
		gallery, err := repo.GetByID(uint(galleryID))
		if err != nil {
			return nil, ordering.SortState{}, err
		}
		images, err := repo.GetImagesOrdered(uint(galleryID))
		return images, sortStateFor(gallery), err
	}); eErr == nil {
		engine.ReplaceImage(image.ID, *result.NewImage)
	}

	response := fiber.Map{
		"original_image_id": result.OriginalImageID,
		"new_image": fiber.Map{
			"id":   result.NewImage.ID,
			"uuid": result.NewImage.UUID,
			"url":  result.NewImage.DeliveryURL,
		},
	}
	if result.Warning != "" {
		response["warning"] = result.Warning
	}
	return c.JSON(response)
}

// imageFromParams resolves the :uuid route parameter to the image record.
func imageFromParams(c *fiber.Ctx) (*models.Image, error) {
	uuid := c.Params("uuid")
	if uuid == "" {
		return nil, errBadImageUUID
	}
	return repository.GetGlobalFactory().GetImageRepository().GetByUUID(uuid)
}

var errBadImageUUID = errors.New("image uuid missing")

func imageLookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadImageUUID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "image uuid missing"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "image not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load image"})
	}
}

// transformError maps the transform error taxonomy onto HTTP statuses.
func transformError(c *fiber.Ctx, err error) error {
	var vErr *transform.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "validation_error",
			"field":   vErr.Field,
			"message": vErr.Reason,
		})
	}
	var rErr *transform.RemoteProcessingError
	if errors.As(err, &rErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "remote_processing_error",
			"status":  rErr.StatusCode,
			"message": rErr.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
}

// commitError additionally covers the replacement coordinator's failures.
func commitError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, replace.ErrCommitInProgress), errors.Is(err, replace.ErrCommitLockedOut):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "commit_rejected", "message": err.Error()})
	}
	var uErr *replace.UploadError
	if errors.As(err, &uErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upload_error", "message": uErr.Error()})
	}
	var sErr *replace.SwapError
	if errors.As(err, &sErr) {
		// The upload succeeded; the new asset exists but is unreferenced.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":           "swap_error",
			"message":         sErr.Error(),
			"orphan_image_id": sErr.NewImageID,
		})
	}
	return transformError(c, err)
}
