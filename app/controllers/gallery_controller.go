package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/cdnurl"
	"github.com/trevall/carfolio/internal/pkg/ordering"
)

// HandleGetGallery returns the gallery resource with its images in the
// persisted order. Thumbnail URLs are resolved to the requested variant when
// width/quality query parameters are present.
func HandleGetGallery(c *fiber.Ctx) error {
	gallery, engine, err := galleryAndEngine(c)
	if err != nil {
		return galleryLookupError(c, err)
	}

	width := c.QueryInt("width", 0)
	quality := c.QueryInt("quality", 85)

	images := engine.Images()
	items := make([]fiber.Map, 0, len(images))
	for _, img := range images {
		url := img.DeliveryURL
		if width > 0 {
			url = cdnurl.Resolve(url, width, quality)
		}
		items = append(items, fiber.Map{
			"id":          img.ID,
			"uuid":        img.UUID,
			"file_name":   img.FileName,
			"width":       img.Width,
			"height":      img.Height,
			"url":         url,
			"captured_at": img.CapturedAt,
		})
	}

	return c.JSON(fiber.Map{
		"id":             gallery.ID,
		"uuid":           gallery.UUID,
		"title":          gallery.Title,
		"sort_mode":      string(engine.Mode()),
		"sort_criterion": gallery.SortCriterion,
		"sort_direction": gallery.SortDirection,
		"images":         items,
	})
}

// HandleCreateGallery creates an empty gallery.
type createGalleryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func HandleCreateGallery(c *fiber.Ctx) error {
	var req createGalleryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid gallery payload"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "title is required"})
	}

	gallery := &models.Gallery{
		Title:       req.Title,
		Description: req.Description,
		SortMode:    models.GallerySortModeManual,
	}
	if err := repository.GetGlobalFactory().GetGalleryRepository().Create(gallery); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create gallery"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": gallery.ID, "uuid": gallery.UUID, "title": gallery.Title})
}

// HandleReorderImages applies a single drag within the gallery sequence.
type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func HandleReorderImages(c *fiber.Ctx) error {
	_, engine, err := galleryAndEngine(c)
	if err != nil {
		return galleryLookupError(c, err)
	}

	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid reorder payload"})
	}

	if err := engine.Reorder(req.From, req.To); err != nil {
		var persistErr *ordering.OrderPersistError
		if errors.As(err, &persistErr) {
			// The visible sequence was rolled back to the last persisted
			// order; return it so the client can resync.
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "order_persist_failed",
				"message": "Could not save the new order; the previous order was restored",
				"order":   orderedIDs(engine),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	return c.JSON(fiber.Map{"order": orderedIDs(engine)})
}

// HandleSetSortMode switches the gallery between manual ordering and a sort
// criterion, persisting both the resulting order and the mode choice.
type sortModeRequest struct {
	Mode        string `json:"mode"`
	Criterion   string `json:"criterion"`
	Direction   string `json:"direction"`
	MetadataKey string `json:"metadata_key"`
}

func HandleSetSortMode(c *fiber.Ctx) error {
	gallery, engine, err := galleryAndEngine(c)
	if err != nil {
		return galleryLookupError(c, err)
	}

	var req sortModeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid sort payload"})
	}

	switch req.Mode {
	case models.GallerySortModeManual:
		err = engine.SetManualMode()
	case models.GallerySortModeSorted:
		criterion := ordering.Criterion(req.Criterion)
		switch criterion {
		case ordering.ByFileName, ordering.ByCapturedAt, ordering.ByUploadedAt, ordering.ByMetadata:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown sort criterion"})
		}
		direction := ordering.Direction(req.Direction)
		if direction != ordering.Asc && direction != ordering.Desc {
			direction = ordering.Asc
		}
		err = engine.SetSortCriterion(criterion, direction, req.MetadataKey)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "mode must be manual or sorted"})
	}

	if err != nil {
		var persistErr *ordering.OrderPersistError
		if errors.As(err, &persistErr) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "order_persist_failed",
				"message": "Could not save the sorted order; the previous order was restored",
				"order":   orderedIDs(engine),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	// Mirror the mode choice on the gallery record so a reload derives the
	// same view.
	gallery.SortMode = req.Mode
	gallery.SortCriterion = req.Criterion
	gallery.SortDirection = req.Direction
	gallery.MetadataKey = req.MetadataKey
	if err := repository.GetGlobalFactory().GetGalleryRepository().Update(gallery); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save sort mode"})
	}

	return c.JSON(fiber.Map{"sort_mode": req.Mode, "order": orderedIDs(engine)})
}

// galleryAndEngine resolves the :id route parameter to the gallery record
// and its shared ordering engine.
func galleryAndEngine(c *fiber.Ctx) (*models.Gallery, *ordering.Engine, error) {
	galleryID, err := c.ParamsInt("id")
	if err != nil || galleryID <= 0 {
		return nil, nil, errBadGalleryID
	}

	repo := repository.GetGlobalFactory().GetGalleryRepository()
	gallery, err := repo.GetByID(uint(galleryID))
	if err != nil {
		return nil, nil, err
	}

	engine, err := getPipeline().ordering.ForGallery(gallery.ID, func() ([]models.Image, ordering.SortState, error) {
		images, err := repo.GetImagesOrdered(gallery.ID)
		return images, sortStateFor(gallery), err
	})
	if err != nil {
		return nil, nil, err
	}
	return gallery, engine, nil
}

// sortStateFor maps the gallery record's persisted sort configuration onto
// the ordering engine's state.
func sortStateFor(gallery *models.Gallery) ordering.SortState {
	return ordering.SortState{
		Mode:        ordering.Mode(gallery.SortMode),
		Criterion:   ordering.Criterion(gallery.SortCriterion),
		Direction:   ordering.Direction(gallery.SortDirection),
		MetadataKey: gallery.MetadataKey,
	}
}

var errBadGalleryID = errors.New("invalid gallery id")

func galleryLookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadGalleryID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid gallery id"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "gallery not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load gallery"})
	}
}

func orderedIDs(engine *ordering.Engine) []uint {
	images := engine.Images()
	ids := make([]uint, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}
