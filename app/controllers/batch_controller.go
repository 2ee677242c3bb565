package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/batch"
	"github.com/trevall/carfolio/internal/pkg/database"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// HandleBatchPreview applies one transform across a selected set of gallery
// images, strictly sequentially. The call blocks until the pass is done and
// returns the full per-item summary; progress can be polled per item while
// it runs.
type batchPreviewRequest struct {
	ImageIDs []uint               `json:"image_ids"`
	Params   transform.Parameters `json:"params"`
}

func HandleBatchPreview(c *fiber.Ctx) error {
	galleryID, err := c.ParamsInt("id")
	if err != nil || galleryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid gallery id"})
	}

	var req batchPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid batch payload"})
	}
	if len(req.ImageIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "image_ids is empty"})
	}

	imgRepo := repository.GetGlobalFactory().GetImageRepository()
	refs := make([]transform.ImageRef, 0, len(req.ImageIDs))
	for _, id := range req.ImageIDs {
		img, err := imgRepo.GetByID(id)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "selection contains an unknown image"})
		}
		refs = append(refs, imageRefFor(img))
	}

	started := time.Now()
	summary := getPipeline().orchestrator.RunPreviews(c.Context(), refs, req.Params)
	recordBatchRun(uint(galleryID), string(req.Params.Type), started, summary)

	return c.JSON(summary)
}

// HandleBatchReplace commits the completed previews of an earlier batch
// pass into the gallery, one at a time.
type batchReplaceRequest struct {
	Items []batch.Item `json:"items"`
}

func HandleBatchReplace(c *fiber.Ctx) error {
	galleryID, err := c.ParamsInt("id")
	if err != nil || galleryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid gallery id"})
	}

	var req batchReplaceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid batch payload"})
	}

	p := getPipeline()
	if !p.storeReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "asset store not available"})
	}

	started := time.Now()
	summary := p.orchestrator.ReplaceCompleted(c.Context(), uint(galleryID), req.Items)
	recordBatchRun(uint(galleryID), "replace", started, summary)

	// The gallery's order view must be rebuilt after a batch of swaps.
	p.ordering.Evict(uint(galleryID))

	return c.JSON(summary)
}

// HandleBatchItemStatus answers a progress poll for one image in a running
// or finished batch.
func HandleBatchItemStatus(c *fiber.Ctx) error {
	runID := c.Params("run")
	imageID, err := c.ParamsInt("image")
	if err != nil || imageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid image id"})
	}

	status, err := batch.GetItemStatus(runID, uint(imageID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no status recorded"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Status lookup failed"})
	}

	return c.JSON(fiber.Map{"run_id": runID, "image_id": imageID, "status": status})
}

// HandleGetBatchRun returns the persisted record of a finished batch pass.
func HandleGetBatchRun(c *fiber.Ctx) error {
	runID := c.Params("run")
	run, err := models.FindBatchRunByRunID(database.GetDB(), runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "batch run not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load batch run"})
	}
	return c.JSON(run)
}

// recordBatchRun persists the pass outcome; failures only log, a lost run
// record never fails the batch itself.
func recordBatchRun(galleryID uint, transformType string, started time.Time, summary *batch.Summary) {
	finished := time.Now()
	run := &models.BatchRun{
		RunID:      summary.RunID,
		GalleryID:  galleryID,
		Transform:  transformType,
		ItemCount:  len(summary.Items),
		Completed:  summary.Completed,
		Errored:    summary.Errored,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	if err := database.GetDB().Create(run).Error; err != nil {
		log.Errorf("[Batch] failed to record run %s: %v", summary.RunID, err)
	}
}
