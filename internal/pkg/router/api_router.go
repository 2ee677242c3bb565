package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/trevall/carfolio/app/controllers"
	"github.com/trevall/carfolio/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "carfolio api",
		})
	})

	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())

	// Editor preferences
	v1.Get("/prefs", controllers.HandleGetPrefs)
	v1.Put("/prefs", controllers.HandleSetPrefs)

	// Galleries: listing, ingest, ordering
	v1.Post("/galleries", controllers.HandleCreateGallery)
	v1.Get("/galleries/:id", controllers.HandleGetGallery)
	v1.Post("/galleries/:id/images", controllers.HandleUploadImage)
	v1.Post("/galleries/:id/reorder", controllers.HandleReorderImages)
	v1.Put("/galleries/:id/sort", controllers.HandleSetSortMode)

	// Single-image transform flow
	v1.Post("/images/:uuid/crop/init", controllers.HandleCropInit)
	v1.Post("/images/:uuid/cache", controllers.HandleCacheSource)
	v1.Post("/images/:uuid/preview", controllers.HandlePreview)
	v1.Post("/images/:uuid/preview/highres", controllers.HandlePreviewHighRes)
	v1.Post("/galleries/:id/images/:uuid/commit", controllers.HandleCommit)

	// Live preview sessions
	v1.Post("/images/:uuid/live/params", controllers.HandleLivePreviewParams)
	v1.Put("/images/:uuid/live/enabled", controllers.HandleLivePreviewToggle)
	v1.Get("/images/:uuid/live/latest", controllers.HandleLivePreviewLatest)

	// Batch passes
	v1.Post("/galleries/:id/batch/preview", controllers.HandleBatchPreview)
	v1.Post("/galleries/:id/batch/replace", controllers.HandleBatchReplace)
	v1.Get("/batch/:run/images/:image/status", controllers.HandleBatchItemStatus)
	v1.Get("/batch/:run", controllers.HandleGetBatchRun)
}
