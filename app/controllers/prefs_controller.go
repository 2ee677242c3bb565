package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trevall/carfolio/internal/pkg/prefs"
	"github.com/trevall/carfolio/internal/pkg/usercontext"
)

// HandleGetPrefs returns the editor's persisted tool preferences.
func HandleGetPrefs(c *fiber.Ctx) error {
	editorID := usercontext.GetEditorID(c)
	return c.JSON(fiber.Map{
		"processing_method": prefs.GetProcessingMethod(editorID),
		"live_preview":      prefs.LivePreviewEnabled(editorID),
	})
}

// HandleSetPrefs updates preferences; absent fields are left untouched.
type prefsRequest struct {
	ProcessingMethod *string `json:"processing_method"`
	LivePreview      *bool   `json:"live_preview"`
}

func HandleSetPrefs(c *fiber.Ctx) error {
	editorID := usercontext.GetEditorID(c)

	var req prefsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid preferences payload"})
	}

	if req.ProcessingMethod != nil {
		method := *req.ProcessingMethod
		if method != prefs.MethodCloud && method != prefs.MethodLocal {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "processing_method must be cloud or local"})
		}
		if err := prefs.SetProcessingMethod(editorID, method); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save preference"})
		}
	}
	if req.LivePreview != nil {
		if err := prefs.SetLivePreviewEnabled(editorID, *req.LivePreview); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save preference"})
		}
	}

	return HandleGetPrefs(c)
}
