package controllers

import (
	"encoding/base64"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/trevall/carfolio/internal/pkg/prefs"
	"github.com/trevall/carfolio/internal/pkg/preview"
	"github.com/trevall/carfolio/internal/pkg/transform"
	"github.com/trevall/carfolio/internal/pkg/usercontext"
)

// A previewSession is one editor working on one image: a debouncing
// controller plus the latest result it delivered. The client feeds parameter
// states in and polls for the newest preview; stale generations are dropped
// inside the controller and never reach the session.
type previewSession struct {
	controller *preview.Controller

	mu     sync.Mutex
	latest *preview.Result
}

func (s *previewSession) deliver(r preview.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || r.Seq > s.latest.Seq {
		s.latest = &r
	}
}

type previewSessionKey struct {
	editorID  uint
	imageUUID string
}

var (
	previewMu       sync.Mutex
	previewSessions = map[previewSessionKey]*previewSession{}
)

func sessionFor(c *fiber.Ctx, imageUUID string) *previewSession {
	editorID := usercontext.GetEditorID(c)
	key := previewSessionKey{editorID: editorID, imageUUID: imageUUID}

	previewMu.Lock()
	defer previewMu.Unlock()

	if s, ok := previewSessions[key]; ok {
		return s
	}

	s := &previewSession{}
	s.controller = preview.NewController(
		getPipeline().local,
		preview.DebounceWindow,
		prefs.LivePreviewEnabled(editorID),
		s.deliver,
		func(enabled bool) { prefs.SetLivePreviewEnabled(editorID, enabled) },
	)
	previewSessions[key] = s
	return s
}

// HandleLivePreviewParams feeds the current slider state into the editor's
// preview session. Returns immediately; the generation happens after the
// debounce window if no newer state arrives.
func HandleLivePreviewParams(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	var params transform.Parameters
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid transform parameters"})
	}

	session := sessionFor(c, image.UUID)
	session.controller.Request(imageRefFor(image), params)
	return c.SendStatus(fiber.StatusAccepted)
}

// HandleLivePreviewToggle enables or disables live preview for the session
// and persists the choice. Re-enabling with a valid parameter state fires a
// generation immediately.
type previewToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func HandleLivePreviewToggle(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	var req previewToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid toggle payload"})
	}

	session := sessionFor(c, image.UUID)
	session.controller.SetEnabled(req.Enabled)
	return c.JSON(fiber.Map{"enabled": session.controller.Enabled()})
}

// HandleLivePreviewLatest returns the newest preview the session produced,
// or 204 when nothing has been generated yet. The sequence number lets the
// client skip frames it has already rendered.
func HandleLivePreviewLatest(c *fiber.Ctx) error {
	image, err := imageFromParams(c)
	if err != nil {
		return imageLookupError(c, err)
	}

	session := sessionFor(c, image.UUID)
	session.mu.Lock()
	latest := session.latest
	session.mu.Unlock()

	if latest == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if latest.Err != nil {
		return transformError(c, latest.Err)
	}

	return c.JSON(fiber.Map{
		"seq":        latest.Seq,
		"dimensions": latest.Image.Dimensions,
		"webp":       base64.StdEncoding.EncodeToString(latest.Image.ResultBytes),
	})
}
