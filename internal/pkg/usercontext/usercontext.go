package usercontext

import "github.com/gofiber/fiber/v2"

// Locals keys shared between middleware and controllers
const (
	KeyEditorContext = "EDITOR_CONTEXT"
)

// EditorContext identifies the editor behind a request. Editors are the
// internal users of the media tooling; identity comes from the API token
// middleware, not from a user database.
type EditorContext struct {
	EditorID   uint   `json:"editor_id"`
	Name       string `json:"name"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetEditorContext retrieves the editor context from the fiber context.
// Returns an anonymous context if none is set.
func GetEditorContext(c *fiber.Ctx) EditorContext {
	if ctx := c.Locals(KeyEditorContext); ctx != nil {
		return ctx.(EditorContext)
	}
	return EditorContext{IsLoggedIn: false}
}

// GetEditorID returns the current editor's ID, or 0 if not authenticated.
func GetEditorID(c *fiber.Ctx) uint {
	return GetEditorContext(c).EditorID
}
