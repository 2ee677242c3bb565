package middleware

import (
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/trevall/carfolio/internal/pkg/env"
	"github.com/trevall/carfolio/internal/pkg/usercontext"
)

// API tokens come from the environment as "id:name:token" triples separated
// by commas, e.g. API_TOKENS=1:alice:s3cret,2:bob:t0ken. The tool runs inside
// the CMS perimeter; token auth identifies the editor, it does not gatekeep
// the public.
var (
	tokensOnce sync.Once
	tokens     map[string]usercontext.EditorContext
)

func loadTokens() {
	tokens = make(map[string]usercontext.EditorContext)
	raw := env.GetEnv("API_TOKENS", "")
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 {
			continue
		}
		id, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		tokens[parts[2]] = usercontext.EditorContext{
			EditorID:   uint(id),
			Name:       parts[1],
			IsLoggedIn: true,
		}
	}
}

// APIKeyAuthMiddleware authenticates requests carrying an editor API token.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokensOnce.Do(loadTokens)

		token := extractAPIKeyFromHeader(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		editor, ok := tokens[token]
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		c.Locals(usercontext.KeyEditorContext, editor)
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
