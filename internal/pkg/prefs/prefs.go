package prefs

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/internal/pkg/cache"
)

// Processing venues the user can choose between. The choice survives across
// sessions; the pipeline only consumes it.
const (
	MethodCloud = "cloud"
	MethodLocal = "local"
)

// Cache key formats for per-user preferences
const (
	processingMethodKeyFormat = "prefs:%d:processing_method"
	livePreviewKeyFormat      = "prefs:%d:live_preview"
)

// GetProcessingMethod returns the user's last-chosen processing venue,
// defaulting to cloud execution.
func GetProcessingMethod(userID uint) string {
	val, err := cache.Get(fmt.Sprintf(processingMethodKeyFormat, userID))
	if err != nil || (val != MethodCloud && val != MethodLocal) {
		return MethodCloud
	}
	return val
}

// SetProcessingMethod persists the processing venue choice.
func SetProcessingMethod(userID uint, method string) error {
	if method != MethodCloud && method != MethodLocal {
		return fmt.Errorf("unknown processing method %q", method)
	}
	return cache.Set(fmt.Sprintf(processingMethodKeyFormat, userID), method, 0)
}

// LivePreviewEnabled returns whether live preview is switched on for the
// user. Enabled by default.
func LivePreviewEnabled(userID uint) bool {
	val, err := cache.Get(fmt.Sprintf(livePreviewKeyFormat, userID))
	if err != nil {
		return true
	}
	return val != "0"
}

// SetLivePreviewEnabled persists the live preview toggle.
func SetLivePreviewEnabled(userID uint, enabled bool) error {
	val := "1"
	if !enabled {
		val = "0"
	}
	if err := cache.Set(fmt.Sprintf(livePreviewKeyFormat, userID), val, 0); err != nil {
		log.Errorf("[Prefs] failed to persist live preview toggle for user %d: %v", userID, err)
		return err
	}
	return nil
}
