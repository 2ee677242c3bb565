package batch

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/internal/pkg/cache"
)

// Cache key formats for batch run progress
const (
	batchItemKeyFormat = "batch:%s:item:%d" // Format: batch:<run>:item:<image-id>
	batchStatusTTL     = 24 * time.Hour
)

// RedisRecorder mirrors per-item batch status into the cache so the UI can
// poll a running batch without holding a connection open.
func RedisRecorder(runID string, imageID uint, status ItemStatus, errMsg string) {
	key := fmt.Sprintf(batchItemKeyFormat, runID, imageID)
	value := string(status)
	if errMsg != "" {
		value = value + ":" + errMsg
	}
	if err := cache.Set(key, value, batchStatusTTL); err != nil {
		log.Errorf("[Batch] failed to record status for run %s image %d: %v", runID, imageID, err)
	}
}

// GetItemStatus reads one item's mirrored status back from the cache.
func GetItemStatus(runID string, imageID uint) (string, error) {
	return cache.Get(fmt.Sprintf(batchItemKeyFormat, runID, imageID))
}
