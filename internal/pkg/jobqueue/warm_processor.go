package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/internal/pkg/transform"
)

// NewCacheWarmProcessor returns the processor that asks the processing
// backend to pre-fetch a source image.
func NewCacheWarmProcessor(engine transform.Engine) Processor {
	return func(ctx context.Context, job *Job) error {
		if job.Payload.ImageURL == "" {
			return fmt.Errorf("cache warm job %s carries no image URL", job.ID)
		}
		cached, err := engine.CacheSource(ctx, job.Payload.ImageURL)
		if err != nil {
			return err
		}
		log.Debugf("[JobQueue] pre-warmed %s -> %s", job.Payload.ImageUUID, cached)
		return nil
	}
}
