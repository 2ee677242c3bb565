package batch

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/trevall/carfolio/internal/pkg/replace"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// DefaultPace is the delay between consecutive batch items. Batch work is
// deliberately serialized with inter-item pacing so a large selection cannot
// overwhelm the processing backend.
const DefaultPace = 500 * time.Millisecond

// ItemStatus of one image within a batch run. A status is terminal once it
// reaches completed or error; an item is never re-entered into processing
// within the same run.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusCompleted  ItemStatus = "completed"
	StatusError      ItemStatus = "error"
)

// Item tracks one image through a batch pass.
type Item struct {
	Image   transform.ImageRef        `json:"image"`
	Status  ItemStatus                `json:"status"`
	Error   string                    `json:"error,omitempty"`
	Preview *transform.ProcessedImage `json:"preview,omitempty"`
}

// Failure describes one errored item for the summary.
type Failure struct {
	ImageID  uint   `json:"image_id"`
	FileName string `json:"file_name"`
	Message  string `json:"message"`
}

// Summary is produced after a full pass over the selection.
type Summary struct {
	RunID     string    `json:"run_id"`
	Completed int       `json:"completed"`
	Errored   int       `json:"errored"`
	Failures  []Failure `json:"failures,omitempty"`
	Items     []Item    `json:"items"`
}

// Previewer runs a single preview transform. The transform invoker
// satisfies it.
type Previewer interface {
	Preview(ctx context.Context, img transform.ImageRef, params transform.Parameters) (*transform.ProcessedImage, error)
}

// Committer replaces one gallery image with a processed result. The
// replacement coordinator satisfies it.
type Committer interface {
	Commit(ctx context.Context, galleryID, originalImageID uint, source transform.ImageRef, processed *transform.ProcessedImage) (*replace.Result, error)
}

// Recorder mirrors per-item progress so the UI can poll a running batch.
// May be nil.
type Recorder func(runID string, imageID uint, status ItemStatus, errMsg string)

// Orchestrator applies a transform across a selected set of images, strictly
// sequentially. A failure on one item never halts the batch; the remaining
// items are still attempted.
type Orchestrator struct {
	previewer Previewer
	committer Committer
	recorder  Recorder

	// Pace defaults to DefaultPace; tests shorten it.
	Pace time.Duration
}

func NewOrchestrator(previewer Previewer, committer Committer, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		previewer: previewer,
		committer: committer,
		recorder:  recorder,
		Pace:      DefaultPace,
	}
}

// RunPreviews generates previews for every image in the selection.
func (o *Orchestrator) RunPreviews(ctx context.Context, images []transform.ImageRef, params transform.Parameters) *Summary {
	summary := &Summary{RunID: uuid.New().String()}
	for _, img := range images {
		summary.Items = append(summary.Items, Item{Image: img, Status: StatusPending})
	}
	log.Infof("[Batch] run %s: previewing %d images (%s)", summary.RunID, len(images), params.Type)

	for i := range summary.Items {
		if i > 0 && !o.pace(ctx) {
			break
		}

		item := &summary.Items[i]
		o.setStatus(summary.RunID, item, StatusProcessing, "")

		preview, err := o.previewer.Preview(ctx, item.Image, params)
		if err != nil {
			o.setStatus(summary.RunID, item, StatusError, err.Error())
			continue
		}
		item.Preview = preview
		o.setStatus(summary.RunID, item, StatusCompleted, "")
	}

	o.summarize(summary)
	return summary
}

// ReplaceCompleted runs the second pass: every item still holding a
// completed preview is committed into the gallery, again strictly
// sequentially with the same pacing.
func (o *Orchestrator) ReplaceCompleted(ctx context.Context, galleryID uint, items []Item) *Summary {
	summary := &Summary{RunID: uuid.New().String()}
	for _, item := range items {
		if item.Status == StatusCompleted && item.Preview != nil {
			summary.Items = append(summary.Items, Item{Image: item.Image, Status: StatusPending, Preview: item.Preview})
		}
	}
	log.Infof("[Batch] run %s: replacing %d previewed images in gallery %d", summary.RunID, len(summary.Items), galleryID)

	for i := range summary.Items {
		if i > 0 && !o.pace(ctx) {
			break
		}

		item := &summary.Items[i]
		o.setStatus(summary.RunID, item, StatusProcessing, "")

		result, err := o.committer.Commit(ctx, galleryID, item.Image.ID, item.Image, item.Preview)
		if err != nil {
			o.setStatus(summary.RunID, item, StatusError, err.Error())
			continue
		}
		if result.Warning != "" {
			log.Warnf("[Batch] run %s image %d: %s", summary.RunID, item.Image.ID, result.Warning)
		}
		o.setStatus(summary.RunID, item, StatusCompleted, "")
	}

	o.summarize(summary)
	return summary
}

// pace waits the inter-item delay; false means the context was canceled and
// the remaining items stay pending.
func (o *Orchestrator) pace(ctx context.Context) bool {
	select {
	case <-time.After(o.Pace):
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) setStatus(runID string, item *Item, status ItemStatus, errMsg string) {
	// Terminal statuses stick for the rest of the run.
	if item.Status == StatusCompleted || item.Status == StatusError {
		return
	}
	item.Status = status
	item.Error = errMsg
	if o.recorder != nil {
		o.recorder(runID, item.Image.ID, status, errMsg)
	}
}

func (o *Orchestrator) summarize(summary *Summary) {
	for _, item := range summary.Items {
		switch item.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusError:
			summary.Errored++
			summary.Failures = append(summary.Failures, Failure{
				ImageID:  item.Image.ID,
				FileName: item.Image.FileName,
				Message:  item.Error,
			})
		}
	}
	log.Infof("[Batch] run %s finished: %d completed, %d errored", summary.RunID, summary.Completed, summary.Errored)
}
