package ordering

import (
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
)

// Mode of a gallery's ordering.
type Mode string

const (
	ModeManual Mode = models.GallerySortModeManual
	ModeSorted Mode = models.GallerySortModeSorted
)

// OrderPersistError reports a failed order write. The engine has already
// rolled local state back to the last known-good order when it is returned.
type OrderPersistError struct {
	GalleryID uint
	Err       error
}

func (e *OrderPersistError) Error() string {
	return fmt.Sprintf("failed to persist order for gallery %d: %v", e.GalleryID, e.Err)
}

func (e *OrderPersistError) Unwrap() error { return e.Err }

// Persister writes a complete gallery ordering. The gallery repository
// satisfies it.
type Persister interface {
	PersistOrder(galleryID uint, entries []repository.OrderEntry) error
}

// SortState is the persisted ordering configuration of a gallery. A rebuilt
// engine is restored to it so an eviction never silently falls back to manual
// mode while the gallery record still says sorted.
type SortState struct {
	Mode        Mode
	Criterion   Criterion
	Direction   Direction
	MetadataKey string
}

// Engine maintains a gallery's image sequence under manual and
// sorted-by-criterion modes. Every mutation is applied optimistically to the
// local sequence, then persisted; on failure the engine rolls back to the
// last order that was successfully persisted (which is not necessarily the
// order before the failing mutation).
type Engine struct {
	mu        sync.Mutex
	galleryID uint
	persister Persister

	images        []models.Image
	lastPersisted []uint // image IDs in the last known-good persisted order

	mode        Mode
	criterion   Criterion
	direction   Direction
	metadataKey string
}

// NewEngine builds an engine over the images as loaded from the gallery,
// which by definition reflect the persisted order.
func NewEngine(galleryID uint, persister Persister, images []models.Image) *Engine {
	return &Engine{
		galleryID:     galleryID,
		persister:     persister,
		images:        append([]models.Image(nil), images...),
		lastPersisted: imageIDs(images),
		mode:          ModeManual,
	}
}

// restoreSortState re-applies a persisted sort configuration to a freshly
// built engine. It does not touch the sequence: the loaded images already
// reflect the persisted order.
func (e *Engine) restoreSortState(s SortState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.Mode != ModeSorted {
		return
	}
	e.mode = ModeSorted
	e.criterion = s.Criterion
	e.direction = s.Direction
	e.metadataKey = s.MetadataKey
}

// Images returns a copy of the current visible sequence.
func (e *Engine) Images() []models.Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Image(nil), e.images...)
}

// Mode returns the current ordering mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Reorder moves the image at position from to position to. In sorted mode a
// drag is a silent no-op, not an error. The move is applied optimistically
// and persisted; a failed write rolls back to the last persisted order.
func (e *Engine) Reorder(from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == ModeSorted {
		log.Debugf("[Ordering] ignoring drag in sorted mode for gallery %d", e.galleryID)
		return nil
	}
	if from < 0 || from >= len(e.images) || to < 0 || to >= len(e.images) {
		return fmt.Errorf("reorder positions out of range: %d -> %d with %d images", from, to, len(e.images))
	}
	if from == to {
		return nil
	}

	next := append([]models.Image(nil), e.images...)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	rest := append([]models.Image(nil), next[to:]...)
	next = append(append(next[:to:to], moved), rest...)

	return e.applyLocked(next)
}

// SetSortCriterion switches to sorted mode (or re-sorts within it) and
// persists the derived order unless it matches the last persisted one.
func (e *Engine) SetSortCriterion(criterion Criterion, direction Direction, metadataKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mode = ModeSorted
	e.criterion = criterion
	e.direction = direction
	e.metadataKey = metadataKey

	next := append([]models.Image(nil), e.images...)
	sortImages(next, criterion, direction, metadataKey)

	return e.applyLocked(next)
}

// SetManualMode leaves sorted mode, snapshotting the currently visible order
// as the new manual baseline so the user's browsing order is not discarded.
func (e *Engine) SetManualMode() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == ModeManual {
		return nil
	}
	e.mode = ModeManual

	// The visible order becomes the manual baseline; persist it if the last
	// write predates the sort.
	return e.applyLocked(e.images)
}

// ReplaceImage substitutes a swapped-in image at the position of the old one.
// The repository swap inherits the sort position, so the persisted baseline
// is updated in place rather than re-written.
func (e *Engine) ReplaceImage(oldImageID uint, newImage models.Image) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.images {
		if e.images[i].ID == oldImageID {
			e.images[i] = newImage
			break
		}
	}
	for i, id := range e.lastPersisted {
		if id == oldImageID {
			e.lastPersisted[i] = newImage.ID
			break
		}
	}
}

// applyLocked runs one optimistic mutation: apply, persist, and on failure
// revert to the last known-good order. Writes identical to the last persisted
// order are suppressed. Callers hold e.mu.
func (e *Engine) applyLocked(next []models.Image) error {
	e.images = next

	nextIDs := imageIDs(next)
	if equalIDs(nextIDs, e.lastPersisted) {
		return nil
	}

	if err := e.persister.PersistOrder(e.galleryID, toEntries(nextIDs)); err != nil {
		// Rollback target is the last *persisted* order, not the order before
		// this mutation: a successful reorder may have happened in between.
		e.images = reorderTo(next, e.lastPersisted)
		log.Errorf("[Ordering] persist failed for gallery %d, rolled back: %v", e.galleryID, err)
		return &OrderPersistError{GalleryID: e.galleryID, Err: err}
	}

	e.lastPersisted = nextIDs
	return nil
}

func imageIDs(images []models.Image) []uint {
	ids := make([]uint, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toEntries(ids []uint) []repository.OrderEntry {
	entries := make([]repository.OrderEntry, len(ids))
	for i, id := range ids {
		entries[i] = repository.OrderEntry{ImageID: id, Order: i}
	}
	return entries
}

// reorderTo rearranges images to follow the given ID sequence. Images missing
// from the sequence keep their relative position at the end.
func reorderTo(images []models.Image, ids []uint) []models.Image {
	byID := make(map[uint]models.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}

	out := make([]models.Image, 0, len(images))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			out = append(out, img)
			seen[id] = true
		}
	}
	for _, img := range images {
		if !seen[img.ID] {
			out = append(out, img)
		}
	}
	return out
}
