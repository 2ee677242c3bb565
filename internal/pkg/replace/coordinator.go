package replace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// DefaultLockout is how long after the start of a commit attempt a new
// attempt on the same (gallery, image) pair stays rejected, even if the
// first attempt has already resolved.
const DefaultLockout = 2 * time.Second

// State of a commit for one (gallery, image) pair.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateSwapping  State = "swapping"
	StateVerifying State = "verifying"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// validTransitions is the single source of truth for the commit state
// machine; every transition goes through advance.
var validTransitions = map[State][]State{
	StateIdle:      {StateUploading},
	StateUploading: {StateSwapping, StateFailed},
	StateSwapping:  {StateVerifying, StateFailed},
	StateVerifying: {StateDone},
	StateDone:      {StateUploading},
	StateFailed:    {StateUploading},
}

func (s State) active() bool {
	return s == StateUploading || s == StateSwapping || s == StateVerifying
}

// Uploader persists a processed result to the asset store and returns the
// new stable image identity.
type Uploader interface {
	Upload(ctx context.Context, source transform.ImageRef, processed *transform.ProcessedImage) (*models.Image, error)
}

// Swapper atomically replaces a gallery's reference from the old image to
// the new one. The gallery repository satisfies it; atomicity is its
// responsibility, not the coordinator's.
type Swapper interface {
	ReplaceImage(galleryID, oldImageID, newImageID uint) error
}

// Verifier probes the new asset's delivery URL after the swap.
type Verifier interface {
	Verify(ctx context.Context, url string) error
}

// Result of a successful commit. Warning carries the verification outcome
// when the availability probe failed; the swap is committed regardless.
type Result struct {
	OriginalImageID uint
	NewImage        *models.Image
	Warning         string
}

type commitKey struct {
	galleryID uint
	imageID   uint
}

type commitEntry struct {
	state     State
	startedAt time.Time
}

// Coordinator turns a confirmed preview into a durable gallery mutation:
// upload, atomic swap, then availability verification. Commits for the same
// (gallery, image) pair are totally ordered by the reentrancy guard; commits
// for different pairs may interleave freely.
type Coordinator struct {
	mu      sync.Mutex
	commits map[commitKey]*commitEntry

	uploader Uploader
	swapper  Swapper
	verifier Verifier

	// Lockout and RetryDelay default to production values; tests shorten them.
	Lockout    time.Duration
	RetryDelay time.Duration
}

func NewCoordinator(uploader Uploader, swapper Swapper, verifier Verifier) *Coordinator {
	return &Coordinator{
		commits:    make(map[commitKey]*commitEntry),
		uploader:   uploader,
		swapper:    swapper,
		verifier:   verifier,
		Lockout:    DefaultLockout,
		RetryDelay: 750 * time.Millisecond,
	}
}

// StateOf reports the current commit state for a pair.
func (c *Coordinator) StateOf(galleryID, imageID uint) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.commits[commitKey{galleryID, imageID}]; ok {
		return e.state
	}
	return StateIdle
}

// Commit replaces originalImageID in the gallery with the processed result.
// Either upload and swap both take effect and the caller is notified, or
// neither is treated as applied; a failed verification alone never rolls the
// swap back.
func (c *Coordinator) Commit(ctx context.Context, galleryID, originalImageID uint, source transform.ImageRef, processed *transform.ProcessedImage) (*Result, error) {
	key := commitKey{galleryID, originalImageID}

	if err := c.begin(key); err != nil {
		return nil, err
	}

	newImage, err := c.uploader.Upload(ctx, source, processed)
	if err != nil {
		c.advance(key, StateFailed)
		return nil, &UploadError{Err: err}
	}

	c.advance(key, StateSwapping)
	if err := c.swapper.ReplaceImage(galleryID, originalImageID, newImage.ID); err != nil {
		c.advance(key, StateFailed)
		return nil, &SwapError{NewImageID: newImage.ID, Err: err}
	}

	c.advance(key, StateVerifying)
	result := &Result{OriginalImageID: originalImageID, NewImage: newImage}
	if err := c.verify(ctx, newImage.DeliveryURL); err != nil {
		// Propagation-delay read failures must not fail a committed swap.
		result.Warning = fmt.Sprintf("replacement committed, but the new asset could not be verified yet: %v", err)
		log.Warnf("[Replace] %s", result.Warning)
	}

	c.advance(key, StateDone)
	log.Infof("[Replace] gallery %d: image %d replaced by %d", galleryID, originalImageID, newImage.ID)
	return result, nil
}

// begin enforces the reentrancy guard and the time-based lockout, then moves
// the pair into uploading.
func (c *Coordinator) begin(key commitKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.commits[key]
	if !ok {
		entry = &commitEntry{state: StateIdle}
		c.commits[key] = entry
	}

	if entry.state.active() {
		return ErrCommitInProgress
	}
	if !entry.startedAt.IsZero() && time.Since(entry.startedAt) < c.Lockout {
		return ErrCommitLockedOut
	}

	if !transitionAllowed(entry.state, StateUploading) {
		return fmt.Errorf("cannot start commit from state %s", entry.state)
	}
	entry.state = StateUploading
	entry.startedAt = time.Now()
	return nil
}

// advance validates and applies a state transition for the pair.
func (c *Coordinator) advance(key commitKey, to State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.commits[key]
	if !ok {
		return
	}
	if !transitionAllowed(entry.state, to) {
		log.Errorf("[Replace] invalid state transition %s -> %s for gallery %d image %d",
			entry.state, to, key.galleryID, key.imageID)
		return
	}
	entry.state = to
}

func transitionAllowed(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// verify probes the delivery URL with one bounded retry.
func (c *Coordinator) verify(ctx context.Context, url string) error {
	err := c.verifier.Verify(ctx, url)
	if err == nil {
		return nil
	}

	select {
	case <-time.After(c.RetryDelay):
	case <-ctx.Done():
		return err
	}
	return c.verifier.Verify(ctx, url)
}
