package preview

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/internal/pkg/transform"
)

// DebounceWindow is how long the controller waits after the last parameter
// change before firing a preview generation. Any change inside the window
// resets the timer (trailing edge).
const DebounceWindow = 300 * time.Millisecond

// Generator produces a preview for the given parameter state. The local
// renderer and the remote invoker both satisfy it.
type Generator interface {
	Generate(ctx context.Context, img transform.ImageRef, params transform.Parameters) (*transform.ProcessedImage, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, img transform.ImageRef, params transform.Parameters) (*transform.ProcessedImage, error)

func (f GeneratorFunc) Generate(ctx context.Context, img transform.ImageRef, params transform.Parameters) (*transform.ProcessedImage, error) {
	return f(ctx, img, params)
}

// Result is delivered for every generation that is still the latest when it
// finishes. Stale generations are discarded, never delivered.
type Result struct {
	Seq   uint64
	Image *transform.ProcessedImage
	Err   error
}

// Controller debounces parameter changes into preview generations and
// guarantees that an older generation can never be displayed over a newer
// one. "Cancellation" is client-side: a response whose sequence number is no
// longer the latest is dropped; the network call itself is not aborted.
type Controller struct {
	mu       sync.Mutex
	gen      Generator
	debounce time.Duration
	onResult func(Result)
	persist  func(enabled bool)

	timer   *time.Timer
	enabled bool
	seq     uint64
	img     transform.ImageRef
	params  *transform.Parameters
}

// NewController builds a controller for one editing session. enabled comes
// from the persisted user preference; persist (optional) is called whenever
// the preference changes so it survives the session.
func NewController(gen Generator, debounce time.Duration, enabled bool, onResult func(Result), persist func(bool)) *Controller {
	if debounce <= 0 {
		debounce = DebounceWindow
	}
	return &Controller{
		gen:      gen,
		debounce: debounce,
		enabled:  enabled,
		onResult: onResult,
		persist:  persist,
	}
}

// Request records a new parameter state and (re)arms the debounce timer.
// While disabled, the latest state is still remembered so re-enabling can
// trigger an immediate generation.
func (c *Controller) Request(img transform.ImageRef, params transform.Parameters) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.img = img
	paramsCopy := params
	c.params = &paramsCopy

	if !c.enabled {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.fire)
}

// SetEnabled switches live preview on or off and persists the choice. When
// re-enabled with a valid parameter set on record, one generation fires
// immediately, skipping the debounce window.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()

	c.enabled = enabled
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	persist := c.persist

	fireNow := enabled && c.params != nil && c.params.Validate() == nil
	c.mu.Unlock()

	if persist != nil {
		persist(enabled)
	}
	if fireNow {
		c.fire()
	}
}

// Enabled reports the current preference.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// fire snapshots the latest parameter state under a fresh sequence number and
// generates asynchronously. At most one generation can win: after it returns,
// the result is delivered only if its sequence is still the latest.
func (c *Controller) fire() {
	c.mu.Lock()
	if c.params == nil || !c.enabled {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	img := c.img
	params := *c.params
	c.mu.Unlock()

	go func() {
		image, err := c.gen.Generate(context.Background(), img, params)

		c.mu.Lock()
		stale := seq != c.seq
		onResult := c.onResult
		c.mu.Unlock()

		if stale {
			log.Debugf("[Preview] discarding stale preview %d (latest %d)", seq, c.latestSeq())
			return
		}
		if onResult != nil {
			onResult(Result{Seq: seq, Image: image, Err: err})
		}
	}()
}

func (c *Controller) latestSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
