package preview_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trevall/carfolio/internal/pkg/cropgeom"
	"github.com/trevall/carfolio/internal/pkg/preview"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

const testDebounce = 20 * time.Millisecond

func validParams(height int) transform.Parameters {
	return transform.Parameters{
		Type: transform.TypeCanvasExtension,
		CanvasExtension: &transform.CanvasExtensionParams{
			DesiredHeight:  height,
			WhiteThreshold: transform.WhiteThresholdAuto,
		},
	}
}

// countingGenerator records every generation and can delay selected ones.
type countingGenerator struct {
	mu      sync.Mutex
	heights []int
	delays  map[int]time.Duration
}

func (g *countingGenerator) Generate(_ context.Context, _ transform.ImageRef, params transform.Parameters) (*transform.ProcessedImage, error) {
	h := params.CanvasExtension.DesiredHeight

	g.mu.Lock()
	g.heights = append(g.heights, h)
	delay := g.delays[h]
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return &transform.ProcessedImage{Dimensions: cropgeom.Dimensions{Width: 100, Height: h}}, nil
}

func (g *countingGenerator) calls() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.heights...)
}

type resultCollector struct {
	mu      sync.Mutex
	results []preview.Result
}

func (rc *resultCollector) collect(r preview.Result) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.results = append(rc.results, r)
}

func (rc *resultCollector) snapshot() []preview.Result {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]preview.Result(nil), rc.results...)
}

func TestBurstProducesExactlyOneGenerationWithLastState(t *testing.T) {
	gen := &countingGenerator{}
	rc := &resultCollector{}
	c := preview.NewController(gen, testDebounce, true, rc.collect, nil)

	// Slider burst: every change lands inside the debounce window.
	for _, h := range []int{1000, 1100, 1200, 1300} {
		c.Request(transform.ImageRef{ID: 1}, validParams(h))
		time.Sleep(testDebounce / 4)
	}

	time.Sleep(4 * testDebounce)
	require.Equal(t, []int{1300}, gen.calls(), "one generation, using the last state of the burst")

	results := rc.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, 1300, results[0].Image.Dimensions.Height)
}

func TestStaleResponseNeverOverwritesFresherOne(t *testing.T) {
	gen := &countingGenerator{delays: map[int]time.Duration{
		1000: 6 * testDebounce, // the old request is slow
	}}
	rc := &resultCollector{}
	c := preview.NewController(gen, testDebounce, true, rc.collect, nil)

	c.Request(transform.ImageRef{ID: 1}, validParams(1000))
	time.Sleep(2 * testDebounce) // let the slow generation start

	c.Request(transform.ImageRef{ID: 1}, validParams(2000))
	time.Sleep(10 * testDebounce)

	results := rc.snapshot()
	require.Len(t, results, 1, "the slow stale response must be discarded")
	assert.Equal(t, 2000, results[0].Image.Dimensions.Height)
}

func TestDisabledControllerGeneratesNothing(t *testing.T) {
	gen := &countingGenerator{}
	c := preview.NewController(gen, testDebounce, false, nil, nil)

	c.Request(transform.ImageRef{ID: 1}, validParams(1000))
	time.Sleep(3 * testDebounce)

	assert.Empty(t, gen.calls())
}

func TestReEnableFiresImmediatelyAndPersists(t *testing.T) {
	gen := &countingGenerator{}
	rc := &resultCollector{}

	var persisted []bool
	var persistMu sync.Mutex
	persist := func(on bool) {
		persistMu.Lock()
		defer persistMu.Unlock()
		persisted = append(persisted, on)
	}

	c := preview.NewController(gen, time.Hour, false, rc.collect, persist)

	// Parameter state is remembered even while disabled.
	c.Request(transform.ImageRef{ID: 1}, validParams(1500))
	c.SetEnabled(true)

	// Debounce is one hour: only the immediate re-enable path can fire.
	assert.Eventually(t, func() bool {
		return len(gen.calls()) == 1
	}, time.Second, 5*time.Millisecond)

	persistMu.Lock()
	assert.Equal(t, []bool{true}, persisted)
	persistMu.Unlock()
}

func TestReEnableWithoutValidParamsStaysQuiet(t *testing.T) {
	gen := &countingGenerator{}
	c := preview.NewController(gen, testDebounce, false, nil, nil)

	c.Request(transform.ImageRef{ID: 1}, transform.Parameters{Type: transform.TypeCrop})
	c.SetEnabled(false)
	c.SetEnabled(true)
	time.Sleep(3 * testDebounce)

	assert.Empty(t, gen.calls())
}
