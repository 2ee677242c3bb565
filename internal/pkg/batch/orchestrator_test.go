package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trevall/carfolio/internal/pkg/replace"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// fakePreviewer fails the images whose IDs appear in failIDs and records the
// time window of every call so sequencing can be asserted.
type fakePreviewer struct {
	mu      sync.Mutex
	order   []uint
	windows [][2]time.Time
	failIDs map[uint]bool
	delay   time.Duration
}

func (p *fakePreviewer) Preview(_ context.Context, img transform.ImageRef, _ transform.Parameters) (*transform.ProcessedImage, error) {
	start := time.Now()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	p.order = append(p.order, img.ID)
	p.windows = append(p.windows, [2]time.Time{start, time.Now()})
	p.mu.Unlock()

	if p.failIDs[img.ID] {
		return nil, &transform.RemoteProcessingError{Message: "engine rejected image"}
	}
	return &transform.ProcessedImage{SourceImageID: img.ID, ResultURL: "preview"}, nil
}

type fakeCommitter struct {
	mu      sync.Mutex
	order   []uint
	failIDs map[uint]bool
}

func (c *fakeCommitter) Commit(_ context.Context, _, originalImageID uint, _ transform.ImageRef, _ *transform.ProcessedImage) (*replace.Result, error) {
	c.mu.Lock()
	c.order = append(c.order, originalImageID)
	c.mu.Unlock()
	if c.failIDs[originalImageID] {
		return nil, errors.New("swap deadlock")
	}
	return &replace.Result{OriginalImageID: originalImageID}, nil
}

func selection(n int) []transform.ImageRef {
	images := make([]transform.ImageRef, n)
	for i := range images {
		images[i] = transform.ImageRef{ID: uint(i + 1), FileName: "car.jpg"}
	}
	return images
}

func params() transform.Parameters {
	return transform.Parameters{
		Type:            transform.TypeCanvasExtension,
		CanvasExtension: &transform.CanvasExtensionParams{DesiredHeight: 1200, WhiteThreshold: transform.WhiteThresholdAuto},
	}
}

func newTestOrchestrator(p Previewer, c Committer, r Recorder) *Orchestrator {
	o := NewOrchestrator(p, c, r)
	o.Pace = 5 * time.Millisecond
	return o
}

func TestBatchContinuesPastFailures(t *testing.T) {
	p := &fakePreviewer{failIDs: map[uint]bool{3: true}}
	o := newTestOrchestrator(p, &fakeCommitter{}, nil)

	summary := o.RunPreviews(context.Background(), selection(5), params())

	assert.Equal(t, 4, summary.Completed)
	assert.Equal(t, 1, summary.Errored)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, uint(3), summary.Failures[0].ImageID)
	assert.Contains(t, summary.Failures[0].Message, "engine rejected image")

	assert.Equal(t, []uint{1, 2, 3, 4, 5}, p.order, "all items attempted, in order, despite the failure")
	for _, item := range summary.Items {
		if item.Image.ID == 3 {
			assert.Equal(t, StatusError, item.Status)
		} else {
			assert.Equal(t, StatusCompleted, item.Status)
			assert.NotNil(t, item.Preview)
		}
	}
}

func TestBatchIsStrictlySequentialWithPacing(t *testing.T) {
	p := &fakePreviewer{delay: 2 * time.Millisecond}
	o := newTestOrchestrator(p, &fakeCommitter{}, nil)
	o.Pace = 15 * time.Millisecond

	o.RunPreviews(context.Background(), selection(3), params())

	require.Len(t, p.windows, 3)
	for i := 1; i < len(p.windows); i++ {
		assert.False(t, p.windows[i][0].Before(p.windows[i-1][1]),
			"item %d started before item %d finished", i, i-1)
		gap := p.windows[i][0].Sub(p.windows[i-1][1])
		assert.GreaterOrEqual(t, gap, 10*time.Millisecond, "pacing delay between items %d and %d", i-1, i)
	}
}

func TestReplacePassOnlyTouchesCompletedItems(t *testing.T) {
	c := &fakeCommitter{}
	o := newTestOrchestrator(&fakePreviewer{}, c, nil)

	items := []Item{
		{Image: transform.ImageRef{ID: 1}, Status: StatusCompleted, Preview: &transform.ProcessedImage{}},
		{Image: transform.ImageRef{ID: 2}, Status: StatusError, Error: "failed earlier"},
		{Image: transform.ImageRef{ID: 3}, Status: StatusCompleted, Preview: &transform.ProcessedImage{}},
		{Image: transform.ImageRef{ID: 4}, Status: StatusPending},
	}

	summary := o.ReplaceCompleted(context.Background(), 7, items)

	assert.Equal(t, []uint{1, 3}, c.order)
	assert.Equal(t, 2, summary.Completed)
	assert.Zero(t, summary.Errored)
}

func TestReplacePassRecordsPartialFailures(t *testing.T) {
	c := &fakeCommitter{failIDs: map[uint]bool{3: true}}
	o := newTestOrchestrator(&fakePreviewer{}, c, nil)

	items := []Item{
		{Image: transform.ImageRef{ID: 1}, Status: StatusCompleted, Preview: &transform.ProcessedImage{}},
		{Image: transform.ImageRef{ID: 3}, Status: StatusCompleted, Preview: &transform.ProcessedImage{}},
		{Image: transform.ImageRef{ID: 5}, Status: StatusCompleted, Preview: &transform.ProcessedImage{}},
	}

	summary := o.ReplaceCompleted(context.Background(), 7, items)

	assert.Equal(t, []uint{1, 3, 5}, c.order, "failure must not abort the pass")
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Errored)
}

func TestRecorderSeesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	type record struct {
		imageID uint
		status  ItemStatus
	}
	var records []record
	recorder := func(_ string, imageID uint, status ItemStatus, _ string) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, record{imageID, status})
	}

	p := &fakePreviewer{failIDs: map[uint]bool{2: true}}
	o := newTestOrchestrator(p, &fakeCommitter{}, recorder)

	o.RunPreviews(context.Background(), selection(2), params())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []record{
		{1, StatusProcessing}, {1, StatusCompleted},
		{2, StatusProcessing}, {2, StatusError},
	}, records)
}

func TestCancellationLeavesRemainingItemsPending(t *testing.T) {
	p := &fakePreviewer{}
	o := newTestOrchestrator(p, &fakeCommitter{}, nil)
	o.Pace = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	summary := o.RunPreviews(ctx, selection(3), params())

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, StatusPending, summary.Items[1].Status)
	assert.Equal(t, StatusPending, summary.Items[2].Status)
}
