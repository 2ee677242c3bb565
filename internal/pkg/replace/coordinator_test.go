package replace

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

type fakeUploader struct {
	mu      sync.Mutex
	calls   int32
	delay   time.Duration
	err     error
	nextID  uint
	lastURL string
}

func (u *fakeUploader) Upload(_ context.Context, source transform.ImageRef, _ *transform.ProcessedImage) (*models.Image, error) {
	atomic.AddInt32(&u.calls, 1)
	if u.delay > 0 {
		time.Sleep(u.delay)
	}
	if u.err != nil {
		return nil, u.err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextID++
	u.lastURL = source.URL
	return &models.Image{ID: 1000 + u.nextID, DeliveryURL: "https://media.example.com/cdn-cgi/imagedelivery/AbC123/new/public"}, nil
}

type fakeSwapper struct {
	calls int32
	err   error
}

func (s *fakeSwapper) ReplaceImage(_, _, _ uint) error {
	atomic.AddInt32(&s.calls, 1)
	return s.err
}

type fakeVerifier struct {
	calls    int32
	failures int32 // fail this many probes before succeeding
}

func (v *fakeVerifier) Verify(context.Context, string) error {
	n := atomic.AddInt32(&v.calls, 1)
	if n <= atomic.LoadInt32(&v.failures) {
		return errors.New("cdn not caught up")
	}
	return nil
}

func newTestCoordinator(u *fakeUploader, s *fakeSwapper, v *fakeVerifier) *Coordinator {
	c := NewCoordinator(u, s, v)
	c.Lockout = 100 * time.Millisecond
	c.RetryDelay = 5 * time.Millisecond
	return c
}

func processed() *transform.ProcessedImage {
	return &transform.ProcessedImage{SourceImageID: 5, ResultURL: "https://engine/result"}
}

func TestCommitHappyPath(t *testing.T) {
	u, s, v := &fakeUploader{}, &fakeSwapper{}, &fakeVerifier{}
	c := newTestCoordinator(u, s, v)

	res, err := c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	require.NoError(t, err)
	assert.Equal(t, uint(5), res.OriginalImageID)
	assert.NotNil(t, res.NewImage)
	assert.Empty(t, res.Warning)
	assert.Equal(t, StateDone, c.StateOf(7, 5))
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.calls))
}

func TestConcurrentCommitOnSamePairIsRejected(t *testing.T) {
	u := &fakeUploader{delay: 50 * time.Millisecond}
	s, v := &fakeSwapper{}, &fakeVerifier{}
	c := newTestCoordinator(u, s, v)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
		}(i)
	}
	wg.Wait()

	var rejections int
	for _, err := range errs {
		if errors.Is(err, ErrCommitInProgress) || errors.Is(err, ErrCommitLockedOut) {
			rejections++
		}
	}
	assert.Equal(t, 1, rejections, "exactly one of the two commits must be rejected")
	assert.EqualValues(t, 1, atomic.LoadInt32(&u.calls), "exactly one upload")
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.calls), "exactly one swap")
}

func TestLockoutOutlivesAresolvedCommit(t *testing.T) {
	u, s, v := &fakeUploader{}, &fakeSwapper{}, &fakeVerifier{}
	c := newTestCoordinator(u, s, v)

	_, err := c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	require.NoError(t, err)

	// The first commit has resolved, but the lockout window has not elapsed.
	_, err = c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	assert.ErrorIs(t, err, ErrCommitLockedOut)

	time.Sleep(c.Lockout + 10*time.Millisecond)
	_, err = c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	assert.NoError(t, err, "a new attempt is allowed once the lockout elapses")
}

func TestDifferentPairsInterleaveFreely(t *testing.T) {
	u, s, v := &fakeUploader{delay: 20 * time.Millisecond}, &fakeSwapper{}, &fakeVerifier{}
	c := newTestCoordinator(u, s, v)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed()) }()
	go func() { defer wg.Done(); _, errs[1] = c.Commit(context.Background(), 7, 6, transform.ImageRef{ID: 6}, processed()) }()
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestUploadFailureLeavesNoPartialMutation(t *testing.T) {
	u := &fakeUploader{err: errors.New("bucket unavailable")}
	s, v := &fakeSwapper{}, &fakeVerifier{}
	c := newTestCoordinator(u, s, v)

	_, err := c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.EqualValues(t, 0, atomic.LoadInt32(&s.calls), "no swap after a failed upload")
	assert.Equal(t, StateFailed, c.StateOf(7, 5))
}

func TestSwapFailureIsReportedDistinctly(t *testing.T) {
	u := &fakeUploader{}
	s := &fakeSwapper{err: errors.New("deadlock")}
	v := &fakeVerifier{}
	c := newTestCoordinator(u, s, v)

	_, err := c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	var serr *SwapError
	require.ErrorAs(t, err, &serr)
	assert.NotZero(t, serr.NewImageID, "the orphaned asset identity is surfaced for reconciliation")
}

func TestVerificationFailureIsSoftWarning(t *testing.T) {
	u, s := &fakeUploader{}, &fakeSwapper{}
	v := &fakeVerifier{failures: 10} // every probe fails
	c := newTestCoordinator(u, s, v)

	res, err := c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	require.NoError(t, err, "a failed probe must not fail a committed swap")
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, StateDone, c.StateOf(7, 5))
	assert.EqualValues(t, 2, atomic.LoadInt32(&v.calls), "one retry after the first failed probe")
}

func TestVerificationRetriesOnceThenSucceeds(t *testing.T) {
	u, s := &fakeUploader{}, &fakeSwapper{}
	v := &fakeVerifier{failures: 1}
	c := newTestCoordinator(u, s, v)

	res, err := c.Commit(context.Background(), 7, 5, transform.ImageRef{ID: 5}, processed())
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
}
