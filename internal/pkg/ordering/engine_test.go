package ordering

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trevall/carfolio/app/models"
	"github.com/trevall/carfolio/app/repository"
)

// fakePersister records writes and can be told to fail the next one.
type fakePersister struct {
	writes   [][]repository.OrderEntry
	failNext bool
}

func (p *fakePersister) PersistOrder(_ uint, entries []repository.OrderEntry) error {
	if p.failNext {
		p.failNext = false
		return errors.New("connection reset")
	}
	p.writes = append(p.writes, append([]repository.OrderEntry(nil), entries...))
	return nil
}

func galleryImages() []models.Image {
	capture := func(s string) *time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return &t
	}
	return []models.Image{
		{ID: 1, FileName: "IMG_10.jpg", CapturedAt: capture("2026-03-01T10:00:00Z")},
		{ID: 2, FileName: "IMG_2.jpg", CapturedAt: capture("2026-03-02T10:00:00Z")},
		{ID: 3, FileName: "img_1.jpg", CapturedAt: capture("2026-03-01T09:00:00Z")},
	}
}

func ids(images []models.Image) []uint {
	out := make([]uint, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}

func TestReorderAppliesOptimisticallyAndPersists(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.Reorder(0, 2))
	assert.Equal(t, []uint{2, 3, 1}, ids(e.Images()))
	require.Len(t, p.writes, 1)
	assert.Equal(t, []repository.OrderEntry{{ImageID: 2, Order: 0}, {ImageID: 3, Order: 1}, {ImageID: 1, Order: 2}}, p.writes[0])
}

func TestRollbackTargetsLastPersistedOrder(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	// R1 succeeds: 1,2,3 -> 2,1,3
	require.NoError(t, e.Reorder(0, 1))
	require.Equal(t, []uint{2, 1, 3}, ids(e.Images()))

	// R2 fails: local state must equal R1's result, not the order before R1.
	p.failNext = true
	err := e.Reorder(0, 2)
	var perr *OrderPersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []uint{2, 1, 3}, ids(e.Images()), "rollback target is the last persisted state")
}

func TestReorderNoOpIsSuppressed(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.Reorder(1, 1))
	assert.Empty(t, p.writes, "no-op reorders must not hit the persistence layer")
}

func TestDragIsSilentNoOpInSortedMode(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.SetSortCriterion(ByFileName, Asc, ""))
	writesAfterSort := len(p.writes)

	require.NoError(t, e.Reorder(0, 2), "drag in sorted mode is a no-op, not an error")
	assert.Len(t, p.writes, writesAfterSort)
	assert.Equal(t, ModeSorted, e.Mode())
}

func TestSortByFileNameIsNumericAware(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.SetSortCriterion(ByFileName, Asc, ""))
	// Numeric-aware, case-insensitive: img_1 < IMG_2 < IMG_10.
	assert.Equal(t, []uint{3, 2, 1}, ids(e.Images()))

	require.NoError(t, e.SetSortCriterion(ByFileName, Desc, ""))
	assert.Equal(t, []uint{1, 2, 3}, ids(e.Images()))
}

func TestSortByCaptureDateIsChronological(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.SetSortCriterion(ByCapturedAt, Asc, ""))
	assert.Equal(t, []uint{3, 1, 2}, ids(e.Images()))
}

func TestRecomputingIdenticalOrderSuppressesWrite(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.SetSortCriterion(ByFileName, Asc, ""))
	writes := len(p.writes)

	// Same criterion again: same derived order, no redundant write.
	require.NoError(t, e.SetSortCriterion(ByFileName, Asc, ""))
	assert.Len(t, p.writes, writes)
}

func TestLeavingSortModeSnapshotsAsManualBaseline(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	require.NoError(t, e.SetSortCriterion(ByFileName, Asc, ""))
	sorted := ids(e.Images())

	require.NoError(t, e.SetManualMode())
	assert.Equal(t, ModeManual, e.Mode())
	assert.Equal(t, sorted, ids(e.Images()), "sorted order becomes the manual baseline")

	// Dragging works again and builds on the snapshot.
	require.NoError(t, e.Reorder(2, 0))
	assert.Equal(t, []uint{1, 3, 2}, ids(e.Images()))
}

func TestSortFailureRollsBackToPersistedOrder(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	p.failNext = true
	err := e.SetSortCriterion(ByFileName, Asc, "")
	var perr *OrderPersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []uint{1, 2, 3}, ids(e.Images()))
}

func TestReplaceImageKeepsPositionAndBaseline(t *testing.T) {
	p := &fakePersister{}
	e := NewEngine(7, p, galleryImages())

	e.ReplaceImage(2, models.Image{ID: 99, FileName: "IMG_2_extended.jpg"})
	assert.Equal(t, []uint{1, 99, 3}, ids(e.Images()))

	// The baseline tracked the swap: a follow-up no-op drag stays suppressed.
	require.NoError(t, e.Reorder(0, 0))
	assert.Empty(t, p.writes)
}

func TestMetadataCriterionComparesPlainStrings(t *testing.T) {
	images := []models.Image{
		{ID: 1, FileName: "a.jpg", Metadata: models.JSON(`{"tone":"matte"}`)},
		{ID: 2, FileName: "b.jpg", Metadata: models.JSON(`{"tone":"gloss"}`)},
		{ID: 3, FileName: "c.jpg", Metadata: models.JSON(`{"tone":"satin"}`)},
	}
	p := &fakePersister{}
	e := NewEngine(7, p, images)

	require.NoError(t, e.SetSortCriterion(ByMetadata, Asc, "tone"))
	assert.Equal(t, []uint{2, 1, 3}, ids(e.Images()))
}
