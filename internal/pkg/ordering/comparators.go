package ordering

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trevall/carfolio/app/models"
)

// Criterion selects the image attribute a sorted gallery is ordered by.
type Criterion string

const (
	ByFileName   Criterion = models.GallerySortByFileName
	ByCapturedAt Criterion = models.GallerySortByCapturedAt
	ByUploadedAt Criterion = models.GallerySortByUploadedAt
	ByMetadata   Criterion = models.GallerySortByMetadata
)

// Direction of a sorted-mode ordering.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// sortImages orders images by the criterion, stable so equal keys keep their
// relative position. Filename-like fields use locale-aware collation with
// numeric-aware tie-breaking ("IMG_2.jpg" before "IMG_10.jpg"); date fields
// compare chronologically; categorical metadata compares as plain strings.
func sortImages(images []models.Image, criterion Criterion, direction Direction, metadataKey string) {
	// A collator is not safe for concurrent use, so build one per sort pass.
	coll := collate.New(language.English, collate.Numeric, collate.IgnoreCase)

	cmp := func(a, b *models.Image) int {
		switch criterion {
		case ByCapturedAt:
			return compareTimes(a, b, coll)
		case ByUploadedAt:
			switch {
			case a.CreatedAt.Before(b.CreatedAt):
				return -1
			case a.CreatedAt.After(b.CreatedAt):
				return 1
			}
			return coll.CompareString(a.FileName, b.FileName)
		case ByMetadata:
			av := a.MetadataMap()[metadataKey]
			bv := b.MetadataMap()[metadataKey]
			if c := strings.Compare(av, bv); c != 0 {
				return c
			}
			return coll.CompareString(a.FileName, b.FileName)
		default: // ByFileName
			return coll.CompareString(a.FileName, b.FileName)
		}
	}

	sort.SliceStable(images, func(i, j int) bool {
		c := cmp(&images[i], &images[j])
		if direction == Desc {
			return c > 0
		}
		return c < 0
	})
}

// compareTimes orders by capture date; images without one sort after those
// that have one, regardless of direction handling above.
func compareTimes(a, b *models.Image, coll *collate.Collator) int {
	switch {
	case a.CapturedAt == nil && b.CapturedAt == nil:
		return coll.CompareString(a.FileName, b.FileName)
	case a.CapturedAt == nil:
		return 1
	case b.CapturedAt == nil:
		return -1
	case a.CapturedAt.Before(*b.CapturedAt):
		return -1
	case a.CapturedAt.After(*b.CapturedAt):
		return 1
	}
	return coll.CompareString(a.FileName, b.FileName)
}
