package cdnurl

import (
	"fmt"
	"net/url"
	"strings"
)

// The delivery network serves every stored image under a multi-segment path:
//
//	https://<host>/cdn-cgi/imagedelivery/<account>/<image-id>/<variant>
//
// where <variant> is either a named rendition ("public", "thumbnail", ...) or
// a numeric transform token like "w=1080,q=85". Resolving a URL for a new
// width/quality means swapping that final segment, never appending to it.
const deliveryPathMarker = "/cdn-cgi/imagedelivery/"

// OriginalVariant is the canonical token for the untouched source bytes.
// Processing engines must always read this rendition, regardless of what
// variant the UI happens to be displaying.
const OriginalVariant = "original"

// IsDeliveryURL reports whether raw points into the delivery network's
// recognizable path shape (marker plus account, image id and variant segment).
func IsDeliveryURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	idx := strings.Index(u.Path, deliveryPathMarker)
	if idx < 0 {
		return false
	}
	rest := strings.Trim(u.Path[idx+len(deliveryPathMarker):], "/")
	return len(strings.Split(rest, "/")) >= 3
}

// Resolve derives the delivery URL for the requested width/quality by
// replacing the final variant segment with a "w=<width>,q=<quality>" token.
// Zero values omit the respective parameter; if both are zero, or the URL is
// not a delivery-network URL, raw is returned unchanged. Resolve is pure and
// idempotent: resolving an already-resolved URL yields the same URL.
func Resolve(raw string, width, quality int) string {
	if !IsDeliveryURL(raw) {
		return raw
	}
	if width <= 0 && quality <= 0 {
		return raw
	}

	var parts []string
	if width > 0 {
		parts = append(parts, fmt.Sprintf("w=%d", width))
	}
	if quality > 0 {
		parts = append(parts, fmt.Sprintf("q=%d", quality))
	}

	return replaceVariantSegment(raw, strings.Join(parts, ","))
}

// ToProcessingURL strips any variant or transform suffix and substitutes the
// canonical original token so the processing engine receives full-fidelity
// source bytes. Non-delivery URLs pass through unchanged.
func ToProcessingURL(raw string) string {
	if !IsDeliveryURL(raw) {
		return raw
	}
	return replaceVariantSegment(raw, OriginalVariant)
}

// replaceVariantSegment swaps the last path segment for token, preserving
// scheme, host and query untouched.
func replaceVariantSegment(raw, token string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	trimmed := strings.TrimRight(u.Path, "/")
	slash := strings.LastIndex(trimmed, "/")
	if slash < 0 {
		return raw
	}
	u.Path = trimmed[:slash+1] + token
	return u.String()
}
