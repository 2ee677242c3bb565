package replace

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPVerifier probes a delivery URL with a cache-busting query parameter so
// a CDN edge cannot answer from a stale cached 404.
type HTTPVerifier struct {
	client *http.Client
}

func NewHTTPVerifier() *HTTPVerifier {
	return &HTTPVerifier{client: &http.Client{Timeout: 10 * time.Second}}
}

func (v *HTTPVerifier) Verify(ctx context.Context, url string) error {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	probeURL := url + sep + "cb=" + strconv.FormatInt(time.Now().UnixNano(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}
