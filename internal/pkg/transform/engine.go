package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trevall/carfolio/internal/pkg/env"
)

// ProcessRequest is the wire request for a single engine invocation.
// ProcessingURL must already point at the pristine source rendition;
// callers resolve it through cdnurl.ToProcessingURL first.
type ProcessRequest struct {
	ProcessingURL string                 `json:"processing_url"`
	Params        map[string]interface{} `json:"params"`
	// Upload controls whether the engine persists the result to the
	// delivery network. False for preview-only round trips.
	Upload bool `json:"upload_to_cloudflare"`
}

// ProcessResponse mirrors the engine's reply.
type ProcessResponse struct {
	ResultURL  string `json:"result_url"`
	UploadedID string `json:"uploaded_id,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Error      string `json:"error,omitempty"`
}

// Engine is the remote processing service. Its pixel algorithms are out of
// scope here; we only own the invocation contract.
type Engine interface {
	// Process runs a transform. Given identical parameters the preview path
	// (Upload=false) is idempotent on the engine side.
	Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error)
	// CacheSource asks the engine to stage the source bytes for low-latency
	// local preview generation and returns an opaque cache token.
	CacheSource(ctx context.Context, imageURL string) (string, error)
}

// HTTPEngine talks to the processing service over its JSON API.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine builds an engine client from the environment, matching the
// service addressed by PROCESSING_API_URL.
func NewHTTPEngine() *HTTPEngine {
	return &HTTPEngine{
		baseURL: env.GetEnv("PROCESSING_API_URL", "http://localhost:8090"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *HTTPEngine) Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build process request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &RemoteProcessingError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteProcessingError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var out ProcessResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &RemoteProcessingError{StatusCode: resp.StatusCode, Message: "unparseable engine response"}
	}

	if resp.StatusCode != http.StatusOK || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = string(data)
		}
		return nil, &RemoteProcessingError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &out, nil
}

func (e *HTTPEngine) CacheSource(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/cache", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build cache request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", &RemoteProcessingError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var out struct {
		CachedPath string `json:"cached_path"`
		Error      string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RemoteProcessingError{StatusCode: resp.StatusCode, Message: "unparseable engine response"}
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return "", &RemoteProcessingError{StatusCode: resp.StatusCode, Message: out.Error}
	}

	return out.CachedPath, nil
}
