// Package llm implements the backend adapter layer: it builds
// dialect-specific requests from the agent profile, the conversation
// history and the new user turn, performs the call over an opaque
// transport, and normalizes the response. Transport and protocol
// failures never escape as errors; they either trigger the single
// dialect fallback or become user-visible assistant text.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport is the opaque HTTP request/response primitive the adapter
// layer runs on. It posts a JSON body to a path under the backend base
// URL and returns the raw response body.
type Transport interface {
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
}

// HTTPTransport implements Transport over net/http with a static
// bearer credential.
type HTTPTransport struct {
	baseURL  string
	apiKey   string
	siteURL  string
	siteName string
	client   *http.Client
	logger   *zap.Logger
}

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	BaseURL  string
	APIKey   string
	SiteURL  string // optional referer header for provider rankings
	SiteName string // optional app name header
	Timeout  time.Duration
}

// NewHTTPTransport creates a transport for the given backend.
func NewHTTPTransport(cfg HTTPTransportConfig, logger *zap.Logger) *HTTPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &HTTPTransport{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		siteURL:  cfg.SiteURL,
		siteName: cfg.SiteName,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Post sends one JSON POST and returns the response body. Any non-2xx
// status is an error carrying a snippet of the response for diagnosis.
func (t *HTTPTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	if t.siteURL != "" {
		req.Header.Set("HTTP-Referer", t.siteURL)
	}
	if t.siteName != "" {
		req.Header.Set("X-Title", t.siteName)
	}

	start := time.Now()
	t.logger.Debug("backend request",
		zap.String("request_id", requestID),
		zap.String("path", path),
		zap.Int("body_bytes", len(body)))

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug("backend request failed",
			zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	t.logger.Debug("backend response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, snippet(respBody))
	}
	return respBody, nil
}

// snippet truncates a response body for inclusion in error text.
func snippet(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
