// Package client is a thin HTTP client for the RCA API, used by the MCP
// tools to run analyses against a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

const (
	pingAttempts   = 5
	pingBackoffMin = 500 * time.Millisecond
	pingBackoffMax = 4 * time.Second
)

// Client handles communication with the RCA API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the RCA API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Analyze runs one analysis request.
func (c *Client) Analyze(ctx context.Context, p AnalyzeParams) (*models.RCAReport, error) {
	body := analyzeRequest{Query: p.Query, Mode: p.Mode}
	if p.From != "" || p.To != "" {
		body.Window = &windowRequest{From: p.From, To: p.To}
	}

	var report models.RCAReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyze", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// RefreshIndex reloads the server's corpus and rebuilds the semantic index.
func (c *Client) RefreshIndex(ctx context.Context) (*RefreshResult, error) {
	var result RefreshResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/index/refresh", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CorpusStats fetches composition counts for the loaded corpus.
func (c *Client) CorpusStats(ctx context.Context) (*corpus.Stats, error) {
	var stats corpus.Stats
	if err := c.do(ctx, http.MethodGet, "/api/v1/corpus/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Ping checks that the RCA API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// PingWithRetry pings until the API answers, backing off between attempts.
// Covers the window where the server container is still starting.
func (c *Client) PingWithRetry(ctx context.Context, logger *logging.Logger) error {
	backoff := pingBackoffMin
	var lastErr error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		lastErr = c.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}
		if logger != nil {
			logger.Warn("rca api not ready (attempt %d/%d), retrying in %s: %v",
				attempt, pingAttempts, backoff, lastErr)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last ping error: %v)", ctx.Err(), lastErr)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, pingBackoffMax)
	}
	return fmt.Errorf("rca api unreachable at %s after %d attempts: %w", c.baseURL, pingAttempts, lastErr)
}

// do sends one request and decodes the response into out when non-nil.
// Non-200 responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rca api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var payload errorPayload
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
