// Package embedding talks to the sentence-embedding sidecar over HTTP and
// caches vectors per entry. The sidecar hosts the all-MiniLM family model;
// every failure surfaces as ErrEmbeddingService so the engine can degrade
// out of semantic scoring instead of failing the request.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// Client is an HTTP client for the embedding sidecar.
type Client struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates an embedding client with tuned connection pooling.
func NewClient(cfg config.EmbeddingConfig, requestTimeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 10, // default 2 causes connection churn under batch refresh
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		logger: logging.GetLogger("embedding.client"),
	}
}

// ModelID identifies the embedding model, used as part of cache keys and
// index snapshots so vectors from different models never mix.
func (c *Client) ModelID() string {
	return c.model
}

// Dimensions returns the expected vector width.
func (c *Client) Dimensions() int {
	return c.dimensions
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
}

// Embed returns one unit-normalized vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embedRequest{Texts: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/embed", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	// Always read the body to completion for connection reuse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", models.ErrEmbeddingService, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("embedding request failed: status=%d body=%s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", models.ErrEmbeddingService, resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", models.ErrEmbeddingService, err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d",
			models.ErrEmbeddingService, len(texts), len(parsed.Embeddings))
	}

	for i, vec := range parsed.Embeddings {
		if len(vec) != c.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				models.ErrEmbeddingService, i, len(vec), c.dimensions)
		}
		normalize(vec)
	}
	return parsed.Embeddings, nil
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Ping checks sidecar liveness.
func (c *Client) Ping(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", models.ErrEmbeddingService, resp.StatusCode)
	}
	return nil
}

// normalize scales a vector to unit length in place, so cosine similarity
// reduces to a dot product at search time. Zero vectors are left untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
