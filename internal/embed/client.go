// Package embed is the HTTP client for the embedding collaborator. It
// speaks the OpenAI-compatible embeddings API for dense vectors and a
// parallel endpoint for sparse lexical vectors.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
)

// Config tunes the embedding client.
type Config struct {
	BaseURL     string
	APIKey      string
	DenseModel  string
	SparseModel string
	// Dimensions is the expected dense vector width. A mismatched response
	// is rejected so bad vectors never reach the store.
	Dimensions int
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.DenseModel == "" {
		c.DenseModel = "nomic-embed-text"
	}
	if c.SparseModel == "" {
		c.SparseModel = "splade-v3"
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 768
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Client calls the embedding service. Empty input fails loudly instead of
// producing a degenerate vector.
type Client struct {
	cfg    Config
	http   *http.Client
	retry  *index.RetryPolicy
	logger *zap.Logger
}

// NewClient constructs a Client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		retry:  index.NewRetryPolicy(),
		logger: logger,
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type denseResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type sparseResponse struct {
	Data []struct {
		Indices []int32   `json:"indices"`
		Values  []float32 `json:"values"`
	} `json:"data"`
}

// EmbedDense returns the dense vector for text.
func (c *Client) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, index.ErrEmptyEmbedInput
	}
	var out denseResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		out = denseResponse{}
		return c.postJSON(ctx, "/v1/embeddings", embeddingRequest{
			Model: c.cfg.DenseModel,
			Input: []string{text},
		}, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("dense embedding: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("dense embedding: empty response")
	}
	vec := out.Data[0].Embedding
	if len(vec) != c.cfg.Dimensions {
		return nil, fmt.Errorf("dense embedding: got %d dimensions, want %d", len(vec), c.cfg.Dimensions)
	}
	return vec, nil
}

// EmbedSparse returns the sparse lexical vector for text.
func (c *Client) EmbedSparse(ctx context.Context, text string) (index.SparseVector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, index.ErrEmptyEmbedInput
	}
	var out sparseResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		out = sparseResponse{}
		return c.postJSON(ctx, "/v1/sparse-embeddings", embeddingRequest{
			Model: c.cfg.SparseModel,
			Input: []string{text},
		}, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("sparse embedding: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("sparse embedding: empty response")
	}
	entry := out.Data[0]
	if len(entry.Indices) != len(entry.Values) {
		return nil, fmt.Errorf("sparse embedding: %d indices but %d values", len(entry.Indices), len(entry.Values))
	}
	vec := make(index.SparseVector, len(entry.Indices))
	for i, idx := range entry.Indices {
		vec[idx] = entry.Values[i]
	}
	return vec, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling embedder: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("embedder returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
