// Package spider is the HTTP client for the page-fetching collaborator.
// The collaborator fetches and extracts pages; this service only schedules
// and indexes.
package spider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
)

// Config tunes the spider client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	return c
}

// Client talks to the spider's /scrape and /map endpoints. Any non-2xx
// response or transport failure surfaces as an error; per-URL failures come
// back inside the result payload instead.
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
		return nil, fmt.Errorf("spider base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid spider base url: %w", err)
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

// Scrape submits the whole batch in one request and returns one result per
// reachable URL.
func (c *Client) Scrape(ctx context.Context, reqs []index.ScrapeRequest) ([]index.ScrapeResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	var results []index.ScrapeResult
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		results = nil
		return c.postJSON(ctx, "/scrape", reqs, &results)
	})
	if err != nil {
		return nil, fmt.Errorf("scraping batch of %d: %w", len(reqs), err)
	}
	return results, nil
}

// DiscoverSitemap asks the spider to walk a site's sitemap graph and return
// the raw recursive description.
func (c *Client) DiscoverSitemap(ctx context.Context, siteURL string) (index.SitemapData, error) {
	var data index.SitemapData
	payload := map[string]string{"url": siteURL}
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		data = index.SitemapData{}
		return c.postJSON(ctx, "/map", payload, &data)
	})
	if err != nil {
		return index.SitemapData{}, fmt.Errorf("discovering sitemap for %s: %w", siteURL, err)
	}
	return data, nil
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

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling spider: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spider returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
