// Package search ranks indexed pages against free-text queries by blending
// dense vector distance, sparse vector distance and keyword presence.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
	"github.com/websearch/indexd/internal/metrics"
)

// queryPattern accepts letters, digits, whitespace and basic punctuation.
// Anything else is rejected before the query reaches the embedder or store.
var queryPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\,\!\?\']+$`)

// Weights blends the three similarity signals into one composite distance.
// Lower composite values rank higher.
type Weights struct {
	Dense   float64
	Sparse  float64
	Keyword float64
}

// DefaultWeights returns the standard signal blend.
func DefaultWeights() Weights {
	return Weights{Dense: 0.3, Sparse: 0.3, Keyword: 0.4}
}

// Config tunes the ranking engine.
type Config struct {
	Weights Weights
	// MaxDistance is the sentinel used when a candidate has no distance of a
	// given kind, and the store-side retrieval cutoff.
	MaxDistance     float64
	DefaultPageSize int
	MaxPageSize     int
}

func (c Config) withDefaults() Config {
	zero := Weights{}
	if c.Weights == zero {
		c.Weights = DefaultWeights()
	}
	if c.MaxDistance <= 0 {
		c.MaxDistance = 2.0
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 25
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	return c
}

// Request is one search invocation.
type Request struct {
	Query    string
	PageSize int
	Page     int
	Site     string
}

// Result is one ranked hit.
type Result struct {
	PageID      int64   `json:"pageId"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Response is a ranked, paginated result set.
type Response struct {
	Query      string   `json:"query"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalHits  int      `json:"totalHits"`
	TotalPages int      `json:"totalPages"`
	Results    []Result `json:"results"`
}

// Engine retrieves candidates and scores them with the composite distance.
type Engine struct {
	store    index.SearchStore
	embedder index.Embedder
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Engine.
func New(store index.SearchStore, embedder index.Embedder, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// ValidateQuery rejects empty or out-of-alphabet queries with typed errors.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return index.ErrEmptyQuery
	}
	if !queryPattern.MatchString(q) {
		return index.ErrInvalidQuery
	}
	return nil
}

// Search validates, vectorizes, retrieves and ranks in one pass.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if err := ValidateQuery(req.Query); err != nil {
		metrics.ObserveSearch("invalid", time.Since(start))
		return Response{}, err
	}
	query := strings.TrimSpace(req.Query)

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = e.cfg.DefaultPageSize
	}
	if pageSize > e.cfg.MaxPageSize {
		pageSize = e.cfg.MaxPageSize
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	dense, err := e.embedder.EmbedDense(ctx, query)
	if err != nil {
		metrics.ObserveSearch("error", time.Since(start))
		return Response{}, fmt.Errorf("embedding query: %w", err)
	}
	sparse, err := e.embedder.EmbedSparse(ctx, query)
	if err != nil {
		metrics.ObserveSearch("error", time.Since(start))
		return Response{}, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := e.store.Candidates(ctx, index.CandidateQuery{
		Query:       query,
		Dense:       dense,
		Sparse:      sparse,
		MaxDistance: e.cfg.MaxDistance,
		Site:        req.Site,
	})
	if err != nil {
		metrics.ObserveSearch("error", time.Since(start))
		return Response{}, fmt.Errorf("retrieving candidates: %w", err)
	}

	ranked := e.rank(candidates)
	resp := paginate(ranked, page, pageSize)
	resp.Query = query

	metrics.ObserveSearch("ok", time.Since(start))
	e.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("hits", resp.TotalHits),
	)
	return resp, nil
}

type scored struct {
	result Result
	dense  float64
}

// rank computes the composite distance per candidate and orders ascending.
// A candidate missing a distance kind is charged the max-distance sentinel
// for that kind; a keyword match zeroes the keyword penalty.
func (e *Engine) rank(candidates []index.Candidate) []scored {
	w := e.cfg.Weights
	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		dense := minOr(c.DenseDistances, e.cfg.MaxDistance)
		sparse := minOr(c.SparseDistances, e.cfg.MaxDistance)
		keyword := w.Keyword
		if c.KeywordMatch {
			keyword = 0
		}
		score := dense*w.Dense + sparse*w.Sparse + keyword
		out = append(out, scored{
			result: Result{
				PageID:      c.PageID,
				URL:         c.URL,
				Title:       c.Title,
				Description: c.Description,
				Score:       score,
			},
			dense: dense,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].result.Score != out[j].result.Score {
			return out[i].result.Score < out[j].result.Score
		}
		return out[i].dense < out[j].dense
	})
	return out
}

func paginate(ranked []scored, page, pageSize int) Response {
	total := len(ranked)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	results := make([]Result, 0, end-start)
	for _, s := range ranked[start:end] {
		results = append(results, s.result)
	}
	return Response{
		Page:       page,
		PageSize:   pageSize,
		TotalHits:  total,
		TotalPages: totalPages,
		Results:    results,
	}
}

func minOr(distances []float64, sentinel float64) float64 {
	min := sentinel
	for _, d := range distances {
		if d < min {
			min = d
		}
	}
	return min
}
