package index

import (
	"context"
	"time"
)

// WebsiteStore persists website rows keyed by normalized host.
type WebsiteStore interface {
	FindOrCreate(ctx context.Context, host string) (Website, error)
	NeedingSitemap(ctx context.Context, staleBefore time.Time, limit int) ([]Website, error)
	SaveSitemap(ctx context.Context, websiteID int64, root *Sitemap) error
}

// PageStore persists crawl units and their crawl history.
type PageStore interface {
	CreateFromURLEntries(ctx context.Context, websiteID int64, entries []URLEntry) (int, error)
	// CrawlCandidates returns pages that may be due for crawling, filtered by
	// the eligibility predicate and ordered by priority then staleness.
	CrawlCandidates(ctx context.Context, now time.Time, limit int) ([]Page, error)
	UpdateBatch(ctx context.Context, pages []Page) error
}

// ContentStore persists extracted bodies and their embeddings.
type ContentStore interface {
	// NeedingEmbedding returns contents with non-empty text whose embedding
	// set is empty or stale, paged by a stable offset cursor.
	NeedingEmbedding(ctx context.Context, limit, offset int) ([]Content, error)
	UpdateBatch(ctx context.Context, contents []Content) error
}

// Candidate is one page retrieved for ranking, with the raw per-embedding
// distances computed by the store.
type Candidate struct {
	PageID          int64
	URL             string
	Title           string
	Description     string
	DenseDistances  []float64
	SparseDistances []float64
	KeywordMatch    bool
}

// CandidateQuery captures the vectorized search request handed to the store.
type CandidateQuery struct {
	Query       string
	Dense       []float32
	Sparse      SparseVector
	MaxDistance float64
	Site        string
}

// SearchStore retrieves ranking candidates by vector similarity or
// substring match.
type SearchStore interface {
	Candidates(ctx context.Context, q CandidateQuery) ([]Candidate, error)
}

// WordStore bulk-loads the vocabulary used by the content pipeline.
type WordStore interface {
	LoadAll(ctx context.Context) ([]Word, error)
}

// Scraper submits a batch of URLs to the page-fetcher collaborator.
type Scraper interface {
	Scrape(ctx context.Context, reqs []ScrapeRequest) ([]ScrapeResult, error)
}

// SitemapDiscoverer fetches the recursive sitemap description of a site.
type SitemapDiscoverer interface {
	DiscoverSitemap(ctx context.Context, siteURL string) (SitemapData, error)
}

// Embedder turns text into dense and sparse vectors. Implementations must
// fail on empty input rather than returning an empty vector.
type Embedder interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
	EmbedSparse(ctx context.Context, text string) (SparseVector, error)
}

// Vocabulary is a case-insensitive membership test over the dictionary.
type Vocabulary interface {
	Contains(word string) bool
}

// Hasher computes content digests used as staleness witnesses.
type Hasher interface {
	Hash(text string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
