// Package index defines core types shared across subsystems.
package index

import (
	"strings"
	"time"
)

// ChangeFrequency is the sitemap-declared update cadence of a URL.
type ChangeFrequency string

// Change frequency values from the sitemap vocabulary.
const (
	FreqAlways  ChangeFrequency = "always"
	FreqHourly  ChangeFrequency = "hourly"
	FreqDaily   ChangeFrequency = "daily"
	FreqWeekly  ChangeFrequency = "weekly"
	FreqMonthly ChangeFrequency = "monthly"
	FreqYearly  ChangeFrequency = "yearly"
	FreqUnknown ChangeFrequency = "unknown"
)

// ParseChangeFrequency maps a raw sitemap string onto the fixed vocabulary.
// Unrecognized values become FreqUnknown, never an error.
func ParseChangeFrequency(raw string) ChangeFrequency {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "always":
		return FreqAlways
	case "hourly":
		return FreqHourly
	case "daily":
		return FreqDaily
	case "weekly":
		return FreqWeekly
	case "monthly":
		return FreqMonthly
	case "yearly":
		return FreqYearly
	default:
		return FreqUnknown
	}
}

// DefaultPriority is assumed for URL entries that carry no priority value.
const DefaultPriority = 0.5

// Website is one entry per distinct host. Host is a case-insensitive dedup key.
type Website struct {
	ID   int64
	Host string
}

// Sitemap is a node in a recursive sitemap tree. A node with Children is an
// index document; a node with URLs is a leaf document. Both may be empty
// after a failed fetch, in which case IsMapped stays false.
type Sitemap struct {
	ID           int64
	WebsiteID    int64
	ParentID     *int64
	Location     string
	LastModified *time.Time
	IsMapped     bool
	Children     []*Sitemap
	URLs         []URLEntry
}

// URLCount returns the total number of URL entries reachable from this node.
func (s *Sitemap) URLCount() int {
	n := len(s.URLs)
	for _, child := range s.Children {
		n += child.URLCount()
	}
	return n
}

// URLEntry is one crawl target discovered in a sitemap leaf.
type URLEntry struct {
	ID           int64
	Location     string
	LastModified *time.Time
	ChangeFreq   ChangeFrequency
	Priority     float64
	Media        []MediaEntry
}

// MediaType discriminates the MediaEntry variants.
type MediaType string

// Media entry variants.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaNews  MediaType = "news"
)

// MediaEntry is a tagged variant over image, video and news sitemap records.
// Exactly one payload pointer is non-nil, matching Type.
type MediaEntry struct {
	ID       int64
	Type     MediaType
	Location string
	Video    *VideoMedia
	News     *NewsMedia
}

// VideoMedia holds the video-specific sitemap fields.
type VideoMedia struct {
	ThumbnailLocation    string
	Title                string
	Description          string
	ContentLocation      string
	PlayerLocation       string
	Duration             time.Duration
	Rating               float64
	ViewCount            int64
	PublicationDate      *time.Time
	Platform             string
	RequiresSubscription bool
	Tag                  string
}

// NewsMedia holds the news-specific sitemap fields.
type NewsMedia struct {
	Publication     string
	PublicationDate *time.Time
	Language        string
	Title           string
}

// Page is the crawl unit: one per (website, normalized URL) pair.
type Page struct {
	ID               int64
	WebsiteID        int64
	URL              string
	Priority         float64
	LastCrawlAttempt *time.Time
	LastCrawled      *time.Time
	CrawlAttempts    int
	Content          *Content
}

// Content is the extracted document body for a Page.
type Content struct {
	ID          int64
	PageID      int64
	Title       string
	Description string
	Text        string
	ContentHash string

	Author       string
	Language     string
	WordCount    int
	CanonicalURL string
	PublishedAt  *time.Time
	ModifiedAt   *time.Time

	HeadersJSON     string
	OpenGraphJSON   string
	TwitterCardJSON string

	InternalLinkCount int
	ExternalLinkCount int

	LastScraped *time.Time
	Embeddings  []Embedding
}

// SparseVector is a high-dimensional, mostly-zero vector keyed by dimension.
type SparseVector map[int32]float32

// Embedding is one embedded chunk of a Content's filtered token stream.
type Embedding struct {
	ID        int64
	ContentID int64
	ChunkHash string
	Dense     []float32
	Sparse    SparseVector
}

// Word is one distinct vocabulary token with an optional sparse vector.
type Word struct {
	ID           int64
	Text         string
	SparseVector SparseVector
}

// NormalizeHost lowercases and trims a host for use as a dedup key.
func NormalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
