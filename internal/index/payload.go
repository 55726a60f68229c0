package index

// Wire payloads exchanged with the scraper and sitemap-discovery
// collaborators. Field names follow the collaborator's JSON contract.

// ScrapeRequest identifies one page for the scraper service.
type ScrapeRequest struct {
	PageID int64  `json:"pageId"`
	URL    string `json:"url"`
}

// ScrapeResult is the per-URL outcome returned by the scraper. A populated
// Error means the crawl attempt for that URL failed.
type ScrapeResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`

	Links  []string `json:"links"`
	Images []string `json:"images"`

	Headers     map[string][]string `json:"headers"`
	OpenGraph   map[string]string   `json:"openGraph"`
	TwitterCard map[string]string   `json:"twitterCard"`

	Author    string `json:"author"`
	Language  string `json:"language"`
	Published string `json:"published"`
	Modified  string `json:"modified"`
	Canonical string `json:"canonical"`
	WordCount int    `json:"wordCount"`

	InternalLinkCount int `json:"internalLinkCount"`
	ExternalLinkCount int `json:"externalLinkCount"`

	Error string `json:"error"`
}

// SitemapData is the recursive sitemap tree returned by the discovery
// collaborator's /map endpoint.
type SitemapData struct {
	Location     string        `json:"location"`
	LastModified string        `json:"lastModified"`
	IsMapped     bool          `json:"isMapped"`
	SitemapIndex []SitemapData `json:"sitemapIndex"`
	URLSet       []URLData     `json:"urlSet"`
}

// URLData is one crawl target inside a SitemapData leaf.
type URLData struct {
	Location        string      `json:"location"`
	LastModified    string      `json:"lastModified"`
	ChangeFrequency string      `json:"changeFrequency"`
	Priority        *float64    `json:"priority"`
	Media           []MediaData `json:"media"`
}

// MediaData is a raw media record attached to a URLData. Type selects the
// concrete MediaEntry variant on ingest.
type MediaData struct {
	Type     string `json:"type"`
	Location string `json:"location"`

	// Video fields.
	ThumbnailLocation    string  `json:"thumbnailLocation"`
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	ContentLocation      string  `json:"contentLocation"`
	PlayerLocation       string  `json:"playerLocation"`
	Duration             string  `json:"duration"`
	Rating               float64 `json:"rating"`
	ViewCount            int64   `json:"viewCount"`
	PublicationDate      string  `json:"publicationDate"`
	Platform             string  `json:"platform"`
	RequiresSubscription bool    `json:"requiresSubscription"`
	Tag                  string  `json:"tag"`

	// News fields.
	Publication string `json:"publication"`
	Language    string `json:"language"`
}
