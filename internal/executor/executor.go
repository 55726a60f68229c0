// Package executor turns batches of due pages into updated content and
// crawl history.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
	"github.com/websearch/indexd/internal/metrics"
)

// Executor submits page batches to the scraper collaborator and merges the
// per-URL results back into page and content records.
type Executor struct {
	pages   index.PageStore
	scraper index.Scraper
	clock   index.Clock
	logger  *zap.Logger
}

// New constructs an Executor.
func New(pages index.PageStore, scraper index.Scraper, clock index.Clock, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		pages:   pages,
		scraper: scraper,
		clock:   clock,
		logger:  logger,
	}
}

// CrawlBatch scrapes the batch's URLs in one request and persists the
// merged outcome in one bulk update. Attempt bookkeeping always advances:
// a transport-level scraper failure marks every page attempted without
// touching content, so the batch becomes eligible again after the cool-down.
func (e *Executor) CrawlBatch(ctx context.Context, pages []index.Page) error {
	if len(pages) == 0 {
		return nil
	}
	now := e.clock.Now()

	reqs := make([]index.ScrapeRequest, 0, len(pages))
	for _, pg := range pages {
		if pg.URL == "" {
			e.logger.Error("page has no url", zap.Int64("page_id", pg.ID))
			continue
		}
		reqs = append(reqs, index.ScrapeRequest{PageID: pg.ID, URL: pg.URL})
	}

	results, err := e.scraper.Scrape(ctx, reqs)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("scraper unreachable, marking batch attempted", zap.Error(err))
		markAttempted(pages, now)
		metrics.ObserveCrawl("transport_error")
		return e.pages.UpdateBatch(ctx, pages)
	}

	resultsByURL := make(map[string]index.ScrapeResult, len(results))
	for _, res := range results {
		resultsByURL[res.URL] = res
	}

	for i := range pages {
		pg := &pages[i]
		res, ok := resultsByURL[pg.URL]
		switch {
		case !ok:
			e.logger.Warn("no scrape result for page", zap.String("url", pg.URL))
			metrics.ObserveCrawl("missing")
		case res.Error != "":
			e.logger.Warn("scrape failed",
				zap.String("url", pg.URL),
				zap.String("error", res.Error),
			)
			metrics.ObserveCrawl("error")
		default:
			e.mergeContent(pg, res, now)
			pg.LastCrawled = &now
			metrics.ObserveCrawl("ok")
		}
		attempt := now
		pg.LastCrawlAttempt = &attempt
		pg.CrawlAttempts++
	}

	return e.pages.UpdateBatch(ctx, pages)
}

// mergeContent overwrites the page's content with the extraction result.
func (e *Executor) mergeContent(pg *index.Page, res index.ScrapeResult, now time.Time) {
	if pg.Content == nil {
		pg.Content = &index.Content{PageID: pg.ID}
	}
	ct := pg.Content
	ct.Title = res.Title
	ct.Description = res.Description
	ct.Text = res.Content

	ct.Author = res.Author
	ct.Language = res.Language
	ct.WordCount = res.WordCount
	ct.CanonicalURL = res.Canonical
	ct.PublishedAt = parseTimestamp(res.Published)
	ct.ModifiedAt = parseTimestamp(res.Modified)

	ct.HeadersJSON = marshalJSON(res.Headers)
	ct.OpenGraphJSON = marshalJSON(res.OpenGraph)
	ct.TwitterCardJSON = marshalJSON(res.TwitterCard)

	ct.InternalLinkCount = res.InternalLinkCount
	ct.ExternalLinkCount = res.ExternalLinkCount

	scraped := now
	ct.LastScraped = &scraped
}

func markAttempted(pages []index.Page, now time.Time) {
	for i := range pages {
		attempt := now
		pages[i].LastCrawlAttempt = &attempt
		pages[i].CrawlAttempts++
	}
}

func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
