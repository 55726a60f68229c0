package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/websearch/indexd/internal/index"
)

// PageStoreConfig mirrors the crawl eligibility policy so the SQL pre-filter
// and the in-process predicate agree.
type PageStoreConfig struct {
	StaleAfter   time.Duration
	CoolDown     time.Duration
	MaxAttempts  int
}

func (c PageStoreConfig) withDefaults() PageStoreConfig {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 31 * 24 * time.Hour
	}
	if c.CoolDown <= 0 {
		c.CoolDown = 5 * time.Hour
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

// PageStore persists crawl units and their crawl history.
type PageStore struct {
	pool  Querier
	cfg   PageStoreConfig
	retry *index.RetryPolicy
}

// NewPageStore constructs a PageStore.
func NewPageStore(pool Querier, cfg PageStoreConfig) *PageStore {
	return &PageStore{pool: pool, cfg: cfg.withDefaults(), retry: index.NewRetryPolicy()}
}

// CreateFromURLEntries upserts one page per discovered URL. Re-discovery
// refreshes the priority but never resets crawl history. Returns the number
// of entries written.
func (s *PageStore) CreateFromURLEntries(ctx context.Context, websiteID int64, entries []index.URLEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin page create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	written := 0
	for _, entry := range entries {
		if entry.Location == "" {
			continue
		}
		media, err := marshalMedia(entry.Media)
		if err != nil {
			return 0, fmt.Errorf("encode media for %s: %w", entry.Location, err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO pages (website_id, url, priority, change_frequency, url_last_modified, media)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (website_id, url) DO UPDATE SET
	priority = EXCLUDED.priority,
	change_frequency = EXCLUDED.change_frequency,
	url_last_modified = EXCLUDED.url_last_modified,
	media = EXCLUDED.media`,
			websiteID, entry.Location, entry.Priority, string(entry.ChangeFreq), entry.LastModified, media,
		); err != nil {
			return 0, fmt.Errorf("upsert page %s: %w", entry.Location, err)
		}
		written++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit page create: %w", err)
	}
	return written, nil
}

// CrawlCandidates pre-filters due pages in SQL with the same predicate the
// scheduler applies, ordered by priority then staleness.
func (s *PageStore) CrawlCandidates(ctx context.Context, now time.Time, limit int) ([]index.Page, error) {
	staleBefore := now.Add(-s.cfg.StaleAfter)
	coolBefore := now.Add(-s.cfg.CoolDown)

	var pages []index.Page
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, website_id, url, priority, last_crawl_attempt, last_crawled, crawl_attempts
FROM pages
WHERE last_crawled IS NULL
   OR (last_crawled < $1 AND last_crawl_attempt IS NULL)
   OR (last_crawl_attempt < $2 AND crawl_attempts < $3)
ORDER BY priority DESC, last_crawled ASC NULLS FIRST, id ASC
LIMIT $4`, staleBefore, coolBefore, s.cfg.MaxAttempts, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		pages = pages[:0]
		for rows.Next() {
			var pg index.Page
			if err := rows.Scan(
				&pg.ID, &pg.WebsiteID, &pg.URL, &pg.Priority,
				&pg.LastCrawlAttempt, &pg.LastCrawled, &pg.CrawlAttempts,
			); err != nil {
				return err
			}
			pages = append(pages, pg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select crawl candidates: %w", err)
	}
	return pages, nil
}

// UpdateBatch persists crawl outcomes: page bookkeeping always, content only
// for pages that produced one.
func (s *PageStore) UpdateBatch(ctx context.Context, pages []index.Page) error {
	if len(pages) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin page update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range pages {
		pg := &pages[i]
		if _, err := tx.Exec(ctx, `
UPDATE pages SET
	last_crawl_attempt = $2,
	last_crawled = $3,
	crawl_attempts = $4
WHERE id = $1`,
			pg.ID, pg.LastCrawlAttempt, pg.LastCrawled, pg.CrawlAttempts,
		); err != nil {
			return fmt.Errorf("update page %d: %w", pg.ID, err)
		}
		if pg.Content == nil {
			continue
		}
		if err := upsertContent(ctx, tx, pg.ID, pg.Content); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit page update: %w", err)
	}
	return nil
}

func upsertContent(ctx context.Context, tx pgx.Tx, pageID int64, ct *index.Content) error {
	row := tx.QueryRow(ctx, `
INSERT INTO contents (
	page_id, title, description, body, author, language, word_count,
	canonical_url, published_at, modified_at, headers, open_graph,
	twitter_card, internal_link_count, external_link_count, last_scraped
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (page_id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	body = EXCLUDED.body,
	author = EXCLUDED.author,
	language = EXCLUDED.language,
	word_count = EXCLUDED.word_count,
	canonical_url = EXCLUDED.canonical_url,
	published_at = EXCLUDED.published_at,
	modified_at = EXCLUDED.modified_at,
	headers = EXCLUDED.headers,
	open_graph = EXCLUDED.open_graph,
	twitter_card = EXCLUDED.twitter_card,
	internal_link_count = EXCLUDED.internal_link_count,
	external_link_count = EXCLUDED.external_link_count,
	last_scraped = EXCLUDED.last_scraped
RETURNING id`,
		pageID, ct.Title, ct.Description, ct.Text, ct.Author, ct.Language, ct.WordCount,
		ct.CanonicalURL, ct.PublishedAt, ct.ModifiedAt, nullableJSON(ct.HeadersJSON),
		nullableJSON(ct.OpenGraphJSON), nullableJSON(ct.TwitterCardJSON),
		ct.InternalLinkCount, ct.ExternalLinkCount, ct.LastScraped,
	)
	if err := row.Scan(&ct.ID); err != nil {
		return fmt.Errorf("upsert content for page %d: %w", pageID, err)
	}
	ct.PageID = pageID
	return nil
}

func marshalMedia(media []index.MediaEntry) ([]byte, error) {
	if len(media) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(media)
}

func nullableJSON(raw string) any {
	if raw == "" {
		return nil
	}
	return []byte(raw)
}
