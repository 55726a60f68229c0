package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/websearch/indexd/internal/index"
)

// WebsiteStore persists website rows and their sitemap trees.
type WebsiteStore struct {
	pool  Querier
	retry *index.RetryPolicy
}

// NewWebsiteStore constructs a WebsiteStore.
func NewWebsiteStore(pool Querier) *WebsiteStore {
	return &WebsiteStore{pool: pool, retry: index.NewRetryPolicy()}
}

// FindOrCreate upserts a website by its normalized host.
func (s *WebsiteStore) FindOrCreate(ctx context.Context, host string) (index.Website, error) {
	host = index.NormalizeHost(host)
	if host == "" {
		return index.Website{}, fmt.Errorf("host is required")
	}
	var site index.Website
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
INSERT INTO websites (host)
VALUES ($1)
ON CONFLICT (host) DO UPDATE SET host = EXCLUDED.host
RETURNING id, host`, host)
		return row.Scan(&site.ID, &site.Host)
	})
	if err != nil {
		return index.Website{}, fmt.Errorf("upsert website %s: %w", host, err)
	}
	return site, nil
}

// NeedingSitemap returns websites whose sitemap has never been mapped or was
// mapped before the staleness cutoff, oldest first.
func (s *WebsiteStore) NeedingSitemap(ctx context.Context, staleBefore time.Time, limit int) ([]index.Website, error) {
	var sites []index.Website
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, host
FROM websites
WHERE last_mapped IS NULL OR last_mapped < $1
ORDER BY last_mapped ASC NULLS FIRST, id ASC
LIMIT $2`, staleBefore, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		sites = sites[:0]
		for rows.Next() {
			var site index.Website
			if err := rows.Scan(&site.ID, &site.Host); err != nil {
				return err
			}
			sites = append(sites, site)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select websites needing sitemap: %w", err)
	}
	return sites, nil
}

// SaveSitemap replaces the website's sitemap tree in one transaction and
// stamps the website as freshly mapped.
func (s *WebsiteStore) SaveSitemap(ctx context.Context, websiteID int64, root *index.Sitemap) error {
	if root == nil {
		return fmt.Errorf("sitemap root is required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sitemap save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sitemaps WHERE website_id = $1`, websiteID); err != nil {
		return fmt.Errorf("clear sitemaps: %w", err)
	}
	if err := insertSitemapNode(ctx, tx, websiteID, nil, root); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE websites SET last_mapped = now() WHERE id = $1`, websiteID); err != nil {
		return fmt.Errorf("stamp website mapped: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sitemap save: %w", err)
	}
	return nil
}

func insertSitemapNode(ctx context.Context, tx pgx.Tx, websiteID int64, parentID *int64, node *index.Sitemap) error {
	var id int64
	row := tx.QueryRow(ctx, `
INSERT INTO sitemaps (website_id, parent_id, location, last_modified, is_mapped, url_count)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`, websiteID, parentID, node.Location, node.LastModified, node.IsMapped, len(node.URLs))
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("insert sitemap %s: %w", node.Location, err)
	}
	node.ID = id
	node.WebsiteID = websiteID
	node.ParentID = parentID
	for _, child := range node.Children {
		if err := insertSitemapNode(ctx, tx, websiteID, &id, child); err != nil {
			return err
		}
	}
	return nil
}
