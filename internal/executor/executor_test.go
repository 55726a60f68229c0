package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/index"
)

var crawlTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingPageStore struct {
	updated []index.Page
	err     error
}

func (s *recordingPageStore) CreateFromURLEntries(context.Context, int64, []index.URLEntry) (int, error) {
	return 0, nil
}

func (s *recordingPageStore) CrawlCandidates(context.Context, time.Time, int) ([]index.Page, error) {
	return nil, nil
}

func (s *recordingPageStore) UpdateBatch(_ context.Context, pages []index.Page) error {
	if s.err != nil {
		return s.err
	}
	s.updated = append([]index.Page(nil), pages...)
	return nil
}

type stubScraper struct {
	results []index.ScrapeResult
	err     error
	gotReqs []index.ScrapeRequest
}

func (s *stubScraper) Scrape(_ context.Context, reqs []index.ScrapeRequest) ([]index.ScrapeResult, error) {
	s.gotReqs = reqs
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func TestCrawlBatchMergesResults(t *testing.T) {
	t.Parallel()

	store := &recordingPageStore{}
	scraper := &stubScraper{results: []index.ScrapeResult{
		{
			URL:         "https://example.com/a",
			Title:       "Page A",
			Description: "about a",
			Content:     "the body of page a",
			WordCount:   5,
			Language:    "en",
			Headers:     map[string][]string{"Content-Type": {"text/html"}},
		},
		{
			URL:   "https://example.com/b",
			Error: "status 404",
		},
	}}
	exec := New(store, scraper, fixedClock{now: crawlTime}, nil)

	pages := []index.Page{
		{ID: 1, URL: "https://example.com/a", CrawlAttempts: 1},
		{ID: 2, URL: "https://example.com/b"},
	}
	require.NoError(t, exec.CrawlBatch(context.Background(), pages))
	require.Len(t, store.updated, 2)

	ok := store.updated[0]
	require.NotNil(t, ok.Content)
	require.Equal(t, "Page A", ok.Content.Title)
	require.Equal(t, "the body of page a", ok.Content.Text)
	require.Contains(t, ok.Content.HeadersJSON, "Content-Type")
	require.NotNil(t, ok.LastCrawled)
	require.Equal(t, crawlTime, *ok.LastCrawled)
	require.Equal(t, crawlTime, *ok.LastCrawlAttempt)
	require.Equal(t, 2, ok.CrawlAttempts)

	failed := store.updated[1]
	require.Nil(t, failed.Content)
	require.Nil(t, failed.LastCrawled)
	require.Equal(t, crawlTime, *failed.LastCrawlAttempt)
	require.Equal(t, 1, failed.CrawlAttempts)
}

func TestCrawlBatchTransportFailureMarksAttempts(t *testing.T) {
	t.Parallel()

	store := &recordingPageStore{}
	scraper := &stubScraper{err: errors.New("connection refused")}
	exec := New(store, scraper, fixedClock{now: crawlTime}, nil)

	pages := []index.Page{
		{ID: 1, URL: "https://example.com/a"},
		{ID: 2, URL: "https://example.com/b", CrawlAttempts: 3},
	}
	require.NoError(t, exec.CrawlBatch(context.Background(), pages))
	require.Len(t, store.updated, 2)

	for _, pg := range store.updated {
		require.Nil(t, pg.Content)
		require.Nil(t, pg.LastCrawled)
		require.NotNil(t, pg.LastCrawlAttempt)
	}
	require.Equal(t, 1, store.updated[0].CrawlAttempts)
	require.Equal(t, 4, store.updated[1].CrawlAttempts)
}

func TestCrawlBatchSkipsEmptyURLs(t *testing.T) {
	t.Parallel()

	store := &recordingPageStore{}
	scraper := &stubScraper{}
	exec := New(store, scraper, fixedClock{now: crawlTime}, nil)

	pages := []index.Page{{ID: 1}, {ID: 2, URL: "https://example.com/b"}}
	require.NoError(t, exec.CrawlBatch(context.Background(), pages))

	require.Len(t, scraper.gotReqs, 1)
	require.Equal(t, int64(2), scraper.gotReqs[0].PageID)
}

func TestCrawlBatchMissingResultStillCountsAttempt(t *testing.T) {
	t.Parallel()

	store := &recordingPageStore{}
	scraper := &stubScraper{results: nil}
	exec := New(store, scraper, fixedClock{now: crawlTime}, nil)

	pages := []index.Page{{ID: 1, URL: "https://example.com/a"}}
	require.NoError(t, exec.CrawlBatch(context.Background(), pages))
	require.Len(t, store.updated, 1)
	require.Nil(t, store.updated[0].LastCrawled)
	require.Equal(t, 1, store.updated[0].CrawlAttempts)
}

func TestCrawlBatchEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	store := &recordingPageStore{}
	exec := New(store, &stubScraper{}, fixedClock{now: crawlTime}, nil)
	require.NoError(t, exec.CrawlBatch(context.Background(), nil))
	require.Empty(t, store.updated)
}
