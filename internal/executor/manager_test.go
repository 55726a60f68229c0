package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/index"
	"github.com/websearch/indexd/internal/scheduler"
)

type drainingPageStore struct {
	mu      sync.Mutex
	pending []index.Page
	updates int
}

func (s *drainingPageStore) CreateFromURLEntries(context.Context, int64, []index.URLEntry) (int, error) {
	return 0, nil
}

func (s *drainingPageStore) CrawlCandidates(context.Context, time.Time, int) ([]index.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *drainingPageStore) UpdateBatch(_ context.Context, pages []index.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates += len(pages)
	return nil
}

func (s *drainingPageStore) updated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func TestManagerRunDrainsDueWork(t *testing.T) {
	t.Parallel()

	store := &drainingPageStore{pending: []index.Page{
		{ID: 1, URL: "https://example.com/a"},
		{ID: 2, URL: "https://example.com/b"},
	}}
	scraper := &stubScraper{results: []index.ScrapeResult{
		{URL: "https://example.com/a", Title: "a"},
		{URL: "https://example.com/b", Title: "b"},
	}}
	sched := scheduler.New(store, scheduler.DefaultPolicy(), fixedClock{now: crawlTime}, 20, nil)
	m := NewManager(sched, New(store, scraper, fixedClock{now: crawlTime}, nil), ManagerConfig{
		IdleDelay:    5 * time.Millisecond,
		FailureDelay: 5 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Eventually(t, func() bool {
		return store.updated() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestManagerIterateRecoversFromPanic(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(panickingPageStore{}, scheduler.DefaultPolicy(), fixedClock{now: crawlTime}, 20, nil)
	m := NewManager(sched, New(panickingPageStore{}, &stubScraper{}, fixedClock{now: crawlTime}, nil), ManagerConfig{}, nil)

	processed, err := m.iterate(context.Background())
	require.Zero(t, processed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic")
}

type panickingPageStore struct{}

func (panickingPageStore) CreateFromURLEntries(context.Context, int64, []index.URLEntry) (int, error) {
	panic("boom")
}

func (panickingPageStore) CrawlCandidates(context.Context, time.Time, int) ([]index.Page, error) {
	panic("boom")
}

func (panickingPageStore) UpdateBatch(context.Context, []index.Page) error {
	panic("boom")
}
