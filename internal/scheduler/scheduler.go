// Package scheduler selects and orders pages due for crawling.
package scheduler

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
)

// Policy holds the crawl eligibility thresholds.
type Policy struct {
	StaleAfter    time.Duration
	RetryCoolDown time.Duration
	MaxAttempts   int
}

// DefaultPolicy returns the standard thresholds: recrawl after 31 days,
// retry failed attempts after 5 hours, give up after 5 attempts.
func DefaultPolicy() Policy {
	return Policy{
		StaleAfter:    31 * 24 * time.Hour,
		RetryCoolDown: 5 * time.Hour,
		MaxAttempts:   5,
	}
}

// Eligible reports whether a page is due for crawling. A page is due when
// it has never been crawled, when its last crawl is stale and no attempt is
// outstanding, or when the last attempt has cooled down and the attempt
// budget is not spent.
func (p Policy) Eligible(pg index.Page, now time.Time) bool {
	if pg.LastCrawled == nil {
		return true
	}
	if pg.LastCrawled.Before(now.Add(-p.StaleAfter)) && pg.LastCrawlAttempt == nil {
		return true
	}
	if pg.LastCrawlAttempt != nil &&
		pg.LastCrawlAttempt.Before(now.Add(-p.RetryCoolDown)) &&
		pg.CrawlAttempts < p.MaxAttempts {
		return true
	}
	return false
}

// Order sorts pages in place: descending by URL priority, then ascending by
// last crawl time with never-crawled pages first. This yields FIFO by
// staleness within each priority tier.
func Order(pages []index.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Priority != pages[j].Priority {
			return pages[i].Priority > pages[j].Priority
		}
		return lastCrawledOrEarliest(pages[i]).Before(lastCrawledOrEarliest(pages[j]))
	})
}

func lastCrawledOrEarliest(pg index.Page) time.Time {
	if pg.LastCrawled == nil {
		return time.Time{}
	}
	return *pg.LastCrawled
}

// Scheduler produces bounded, ordered batches of due pages. It never
// mutates crawl state; attempt bookkeeping belongs to the executor.
type Scheduler struct {
	pages     index.PageStore
	policy    Policy
	clock     index.Clock
	batchSize int
	logger    *zap.Logger
}

// New constructs a Scheduler.
func New(pages index.PageStore, policy Policy, clock index.Clock, batchSize int, logger *zap.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		pages:     pages,
		policy:    policy,
		clock:     clock,
		batchSize: batchSize,
		logger:    logger,
	}
}

// NextBatch returns up to batchSize due pages in priority order. The store
// pre-filters candidates; the policy predicate is re-applied here so a stale
// store read never admits an ineligible page.
func (s *Scheduler) NextBatch(ctx context.Context) ([]index.Page, error) {
	now := s.clock.Now()
	candidates, err := s.pages.CrawlCandidates(ctx, now, s.batchSize)
	if err != nil {
		return nil, err
	}
	due := candidates[:0]
	for _, pg := range candidates {
		if s.policy.Eligible(pg, now) {
			due = append(due, pg)
		}
	}
	Order(due)
	if len(due) > s.batchSize {
		due = due[:s.batchSize]
	}
	s.logger.Debug("scheduled crawl batch", zap.Int("pages", len(due)))
	return due, nil
}
