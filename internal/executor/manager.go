package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/metrics"
	"github.com/websearch/indexd/internal/scheduler"
)

// ManagerConfig controls the crawl loop cadence.
type ManagerConfig struct {
	IdleDelay    time.Duration
	FailureDelay time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.IdleDelay <= 0 {
		c.IdleDelay = 15 * time.Second
	}
	if c.FailureDelay <= 0 {
		c.FailureDelay = 30 * time.Second
	}
	return c
}

// Manager is the long-lived crawl loop: pull a due batch from the
// scheduler, execute it, pause, repeat.
type Manager struct {
	sched    *scheduler.Scheduler
	executor *Executor
	cfg      ManagerConfig
	logger   *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(sched *scheduler.Scheduler, exec *Executor, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sched:    sched,
		executor: exec,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run blocks, crawling due batches until the context finishes. A failed
// iteration backs off; an empty batch idles so the loop never spins.
func (m *Manager) Run(ctx context.Context) {
	for {
		processed, err := m.iterate(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := time.Duration(0)
		switch {
		case err != nil:
			m.logger.Error("crawl iteration failed", zap.Error(err))
			metrics.ObserveLoopError("crawl")
			delay = m.cfg.FailureDelay
		case processed == 0:
			delay = m.cfg.IdleDelay
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *Manager) iterate(ctx context.Context) (processed int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			processed, err = 0, fmt.Errorf("crawl iteration panic: %v", rec)
		}
	}()
	batch, err := m.sched.NextBatch(ctx)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		m.logger.Debug("no pages due for crawling")
		return 0, nil
	}
	if err := m.executor.CrawlBatch(ctx, batch); err != nil {
		return 0, err
	}
	m.logger.Info("crawl batch completed", zap.Int("pages", len(batch)))
	return len(batch), nil
}
