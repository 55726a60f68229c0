package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
	"github.com/websearch/indexd/internal/metrics"
)

// ManagerConfig controls the embedding loop cadence.
type ManagerConfig struct {
	BatchSize    int
	IdleDelay    time.Duration
	FailureDelay time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.IdleDelay <= 0 {
		c.IdleDelay = 10 * time.Second
	}
	if c.FailureDelay <= 0 {
		c.FailureDelay = 30 * time.Second
	}
	return c
}

// Manager is the long-lived embedding loop. It pulls a page of contents
// needing (re)embedding through a stable offset cursor, processes them and
// persists the whole pull in one batch update.
type Manager struct {
	contents index.ContentStore
	pipeline *Pipeline
	cfg      ManagerConfig
	logger   *zap.Logger

	offset int
}

// NewManager constructs a Manager.
func NewManager(contents index.ContentStore, pl *Pipeline, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		contents: contents,
		pipeline: pl,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run blocks, embedding content batches until the context finishes.
func (m *Manager) Run(ctx context.Context) {
	for {
		processed, err := m.iterate(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := time.Duration(0)
		switch {
		case err != nil:
			m.logger.Error("embedding iteration failed", zap.Error(err))
			metrics.ObserveLoopError("embedding")
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
			processed, err = 0, fmt.Errorf("embedding iteration panic: %v", rec)
		}
	}()
	batch, err := m.contents.NeedingEmbedding(ctx, m.cfg.BatchSize, m.offset)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		// End of the selection: rewind so rows that became stale or were
		// skipped after a partial failure are picked up again.
		m.offset = 0
		return 0, nil
	}

	updated := make([]index.Content, 0, len(batch))
	skipped := 0
	for i := range batch {
		ct := &batch[i]
		done, err := m.pipeline.Process(ctx, ct)
		if err != nil {
			if ctx.Err() != nil {
				return 0, err
			}
			// Blast radius of one bad content is that content: keep its
			// partial chunks, move on, retry it on a later pass.
			skipped++
		}
		if done || len(ct.Embeddings) > 0 {
			updated = append(updated, *ct)
		}
	}

	// Skipped rows stay inside the selection window, so step past them to
	// keep making forward progress instead of reprocessing the same page.
	m.offset += skipped

	if len(updated) > 0 {
		if err := m.contents.UpdateBatch(ctx, updated); err != nil {
			return 0, err
		}
	}
	m.logger.Info("embedding batch completed",
		zap.Int("contents", len(updated)),
		zap.Int("skipped", skipped),
	)
	return len(updated), nil
}
