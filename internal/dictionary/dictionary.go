// Package dictionary provides the in-memory vocabulary used to filter
// page text before embedding.
package dictionary

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
)

// Set is a case-insensitive word membership test. Lookups are lock-free;
// Reload swaps the whole set atomically so readers never see a partial load.
type Set struct {
	words  index.WordStore
	logger *zap.Logger

	current atomic.Pointer[map[string]struct{}]
}

// NewSet constructs an empty Set backed by the given store. Call Reload
// before serving lookups.
func NewSet(words index.WordStore, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Set{words: words, logger: logger}
	empty := map[string]struct{}{}
	s.current.Store(&empty)
	return s
}

// Reload replaces the vocabulary with the store's current contents.
func (s *Set) Reload(ctx context.Context) error {
	all, err := s.words.LoadAll(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]struct{}, len(all))
	for _, w := range all {
		next[strings.ToLower(w.Text)] = struct{}{}
	}
	s.current.Store(&next)
	s.logger.Info("vocabulary loaded", zap.Int("words", len(next)))
	return nil
}

// Contains reports whether word is in the vocabulary, ignoring case.
func (s *Set) Contains(word string) bool {
	set := *s.current.Load()
	_, ok := set[strings.ToLower(word)]
	return ok
}

// Len returns the current vocabulary size.
func (s *Set) Len() int {
	return len(*s.current.Load())
}
