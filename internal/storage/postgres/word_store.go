package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/websearch/indexd/internal/index"
)

// WordStore bulk-loads the dictionary table.
type WordStore struct {
	pool  Querier
	retry *index.RetryPolicy
}

// NewWordStore constructs a WordStore.
func NewWordStore(pool Querier) *WordStore {
	return &WordStore{pool: pool, retry: index.NewRetryPolicy()}
}

// LoadAll returns every vocabulary word. The sparse vector column is
// optional; words without one still count for membership.
func (s *WordStore) LoadAll(ctx context.Context) ([]index.Word, error) {
	var words []index.Word
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `SELECT id, word, sparse_vector FROM words ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		words = words[:0]
		for rows.Next() {
			var (
				w      index.Word
				sparse *pgvector.SparseVector
			)
			if err := rows.Scan(&w.ID, &w.Text, &sparse); err != nil {
				return err
			}
			if sparse != nil {
				w.SparseVector = sparseToMap(*sparse)
			}
			words = append(words, w)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return words, nil
}

func sparseToMap(v pgvector.SparseVector) index.SparseVector {
	indices := v.Indices()
	values := v.Values()
	out := make(index.SparseVector, len(indices))
	for i, idx := range indices {
		out[idx] = values[i]
	}
	return out
}
