package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/websearch/indexd/internal/index"
)

// SearchStore retrieves ranking candidates by vector proximity or keyword
// presence. Distance math beyond the raw per-embedding values lives in the
// ranking engine, not in SQL.
type SearchStore struct {
	pool       Querier
	sparseDims int
	retry      *index.RetryPolicy
}

// NewSearchStore constructs a SearchStore.
func NewSearchStore(pool Querier, sparseDims int) *SearchStore {
	if sparseDims <= 0 {
		sparseDims = 30522
	}
	return &SearchStore{pool: pool, sparseDims: sparseDims, retry: index.NewRetryPolicy()}
}

// Candidates returns one row per page that is close to the query by dense
// L2 distance, sparse cosine distance, or substring match. Distances beyond
// the cutoff are dropped so the engine's min falls back to its sentinel.
func (s *SearchStore) Candidates(ctx context.Context, q index.CandidateQuery) ([]index.Candidate, error) {
	dense := pgvector.NewVector(q.Dense)
	sparse := pgvector.NewSparseVectorFromMap(q.Sparse, int32(s.sparseDims))
	pattern := "%" + q.Query + "%"

	var candidates []index.Candidate
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT
	p.id,
	p.url,
	c.title,
	c.description,
	COALESCE(array_agg(e.dense <-> $1) FILTER (WHERE e.id IS NOT NULL AND (e.dense <-> $1) < $3), '{}') AS dense_distances,
	COALESCE(array_agg(e.sparse <=> $2) FILTER (WHERE e.id IS NOT NULL AND (e.sparse <=> $2) < $3), '{}') AS sparse_distances,
	bool_or(c.title ILIKE $4 OR c.body ILIKE $4) AS keyword_match
FROM pages p
JOIN websites w ON w.id = p.website_id
JOIN contents c ON c.page_id = p.id
LEFT JOIN embeddings e ON e.content_id = c.id
WHERE ($5 = '' OR w.host = $5)
GROUP BY p.id, p.url, c.title, c.description
HAVING bool_or(c.title ILIKE $4 OR c.body ILIKE $4)
    OR count(e.id) FILTER (WHERE (e.dense <-> $1) < $3 OR (e.sparse <=> $2) < $3) > 0`,
			dense, sparse, q.MaxDistance, pattern, index.NormalizeHost(q.Site))
		if err != nil {
			return err
		}
		defer rows.Close()
		candidates = candidates[:0]
		for rows.Next() {
			var c index.Candidate
			if err := rows.Scan(
				&c.PageID, &c.URL, &c.Title, &c.Description,
				&c.DenseDistances, &c.SparseDistances, &c.KeywordMatch,
			); err != nil {
				return err
			}
			candidates = append(candidates, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select search candidates: %w", err)
	}
	return candidates, nil
}
