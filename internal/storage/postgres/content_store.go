package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/websearch/indexd/internal/index"
)

// ContentStore persists extracted bodies and their embedding sets.
type ContentStore struct {
	pool       Querier
	sparseDims int
	retry      *index.RetryPolicy
}

// NewContentStore constructs a ContentStore. sparseDims is the declared
// width of the sparsevec column.
func NewContentStore(pool Querier, sparseDims int) *ContentStore {
	if sparseDims <= 0 {
		sparseDims = 30522
	}
	return &ContentStore{pool: pool, sparseDims: sparseDims, retry: index.NewRetryPolicy()}
}

// NeedingEmbedding selects contents whose stored hash no longer matches the
// digest of the body, meaning the embedding set is missing or stale. The
// digest expression matches the in-process hasher, so a content written by
// the pipeline is not re-selected until its body changes.
func (s *ContentStore) NeedingEmbedding(ctx context.Context, limit, offset int) ([]index.Content, error) {
	var contents []index.Content
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, page_id, title, description, body, COALESCE(content_hash, '')
FROM contents
WHERE btrim(body) <> ''
  AND (content_hash IS NULL OR content_hash <> encode(sha256(convert_to(body, 'UTF8')), 'base64'))
ORDER BY id ASC
LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		contents = contents[:0]
		for rows.Next() {
			var ct index.Content
			if err := rows.Scan(&ct.ID, &ct.PageID, &ct.Title, &ct.Description, &ct.Text, &ct.ContentHash); err != nil {
				return err
			}
			contents = append(contents, ct)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select contents needing embedding: %w", err)
	}
	return contents, nil
}

// UpdateBatch replaces each content's embedding set and hash in one
// transaction.
func (s *ContentStore) UpdateBatch(ctx context.Context, contents []index.Content) error {
	if len(contents) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin embedding update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range contents {
		ct := &contents[i]
		if _, err := tx.Exec(ctx, `UPDATE contents SET content_hash = $2 WHERE id = $1`,
			ct.ID, nullableHash(ct.ContentHash),
		); err != nil {
			return fmt.Errorf("update content hash %d: %w", ct.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM embeddings WHERE content_id = $1`, ct.ID); err != nil {
			return fmt.Errorf("clear embeddings for content %d: %w", ct.ID, err)
		}
		if err := s.insertEmbeddings(ctx, tx, ct); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit embedding update: %w", err)
	}
	return nil
}

func (s *ContentStore) insertEmbeddings(ctx context.Context, tx pgx.Tx, ct *index.Content) error {
	for j := range ct.Embeddings {
		emb := &ct.Embeddings[j]
		sparse := pgvector.NewSparseVectorFromMap(emb.Sparse, int32(s.sparseDims))
		row := tx.QueryRow(ctx, `
INSERT INTO embeddings (content_id, chunk_hash, dense, sparse)
VALUES ($1, $2, $3, $4)
RETURNING id`,
			ct.ID, emb.ChunkHash, pgvector.NewVector(emb.Dense), sparse,
		)
		if err := row.Scan(&emb.ID); err != nil {
			return fmt.Errorf("insert embedding for content %d: %w", ct.ID, err)
		}
		emb.ContentID = ct.ID
	}
	return nil
}

func nullableHash(hash string) any {
	if hash == "" {
		return nil
	}
	return hash
}
