package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/hash/sha256"
	"github.com/websearch/indexd/internal/index"
)

type stubEmbedder struct {
	calls    int
	failFrom int // 1-based call index to start failing at; 0 means never
}

func (e *stubEmbedder) EmbedDense(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failFrom > 0 && e.calls >= e.failFrom {
		return nil, errors.New("embedder unavailable")
	}
	if strings.TrimSpace(text) == "" {
		return nil, index.ErrEmptyEmbedInput
	}
	return []float32{1, 2, 3}, nil
}

func (e *stubEmbedder) EmbedSparse(_ context.Context, text string) (index.SparseVector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, index.ErrEmptyEmbedInput
	}
	return index.SparseVector{0: 0.5}, nil
}

func TestProcessEmbedsAllChunks(t *testing.T) {
	t.Parallel()

	vocab := vocabOf("alpha", "beta", "gamma", "delta")
	hasher := sha256.New()
	p := New(vocab, &stubEmbedder{}, hasher, Config{ChunkSize: 2}, nil)

	ct := &index.Content{ID: 11, Text: "alpha beta gamma delta"}
	done, err := p.Process(context.Background(), ct)
	require.NoError(t, err)
	require.True(t, done)

	require.Len(t, ct.Embeddings, 2)
	for _, emb := range ct.Embeddings {
		require.Equal(t, int64(11), emb.ContentID)
		require.NotEmpty(t, emb.ChunkHash)
		require.Len(t, emb.Dense, 3)
		require.NotEmpty(t, emb.Sparse)
	}
	require.Equal(t, hasher.Hash(ct.Text), ct.ContentHash)
	require.Equal(t, hasher.Hash("alpha beta"), ct.Embeddings[0].ChunkHash)
}

func TestProcessEmptyTextIsSkipped(t *testing.T) {
	t.Parallel()

	p := New(vocabOf(), &stubEmbedder{}, sha256.New(), Config{}, nil)
	ct := &index.Content{Text: "   "}
	done, err := p.Process(context.Background(), ct)
	require.NoError(t, err)
	require.False(t, done)
	require.Empty(t, ct.ContentHash)
}

func TestProcessNoSurvivingTokensAdvancesHash(t *testing.T) {
	t.Parallel()

	hasher := sha256.New()
	p := New(vocabOf("unrelated"), &stubEmbedder{}, hasher, Config{}, nil)

	ct := &index.Content{Text: "zz qq xx", Embeddings: []index.Embedding{{ID: 1}}}
	done, err := p.Process(context.Background(), ct)
	require.NoError(t, err)
	require.True(t, done)
	require.Empty(t, ct.Embeddings)
	require.Equal(t, hasher.Hash(ct.Text), ct.ContentHash)
}

func TestProcessChunkFailureKeepsPartialAndStaleHash(t *testing.T) {
	t.Parallel()

	vocab := vocabOf("alpha", "beta", "gamma", "delta", "epsilon", "zeta")
	embedder := &stubEmbedder{failFrom: 3}
	hasher := sha256.New()
	p := New(vocab, embedder, hasher, Config{ChunkSize: 2}, nil)

	ct := &index.Content{ID: 5, Text: "alpha beta gamma delta epsilon zeta"}
	done, err := p.Process(context.Background(), ct)
	require.Error(t, err)
	require.False(t, done)

	// The first two chunks made it; the hash stays stale so the content is
	// re-selected on the next pass.
	require.Len(t, ct.Embeddings, 2)
	require.Empty(t, ct.ContentHash)
}

func TestProcessIsIdempotentForUnchangedText(t *testing.T) {
	t.Parallel()

	vocab := vocabOf("alpha", "beta")
	hasher := sha256.New()
	p := New(vocab, &stubEmbedder{}, hasher, Config{ChunkSize: 2}, nil)

	ct := &index.Content{ID: 1, Text: "alpha beta"}
	_, err := p.Process(context.Background(), ct)
	require.NoError(t, err)
	first := ct.ContentHash

	_, err = p.Process(context.Background(), ct)
	require.NoError(t, err)
	require.Equal(t, first, ct.ContentHash)
	require.Len(t, ct.Embeddings, 1)
}
