package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
	"github.com/websearch/indexd/internal/metrics"
)

// Config tunes the embedding pipeline.
type Config struct {
	ChunkSize  int
	MinWordLen int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MinWordLen <= 0 {
		c.MinWordLen = DefaultMinWordLen
	}
	return c
}

// Pipeline validates, chunks and embeds content text. The content hash is a
// digest of the original full text and acts as the staleness witness: an
// unchanged text hashes to the same value and is not re-selected.
type Pipeline struct {
	vocab    index.Vocabulary
	embedder index.Embedder
	hasher   index.Hasher
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Pipeline.
func New(vocab index.Vocabulary, embedder index.Embedder, hasher index.Hasher, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		vocab:    vocab,
		embedder: embedder,
		hasher:   hasher,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Process embeds one content in place. It returns true when every chunk was
// embedded and the hash was refreshed. A chunk failure keeps the chunks
// embedded so far and leaves the hash stale, so the content is re-selected
// and only the missing tail is recomputed conceptually on the next pass.
func (p *Pipeline) Process(ctx context.Context, ct *index.Content) (bool, error) {
	if strings.TrimSpace(ct.Text) == "" {
		return false, nil
	}

	tokens := FilterTokens(Tokenize(ct.Text), p.vocab, p.cfg.MinWordLen)
	chunks := ChunkTokens(tokens, p.cfg.ChunkSize)
	if len(chunks) == 0 {
		// Nothing survived the filter; the hash still advances so the row
		// is not re-selected forever.
		ct.Embeddings = nil
		ct.ContentHash = p.hasher.Hash(ct.Text)
		return true, nil
	}

	embeddings := make([]index.Embedding, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		text := strings.Join(chunk, " ")
		emb, err := p.embedChunk(ctx, text)
		if err != nil {
			p.logger.Warn("chunk embedding failed",
				zap.Int64("content_id", ct.ID),
				zap.Int("chunks_done", len(embeddings)),
				zap.Error(err),
			)
			metrics.ObserveChunk("error")
			ct.Embeddings = embeddings
			return false, err
		}
		emb.ContentID = ct.ID
		embeddings = append(embeddings, emb)
		metrics.ObserveChunk("ok")
	}

	ct.Embeddings = embeddings
	ct.ContentHash = p.hasher.Hash(ct.Text)
	metrics.ObserveContentEmbedded()
	return true, nil
}

func (p *Pipeline) embedChunk(ctx context.Context, text string) (index.Embedding, error) {
	dense, err := p.embedder.EmbedDense(ctx, text)
	if err != nil {
		return index.Embedding{}, fmt.Errorf("dense embedding: %w", err)
	}
	sparse, err := p.embedder.EmbedSparse(ctx, text)
	if err != nil {
		return index.Embedding{}, fmt.Errorf("sparse embedding: %w", err)
	}
	return index.Embedding{
		ChunkHash: p.hasher.Hash(text),
		Dense:     dense,
		Sparse:    sparse,
	}, nil
}
