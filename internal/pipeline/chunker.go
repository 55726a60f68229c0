// Package pipeline transforms extracted page text into indexed embeddings.
package pipeline

import (
	"strings"

	"github.com/websearch/indexd/internal/index"
)

// DefaultChunkSize is the token window per embedding chunk.
const DefaultChunkSize = 500

// DefaultMinWordLen drops tokens shorter than this before chunking.
const DefaultMinWordLen = 2

// Tokenize splits text on whitespace, dropping empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// FilterTokens keeps tokens of at least minLen characters that are present
// in the vocabulary. This is a noise filter, not spelling correction.
func FilterTokens(tokens []string, vocab index.Vocabulary, minLen int) []string {
	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < minLen {
			continue
		}
		if !vocab.Contains(tok) {
			continue
		}
		filtered = append(filtered, tok)
	}
	return filtered
}

// ChunkTokens slices the token stream into fixed-size windows. The final
// chunk may be shorter; the chunk count is ceil(len(tokens)/size).
func ChunkTokens(tokens []string, size int) [][]string {
	if size <= 0 || len(tokens) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
