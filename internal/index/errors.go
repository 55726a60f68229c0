package index

import (
	"errors"
	"fmt"
)

// Domain errors surfaced across subsystem boundaries.
var (
	// ErrUnknownMediaType rejects sitemap media records whose type string is
	// not image, video or news.
	ErrUnknownMediaType = errors.New("unknown media type")
	// ErrEmptyQuery rejects empty or whitespace-only search queries.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrInvalidQuery rejects queries containing disallowed characters.
	ErrInvalidQuery = errors.New("search query contains invalid characters")
	// ErrEmptyEmbedInput rejects empty text handed to the embedder.
	ErrEmptyEmbedInput = errors.New("embedding input is empty")
)

// UnknownMediaTypeError wraps ErrUnknownMediaType with the offending value.
func UnknownMediaTypeError(raw string) error {
	return fmt.Errorf("%w: %q", ErrUnknownMediaType, raw)
}
