package embed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when no ai.Embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrMalformedResponse marks a provider reply that does not match the request.
	ErrMalformedResponse = errors.New("malformed embedding response")
)
