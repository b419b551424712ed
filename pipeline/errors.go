package pipeline

import "errors"

var (
	// ErrEmbedderRequired is returned when a batch embedder is not provided.
	ErrEmbedderRequired = errors.New("batch embedder required")

	// ErrOutputRequired is returned when an output sink is not provided.
	ErrOutputRequired = errors.New("output sink required")

	// ErrColumnRequired is returned when the embed column name is empty.
	ErrColumnRequired = errors.New("embed column required")
)
