// Package mock provides a test double for the ai.Embedder interface.
//
// The mock lets tests run without an embedding service and enables
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vectors, err := embedder.EmbedTexts(ctx, []string{"a", "b"})
//
//	// Custom behavior injection
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Inspect what was sent
//	count := embedder.CallCount()
//	batches := embedder.Calls()
//
// # Default Behavior
//
// EmbedTexts returns one deterministic vector per text, derived from an FNV
// hash of the text (see Vector).
package mock
