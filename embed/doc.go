// Package embed turns texts into embeddings in batches.
//
// BatchEmbedder sends one batch of texts to an ai.Embedder and always returns
// one result per text. Blank texts and batches the provider could not embed
// after retrying degrade to core.EmptyEmbedding instead of failing the run.
// Only context cancellation is reported as an error.
//
// Batcher sits in front of a BatchEmbedder and owns the pending buffer:
// texts are added one at a time under a caller-chosen key, and results are
// delivered back in the order they were added.
//
// The package also provides:
//   - RetryWithBackoff: exponential backoff for provider calls
//   - ProgressTracker: plain-text progress reporting
//   - CleanText and NormalizeVector helpers
package embed
