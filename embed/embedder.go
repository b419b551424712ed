// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/rowembed/ai"
	"github.com/poiesic/rowembed/core"
	"github.com/poiesic/rowembed/storage"
	"golang.org/x/time/rate"
)

// Config holds configuration for batched embedding.
type Config struct {
	// BatchSize is the number of texts buffered before a provider call
	BatchSize int

	// Concurrency is the number of full batches embedded in parallel
	Concurrency int

	// MaxRetries is the maximum number of attempts per provider call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// RateLimit caps provider calls per second; 0 disables limiting
	RateLimit float64

	// Normalize scales every vector to unit length
	Normalize bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:   10,
		Concurrency: 1,
		MaxRetries:  3,
		RetryDelay:  1 * time.Second,
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.BatchSize < 1 {
		errs = append(errs, core.NewConfigurationError("batch_size", "must be greater than 0, got %d", c.BatchSize))
	}
	if c.Concurrency < 1 {
		errs = append(errs, core.NewConfigurationError("concurrency", "must be greater than 0, got %d", c.Concurrency))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, core.NewConfigurationError("max_retries", "must be greater than 0, got %d", c.MaxRetries))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, core.NewConfigurationError("retry_delay", "must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, core.NewConfigurationError("rate_limit", "must not be negative"))
	}
	return errors.Join(errs...)
}

// Stats counts what a BatchEmbedder has done so far.
type Stats struct {
	Calls         int // Successful provider calls
	Blank         int // Texts degraded without a provider call
	Embedded      int // Texts that received a vector, cache hits included
	Degraded      int // Texts degraded by a failed batch
	FailedBatches int
	CacheHits     int
}

// BatchEmbedder embeds batches of texts with a degrade-on-failure policy.
//
// Blank texts and failed batches yield core.EmptyEmbedding instead of an
// error, so a run always receives one result per input text.
type BatchEmbedder struct {
	embedder ai.Embedder
	config   Config
	cache    storage.EmbeddingCache
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Option configures a BatchEmbedder.
type Option func(*BatchEmbedder)

// WithCache consults cache before calling the provider and stores every
// vector the provider returns.
func WithCache(cache storage.EmbeddingCache) Option {
	return func(b *BatchEmbedder) {
		b.cache = cache
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *BatchEmbedder) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// NewBatchEmbedder creates a batch embedder. A nil config uses DefaultConfig.
func NewBatchEmbedder(embedder ai.Embedder, config *Config, opts ...Option) (*BatchEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &BatchEmbedder{
		embedder: embedder,
		config:   *config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "batch-embedder", "model", embedder.Model())

	if config.RateLimit > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return b, nil
}

// Config returns a copy of the embedder's configuration.
func (b *BatchEmbedder) Config() Config {
	return b.config
}

// Stats returns a snapshot of the counters.
func (b *BatchEmbedder) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// EmbedBatch returns one result per text, in input order.
//
// Texts are cleaned with CleanText. Blank texts map to the empty result and
// are never sent. Remaining texts are served from the cache when possible
// and otherwise sent to the provider in a single call, retried with backoff.
// If the call still fails, or returns a malformed response, every text sent
// in it degrades to the empty result.
//
// The only error returned is the context's.
func (b *BatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]core.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]core.EmbeddingResult, len(texts))

	// Original positions of the texts that still need a vector
	indices := make([]int, 0, len(texts))
	pending := make([]string, 0, len(texts))
	blank := 0
	for i, text := range texts {
		cleaned := CleanText(text)
		if strings.TrimSpace(cleaned) == "" {
			blank++
			continue
		}
		indices = append(indices, i)
		pending = append(pending, cleaned)
	}
	b.count(func(s *Stats) { s.Blank += blank })

	if len(pending) == 0 {
		return results, nil
	}

	indices, pending = b.fromCache(ctx, results, indices, pending)
	if len(pending) == 0 {
		return results, nil
	}

	vectors, err := b.call(ctx, pending)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.Warn("embedding batch failed, degrading to empty embeddings",
			"texts", len(pending), "attempts", b.config.MaxRetries, "err", err)
		b.count(func(s *Stats) {
			s.FailedBatches++
			s.Degraded += len(pending)
		})
		return results, nil
	}

	for j, vector := range vectors {
		if b.config.Normalize {
			vector = NormalizeVector(vector)
		}
		results[indices[j]] = core.EmbeddingResult{Vector: vector}
	}
	b.count(func(s *Stats) {
		s.Calls++
		s.Embedded += len(vectors)
	})
	b.toCache(ctx, pending, results, indices)

	return results, nil
}

// call sends texts to the provider, retrying failures and malformed replies.
func (b *BatchEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var err error
		vectors, err = b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrProvider, err)
		}
		return checkResponse(texts, vectors)
	}, b.config.MaxRetries, b.config.RetryDelay)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func checkResponse(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
			ErrMalformedResponse, len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at position %d", ErrMalformedResponse, i)
		}
	}
	return nil
}

// fromCache fills results for cached texts and returns what is left to embed.
func (b *BatchEmbedder) fromCache(ctx context.Context, results []core.EmbeddingResult, indices []int, texts []string) ([]int, []string) {
	if b.cache == nil {
		return indices, texts
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = core.ContentKey(text)
	}

	hits, err := b.cache.Get(ctx, b.embedder.Model(), keys)
	if err != nil {
		b.logger.Warn("embedding cache lookup failed", "err", err)
		return indices, texts
	}
	if len(hits) == 0 {
		return indices, texts
	}

	var (
		missIndices []int
		missTexts   []string
	)
	for i, key := range keys {
		vector, ok := hits[key]
		if !ok {
			missIndices = append(missIndices, indices[i])
			missTexts = append(missTexts, texts[i])
			continue
		}
		if b.config.Normalize {
			vector = NormalizeVector(vector)
		}
		results[indices[i]] = core.EmbeddingResult{Vector: vector}
	}

	served := len(texts) - len(missTexts)
	b.count(func(s *Stats) {
		s.CacheHits += served
		s.Embedded += served
	})
	b.logger.Debug("served embeddings from cache", "hits", served, "misses", len(missTexts))
	return missIndices, missTexts
}

// toCache stores freshly embedded vectors. Failures are logged and ignored.
func (b *BatchEmbedder) toCache(ctx context.Context, texts []string, results []core.EmbeddingResult, indices []int) {
	if b.cache == nil {
		return
	}
	entries := make(map[string][]float32, len(texts))
	for j, text := range texts {
		entries[core.ContentKey(text)] = results[indices[j]].Vector
	}
	if err := b.cache.Put(ctx, b.embedder.Model(), entries); err != nil {
		b.logger.Warn("embedding cache update failed", "err", err)
	}
}

func (b *BatchEmbedder) count(fn func(*Stats)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.stats)
}
