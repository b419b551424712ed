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
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/rowembed/core"
)

// ErrDeliverRequired is returned when NewBatcher is given no delivery callback.
var ErrDeliverRequired = errors.New("deliver callback required")

// Batcher buffers keyed texts and embeds them in batches.
//
// Results are handed to the deliver callback in the order the texts were
// added. With Concurrency > 1 the buffer holds Concurrency full batches,
// which are embedded in parallel on a worker pool and delivered together.
// A Batcher is not safe for concurrent use.
type Batcher[K any] struct {
	embedder *BatchEmbedder
	deliver  func(K, core.EmbeddingResult)
	pool     *ants.Pool

	batchSize int
	capacity  int
	keys      []K
	texts     []string
}

// NewBatcher creates a batcher that embeds through be and reports every
// result to deliver. Call Release when done.
func NewBatcher[K any](be *BatchEmbedder, deliver func(K, core.EmbeddingResult)) (*Batcher[K], error) {
	if be == nil {
		return nil, ErrEmbedderRequired
	}
	if deliver == nil {
		return nil, ErrDeliverRequired
	}

	cfg := be.Config()
	b := &Batcher[K]{
		embedder:  be,
		deliver:   deliver,
		batchSize: cfg.BatchSize,
		capacity:  cfg.BatchSize * cfg.Concurrency,
	}

	if cfg.Concurrency > 1 {
		pool, err := ants.NewPool(cfg.Concurrency)
		if err != nil {
			return nil, err
		}
		b.pool = pool
	}

	b.keys = make([]K, 0, b.capacity)
	b.texts = make([]string, 0, b.capacity)
	return b, nil
}

// Add queues text under key and flushes once the buffer is full.
func (b *Batcher[K]) Add(ctx context.Context, key K, text string) error {
	b.keys = append(b.keys, key)
	b.texts = append(b.texts, text)
	if len(b.texts) >= b.capacity {
		return b.Flush(ctx)
	}
	return nil
}

// Pending returns the number of buffered texts.
func (b *Batcher[K]) Pending() int {
	return len(b.texts)
}

// Flush embeds everything buffered and delivers the results.
// It returns an error only when ctx is done; nothing is delivered then.
func (b *Batcher[K]) Flush(ctx context.Context) error {
	if len(b.texts) == 0 {
		return nil
	}

	results, err := b.embed(ctx)
	if err != nil {
		return err
	}

	for i, key := range b.keys {
		b.deliver(key, results[i])
	}

	clear(b.keys)
	b.keys = b.keys[:0]
	b.texts = b.texts[:0]
	return nil
}

// Release frees the worker pool, if any.
func (b *Batcher[K]) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

func (b *Batcher[K]) embed(ctx context.Context) ([]core.EmbeddingResult, error) {
	if b.pool == nil || len(b.texts) <= b.batchSize {
		results := make([]core.EmbeddingResult, 0, len(b.texts))
		for start := 0; start < len(b.texts); start += b.batchSize {
			end := min(start+b.batchSize, len(b.texts))
			batch, err := b.embedder.EmbedBatch(ctx, b.texts[start:end])
			if err != nil {
				return nil, err
			}
			results = append(results, batch...)
		}
		return results, nil
	}

	// Each batch writes only its own slot
	results := make([]core.EmbeddingResult, len(b.texts))
	errs := make([]error, 0)
	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
	)
	for start := 0; start < len(b.texts); start += b.batchSize {
		end := min(start+b.batchSize, len(b.texts))
		texts := b.texts[start:end]
		slot := results[start:end]

		task := func() {
			defer wg.Done()
			batch, err := b.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
				return
			}
			copy(slot, batch)
		}

		wg.Add(1)
		if err := b.pool.Submit(task); err != nil {
			// Pool closed or overloaded; run in place
			task()
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}
	return results, nil
}
