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

package badger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rowembed/storage"
)

// Cache implements storage.EmbeddingCache on top of BadgerDB.
type Cache struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.EmbeddingCache = (*Cache)(nil)

// newCache is an internal constructor that returns the concrete type.
func newCache(backend *Backend, ownsBackend bool) *Cache {
	return &Cache{
		backend:     backend,
		ownsBackend: ownsBackend,
		logger:      backend.logger.With("repository", "embeddings"),
	}
}

// NewCache opens (or creates) a persistent embedding cache in dir.
func NewCache(dir string) (storage.EmbeddingCache, error) {
	backend, err := OpenBackend(dir, false)
	if err != nil {
		return nil, err
	}
	return newCache(backend, true), nil
}

// NewCacheWithBackend creates a cache over an already opened backend.
// Closing the cache leaves the backend open.
func NewCacheWithBackend(backend *Backend) (storage.EmbeddingCache, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return newCache(backend, false), nil
}

// Get returns the cached vectors for keys under model.
// Undecodable entries are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	if err := c.check(ctx, model); err != nil {
		return nil, err
	}

	found := make(map[string][]float32)
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			item, err := tx.Get(makeEmbeddingKey(model, key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			var vector []float32
			err = item.Value(func(val []byte) error {
				var err error
				vector, err = storage.UnmarshalVector(val)
				return err
			})
			if err != nil {
				c.logger.Warn("discarding unreadable cache entry", "key", key, "err", err)
				continue
			}
			if len(vector) > 0 {
				found[key] = vector
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return found, nil
}

// Put stores non-empty vectors under model.
func (c *Cache) Put(ctx context.Context, model string, entries map[string][]float32) error {
	if err := c.check(ctx, model); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		written := 0
		for key, vector := range entries {
			if len(vector) == 0 {
				continue
			}
			if err := tx.Set(makeEmbeddingKey(model, key), storage.MarshalVector(vector)); err != nil {
				return err
			}
			written++
		}
		if written == 0 {
			return nil
		}
		c.logger.Debug("caching embeddings", "model", model, "count", written)
		return tx.Commit()
	}, true)
}

// Count returns the number of vectors cached for model.
func (c *Cache) Count(ctx context.Context, model string) (int, error) {
	if err := c.check(ctx, model); err != nil {
		return 0, err
	}

	count := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeModelPrefix(model)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close closes the backend when the cache opened it.
func (c *Cache) Close() error {
	if !c.ownsBackend || c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}

func (c *Cache) check(ctx context.Context, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if model == "" {
		return storage.ErrInvalidModel
	}
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}
