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

package storage

import "context"

// EmbeddingCache stores successful embeddings keyed by model and content key.
// Implementations must be thread-safe and support concurrent access.
type EmbeddingCache interface {
	// Get looks up the vectors stored for keys under model.
	// Keys without an entry are absent from the returned map; a miss is
	// not an error.
	Get(ctx context.Context, model string, keys []string) (map[string][]float32, error)

	// Put stores vectors under model. Empty vectors are ignored so the
	// cache never holds a degraded result.
	Put(ctx context.Context, model string, entries map[string][]float32) error

	// Close releases the underlying storage.
	Close() error
}
