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

// Package storage provides the embedding cache abstraction for rowembed.
//
// Re-running a table against the same model re-embeds every text. The
// EmbeddingCache interface lets the embed package skip provider calls for
// texts it has already embedded, keyed by model name and core.ContentKey.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.EmbeddingCache interface:
//
//	cache, err := badger.NewCache("/path/to/cache")  // returns storage.EmbeddingCache
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	cache, err := badger.NewMemoryCache()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
// # Serialization
//
// Vectors are stored with MarshalVector, a compact mus-go encoding.
//
// # Context Support
//
// All cache methods accept context.Context for cancellation.
package storage
