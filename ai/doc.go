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

// Package ai provides the embedding capability used by rowembed.
//
// The package defines the Embedder interface and its provider configuration.
// Batching, retries and degradation live in the embed package; an Embedder
// only turns a slice of texts into a slice of vectors or fails as a whole.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder INTERFACE
// to prevent accidental coupling to a concrete provider:
//
//	embedder, err := openai.NewEmbedder(config)  // returns ai.Embedder
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable behavior injection and call assertions:
//
//	mockEmbed := mock.NewMockEmbedder()
//	mockEmbed.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("boom")
//	}
//	count := mockEmbed.CallCount()
//
// # Model Aliases
//
// Configuration may name models by alias:
//
//   - small_03: text-embedding-3-small
//   - large_03: text-embedding-3-large
//   - ada_002: text-embedding-ada-002
//
// Config.Normalize expands aliases; any other name is passed through.
package ai
