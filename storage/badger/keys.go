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

// Key prefixes for different data types
const (
	embeddingPrefix = "emb"
)

// makeEmbeddingKey generates a key for a cached embedding.
// Format: prefix:model:contentKey
func makeEmbeddingKey(model, contentKey string) []byte {
	totalSize := len(embeddingPrefix) + 1 + len(model) + 1 + len(contentKey)
	buf := make([]byte, totalSize)
	offset := copy(buf, embeddingPrefix)
	buf[offset] = ':'
	offset++
	offset += copy(buf[offset:], model)
	buf[offset] = ':'
	offset++
	copy(buf[offset:], contentKey)
	return buf
}

// makeModelPrefix generates the key prefix shared by every embedding of model.
// Format: prefix:model:
func makeModelPrefix(model string) []byte {
	return []byte(embeddingPrefix + ":" + model + ":")
}
