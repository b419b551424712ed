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

package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

const (
	parentIDSize   = 32 // BLAKE2b-256
	contentKeySize = 16
)

// ParentID returns the lowercase hex BLAKE2b-256 digest of text.
// Callers pass the original, unchunked value of the embed column so that
// every chunk of a row shares the identifier.
func ParentID(text string) string {
	return digest(text, parentIDSize)
}

// ContentKey returns a shorter BLAKE2b digest used to key cached embeddings.
// Identical texts produce identical keys across runs.
func ContentKey(text string) string {
	return digest(text, contentKeySize)
}

func digest(text string, size int) string {
	h, _ := blake2b.New(size, nil) // only fails for invalid sizes or keys
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
