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

package chunk

import (
	"iter"
	"slices"
	"strings"
	"unicode"
)

// Seq returns the chunks of text under p as a restartable sequence.
// An invalid policy yields nothing; call Policy.Validate first to surface
// the error.
func Seq(text string, p Policy) iter.Seq[string] {
	return func(yield func(string) bool) {
		if p.Validate() != nil {
			return
		}
		switch p.Method {
		case None:
			if t := strings.TrimSpace(text); t != "" {
				yield(t)
			}
		case Words:
			splitWords(text, p.Size, p.Overlap, yield)
		case Characters:
			splitCharacters(text, p.Size, yield)
		case Sentences:
			splitSentences(text, p.Size, yield)
		}
	}
}

// Split collects Seq into a slice.
func Split(text string, p Policy) []string {
	return slices.Collect(Seq(text, p))
}

func splitWords(text string, size, overlap int, yield func(string) bool) {
	words := strings.Fields(text)
	stride := size - overlap
	for start := 0; start < len(words); start += stride {
		end := min(start+size, len(words))
		if !yield(strings.Join(words[start:end], " ")) {
			return
		}
		// The window already reached the last word; anything after would
		// be a suffix of this chunk.
		if end == len(words) {
			return
		}
	}
}

func splitCharacters(text string, size int, yield func(string) bool) {
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		window := string(runes[start:min(start+size, len(runes))])
		if isBlank(window) {
			continue
		}
		if !yield(window) {
			return
		}
	}
}

func splitSentences(text string, size int, yield func(string) bool) {
	group := make([]string, 0, size)
	for s := range sentences(text) {
		group = append(group, s)
		if len(group) == size {
			if !yield(strings.Join(group, " ")) {
				return
			}
			group = group[:0]
		}
	}
	if len(group) > 0 {
		yield(strings.Join(group, " "))
	}
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
