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
	"regexp"
	"strings"
	"unicode"
)

// paragraphBreak matches a blank line, which always ends a sentence.
var paragraphBreak = regexp.MustCompile(`\r?\n[ \t\r]*\n`)

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}

// sentences yields the trimmed, non-blank sentences of text in order.
//
// A sentence ends after a run of terminators (. ! ?), optionally followed by
// closing quotes or brackets, when the next rune is whitespace or the text
// ends. Abbreviations are not special-cased.
func sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, para := range paragraphBreak.Split(text, -1) {
			for s := range paragraphSentences(para) {
				if !yield(s) {
					return
				}
			}
		}
	}
}

func paragraphSentences(para string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(para)
		start := 0
		emit := func(end int) bool {
			s := strings.TrimSpace(string(runes[start:end]))
			start = end
			if s == "" {
				return true
			}
			return yield(s)
		}

		for i := 0; i < len(runes); {
			if !isTerminator(runes[i]) {
				i++
				continue
			}
			j := i
			for j < len(runes) && isTerminator(runes[j]) {
				j++
			}
			for j < len(runes) && isCloser(runes[j]) {
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				if !emit(j) {
					return
				}
			}
			i = j
		}
		if start < len(runes) {
			emit(len(runes))
		}
	}
}
