// Package chunk splits text into bounded, ordered chunks under a Policy.
//
// Four methods are supported:
//
//   - none: the whole trimmed text as a single chunk
//   - words: Size whitespace-delimited words per chunk, sliding by Size-Overlap
//   - characters: non-overlapping windows of Size runes
//   - sentences: Size sentences per chunk, non-overlapping
//
// No method ever yields an empty or whitespace-only chunk, so blank text
// produces zero chunks. Splitting is pure: the same text and policy always
// produce the same sequence.
//
//	for c := range chunk.Seq(text, chunk.Policy{Method: chunk.Words, Size: 2}) {
//	    fmt.Println(c)
//	}
package chunk
