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
	"slices"
	"strconv"
	"strings"
	"time"
)

// SourceRow is one input record: ordered column names and their values.
// Columns and Values always have the same length.
type SourceRow struct {
	Index   int // Zero-based position in the input table
	Columns []string
	Values  []string
}

// Get returns the value stored under column.
func (r SourceRow) Get(column string) (string, bool) {
	i := slices.Index(r.Columns, column)
	if i < 0 || i >= len(r.Values) {
		return "", false
	}
	return r.Values[i], true
}

// With returns a copy of the row with column set to value.
// The receiver is left untouched. Unknown columns are appended.
func (r SourceRow) With(column, value string) SourceRow {
	out := SourceRow{
		Index:   r.Index,
		Columns: slices.Clone(r.Columns),
		Values:  slices.Clone(r.Values),
	}
	if i := slices.Index(out.Columns, column); i >= 0 {
		out.Values[i] = value
		return out
	}
	out.Columns = append(out.Columns, column)
	out.Values = append(out.Values, value)
	return out
}

// Chunk is a bounded unit of text derived from one source row.
// Seq starts at 0 for every parent and is not unique across parents.
type Chunk struct {
	RowIndex int
	ParentID string
	Seq      int
	Text     string
}

// EmbeddingResult is either a non-empty vector or the empty sentinel.
// The empty result marks a text that could not be embedded.
type EmbeddingResult struct {
	Vector []float32
}

// EmptyEmbedding is the degradation value for blank texts and failed batches.
var EmptyEmbedding = EmbeddingResult{}

// IsEmpty reports whether the result carries no vector.
func (e EmbeddingResult) IsEmpty() bool {
	return len(e.Vector) == 0
}

// String renders the vector as "[0.1, 0.2]", or "[]" when empty.
func (e EmbeddingResult) String() string {
	if e.IsEmpty() {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range e.Vector {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// MarshalJSON encodes the vector as a JSON array. The empty result is [].
func (e EmbeddingResult) MarshalJSON() ([]byte, error) {
	return []byte(e.String()), nil
}

// OutputRecord is one row of the primary output table.
type OutputRecord struct {
	RowIndex     int
	Fields       SourceRow // Source fields, embed column replaced by Text when chunking
	ParentID     string
	Seq          int
	Text         string // Text that was embedded, before newline normalization
	OriginalText string // Unchunked embed column value
	Embedding    EmbeddingResult
}

// LinkingRecord maps a parent identifier back to the unchunked source text.
type LinkingRecord struct {
	ParentID     string
	OriginalText string
}

// RunSummary reports the counters of a finished run.
type RunSummary struct {
	RowsRead       int
	RowsEmitted    int
	RowsDropped    int // Rows that produced no chunks
	Chunks         int
	RecordsWritten int
	LinksWritten   int
	BlankTexts     int // Texts degraded without a provider call
	Embedded       int // Texts that received a vector
	Degraded       int // Texts degraded by a failed batch
	FailedBatches  int
	CacheHits      int
	Elapsed        time.Duration
}
