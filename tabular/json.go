package tabular

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/rowembed/core"
)

// nodeNamespace scopes node ids so they never collide with other UUID v5 users.
var nodeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/poiesic/rowembed/node"))

// NodeID returns the deterministic id of chunk seq of parentID.
func NodeID(parentID string, seq int) string {
	return uuid.NewSHA1(nodeNamespace, []byte(parentID+":"+strconv.Itoa(seq))).String()
}

// Metadata describes how a JSON output document was produced.
type Metadata struct {
	ChunkingMethod string    `json:"chunking_method"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Model          string    `json:"model"`
	CreatedAt      time.Time `json:"created_at"`
	Rows           int       `json:"rows"`
	Chunks         int       `json:"chunks"`
}

// Document is one source row and its chunks.
type Document struct {
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Fields     map[string]string `json:"fields"`
	Nodes      []Node            `json:"nodes"`

	rowIndex int
}

// Node is one embedded chunk.
type Node struct {
	NodeID    string               `json:"node_id"`
	ChunkID   int                  `json:"chunk_id"`
	Text      string               `json:"text"`
	Embedding core.EmbeddingResult `json:"embedding"`
}

// Output is the complete JSON document.
type Output struct {
	Metadata  Metadata    `json:"metadata"`
	Documents []*Document `json:"documents"`
}

// JSONSink collects output records into a single JSON document that is
// written on Commit.
type JSONSink struct {
	file   *atomicFile
	column string
	output Output
}

// NewJSONSink creates a JSON sink for records whose embed column is column.
// Rows, Chunks and a zero CreatedAt in meta are filled in on Commit.
func NewJSONSink(path, column string, meta Metadata) (*JSONSink, error) {
	file, err := createAtomic(path)
	if err != nil {
		return nil, err
	}
	return &JSONSink{
		file:   file,
		column: column,
		output: Output{Metadata: meta, Documents: []*Document{}},
	}, nil
}

// WriteRecord adds record to the document of its source row.
func (s *JSONSink) WriteRecord(_ context.Context, record core.OutputRecord) error {
	if s.file.closed {
		return ErrSinkClosed
	}

	doc := s.current(record.RowIndex)
	if doc == nil {
		fields := make(map[string]string, len(record.Fields.Columns))
		for i, column := range record.Fields.Columns {
			if column == s.column {
				continue
			}
			fields[column] = record.Fields.Values[i]
		}
		doc = &Document{
			DocumentID: record.ParentID,
			Text:       record.OriginalText,
			Fields:     fields,
			Nodes:      []Node{},
			rowIndex:   record.RowIndex,
		}
		s.output.Documents = append(s.output.Documents, doc)
	}

	doc.Nodes = append(doc.Nodes, Node{
		NodeID:    NodeID(record.ParentID, record.Seq),
		ChunkID:   record.Seq,
		Text:      record.Text,
		Embedding: record.Embedding,
	})
	s.output.Metadata.Chunks++
	return nil
}

// current returns the document being filled when it belongs to rowIndex.
func (s *JSONSink) current(rowIndex int) *Document {
	if n := len(s.output.Documents); n > 0 && s.output.Documents[n-1].rowIndex == rowIndex {
		return s.output.Documents[n-1]
	}
	return nil
}

// Commit writes the document and moves it into place.
func (s *JSONSink) Commit() error {
	s.output.Metadata.Rows = len(s.output.Documents)
	if s.output.Metadata.CreatedAt.IsZero() {
		s.output.Metadata.CreatedAt = time.Now().UTC()
	}

	enc := json.NewEncoder(s.file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.output); err != nil {
		s.file.abort()
		return err
	}
	return s.file.commit()
}

// Abort discards the document.
func (s *JSONSink) Abort() error {
	return s.file.abort()
}
