package tabular

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/rowembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func record(index, seq int, text, original string, vector ...float32) core.OutputRecord {
	row := core.SourceRow{
		Index:   index,
		Columns: []string{"id", "text"},
		Values:  []string{"r" + string(rune('0'+index)), original},
	}
	return core.OutputRecord{
		RowIndex:     index,
		Fields:       row.With("text", text),
		ParentID:     core.ParentID(original),
		Seq:          seq,
		Text:         text,
		OriginalText: original,
		Embedding:    core.EmbeddingResult{Vector: vector},
	}
}

func tempEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestCSVSink_Commit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	ctx := context.Background()

	sink, err := NewCSVSink(path, []string{"id", "text"}, true)
	require.NoError(t, err)

	require.NoError(t, sink.WriteRecord(ctx, record(0, 0, "hello", "hello", 0.5, -1)))
	require.NoError(t, sink.WriteRecord(ctx, record(1, 0, "", "")))

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "nothing visible before commit")

	require.NoError(t, sink.Commit())
	assert.Empty(t, tempEntries(t, dir))

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "text", "embedding", "parent_id"}, records[0])
	assert.Equal(t, []string{"r0", "hello", "[0.5, -1]", core.ParentID("hello")}, records[1])
	assert.Equal(t, []string{"r1", "", "[]", core.ParentID("")}, records[2])
}

func TestCSVSink_WithoutParentID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := NewCSVSink(path, []string{"id", "text"}, false)
	require.NoError(t, err)
	require.NoError(t, sink.WriteRecord(context.Background(), record(0, 0, "a", "a", 1)))
	require.NoError(t, sink.Commit())

	records := readCSV(t, path)
	assert.Equal(t, []string{"id", "text", "embedding"}, records[0])
	assert.Equal(t, []string{"r0", "a", "[1]"}, records[1])
}

func TestCSVSink_EmptyCommitWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := NewCSVSink(path, []string{"text"}, false)
	require.NoError(t, err)
	require.NoError(t, sink.Commit())

	assert.Equal(t, [][]string{{"text", "embedding"}}, readCSV(t, path))
}

func TestCSVSink_Abort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	sink, err := NewCSVSink(path, []string{"id", "text"}, false)
	require.NoError(t, err)
	require.NoError(t, sink.WriteRecord(context.Background(), record(0, 0, "a", "a", 1)))
	require.NoError(t, sink.Abort())

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, tempEntries(t, dir))

	assert.ErrorIs(t, sink.Commit(), ErrSinkClosed)
	assert.NoError(t, sink.Abort(), "abort is idempotent")
}

func TestCSVSink_ReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "out.csv", "stale\n")

	sink, err := NewCSVSink(path, []string{"text"}, false)
	require.NoError(t, err)
	require.NoError(t, sink.Commit())

	assert.Equal(t, [][]string{{"text", "embedding"}}, readCSV(t, path))
}

func TestLinkingCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "links.csv")
	ctx := context.Background()

	sink, err := NewLinkingCSVSink(path, "text")
	require.NoError(t, err)
	require.NoError(t, sink.WriteLink(ctx, core.LinkingRecord{ParentID: "p1", OriginalText: "one\ntwo"}))
	require.NoError(t, sink.WriteLink(ctx, core.LinkingRecord{ParentID: "p2", OriginalText: "three"}))
	require.NoError(t, sink.Commit())

	assert.Equal(t, [][]string{
		{"parent_id", "text"},
		{"p1", "one\ntwo"},
		{"p2", "three"},
	}, readCSV(t, path))
}

func TestJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	sink, err := NewJSONSink(path, "text", Metadata{
		ChunkingMethod: "words",
		ChunkSize:      2,
		Model:          "text-embedding-3-small",
		CreatedAt:      created,
	})
	require.NoError(t, err)

	original := "one two three"
	require.NoError(t, sink.WriteRecord(ctx, record(0, 0, "one two", original, 0.25)))
	require.NoError(t, sink.WriteRecord(ctx, record(0, 1, "three", original)))
	require.NoError(t, sink.WriteRecord(ctx, record(1, 0, "solo", "solo", 1, 2)))
	require.NoError(t, sink.Commit())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		Metadata  Metadata `json:"metadata"`
		Documents []struct {
			DocumentID string            `json:"document_id"`
			Text       string            `json:"text"`
			Fields     map[string]string `json:"fields"`
			Nodes      []struct {
				NodeID    string    `json:"node_id"`
				ChunkID   int       `json:"chunk_id"`
				Text      string    `json:"text"`
				Embedding []float32 `json:"embedding"`
			} `json:"nodes"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, 2, out.Metadata.Rows)
	assert.Equal(t, 3, out.Metadata.Chunks)
	assert.Equal(t, "words", out.Metadata.ChunkingMethod)
	assert.True(t, created.Equal(out.Metadata.CreatedAt))

	require.Len(t, out.Documents, 2)
	doc := out.Documents[0]
	assert.Equal(t, core.ParentID(original), doc.DocumentID)
	assert.Equal(t, original, doc.Text)
	assert.Equal(t, map[string]string{"id": "r0"}, doc.Fields, "embed column is not repeated")
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, 1, doc.Nodes[1].ChunkID)
	assert.Equal(t, "three", doc.Nodes[1].Text)
	assert.Equal(t, []float32{0.25}, doc.Nodes[0].Embedding)
	assert.Empty(t, doc.Nodes[1].Embedding)
	assert.Contains(t, string(data), `"embedding": []`)

	assert.Equal(t, NodeID(core.ParentID(original), 0), doc.Nodes[0].NodeID)
	assert.NotEqual(t, doc.Nodes[0].NodeID, doc.Nodes[1].NodeID)
}

func TestNodeID(t *testing.T) {
	id := NodeID("parent", 3)
	assert.Equal(t, id, NodeID("parent", 3), "deterministic")
	assert.NotEqual(t, id, NodeID("parent", 4))
	assert.NotEqual(t, id, NodeID("other", 3))

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, WriteManifest(path, Manifest{
		Incremental: true,
		PrimaryKey:  ParsePrimaryKey(" id, ,name "),
	}))

	data, err := os.ReadFile(path + ManifestSuffix)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.True(t, m.Incremental)
	assert.Equal(t, []string{"id", "name"}, m.PrimaryKey)
}

func TestParsePrimaryKey(t *testing.T) {
	assert.Equal(t, []string{}, ParsePrimaryKey(""))
	assert.Equal(t, []string{"a"}, ParsePrimaryKey("a"))
	assert.Equal(t, []string{"a", "b"}, ParsePrimaryKey("a,b"))
}
