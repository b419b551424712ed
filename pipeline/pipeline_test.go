package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/rowembed/ai/mock"
	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/core"
	"github.com/poiesic/rowembed/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySink collects records and links in one shared log so the test can
// check their interleaving.
type memorySink struct {
	records []core.OutputRecord
	links   []core.LinkingRecord
	log     []string
	failOn  int // fail the n-th record write when > 0
}

func (s *memorySink) WriteRecord(_ context.Context, record core.OutputRecord) error {
	if s.failOn > 0 && len(s.records)+1 == s.failOn {
		return errors.New("disk full")
	}
	s.records = append(s.records, record)
	s.log = append(s.log, fmt.Sprintf("record:%d:%d", record.RowIndex, record.Seq))
	return nil
}

func (s *memorySink) WriteLink(_ context.Context, link core.LinkingRecord) error {
	s.links = append(s.links, link)
	s.log = append(s.log, "link:"+link.ParentID[:8])
	return nil
}

type countingProgress struct {
	started, finished bool
	count             int
}

func (p *countingProgress) Start()              { p.started = true }
func (p *countingProgress) Increment(delta int) { p.count += delta }
func (p *countingProgress) Finish()             { p.finished = true }

func rowsOf(texts ...string) iter.Seq2[core.SourceRow, error] {
	return func(yield func(core.SourceRow, error) bool) {
		for i, text := range texts {
			row := core.SourceRow{
				Index:   i,
				Columns: []string{"id", "body"},
				Values:  []string{fmt.Sprintf("r%d", i), text},
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func newTestEmbedder(t *testing.T, embedder *mock.MockEmbedder, batchSize, concurrency int) *embed.BatchEmbedder {
	t.Helper()
	cfg := embed.DefaultConfig()
	cfg.BatchSize = batchSize
	cfg.Concurrency = concurrency
	cfg.RetryDelay = time.Millisecond
	be, err := embed.NewBatchEmbedder(embedder, cfg)
	require.NoError(t, err)
	return be
}

func TestNewPipeline_Validation(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	sink := &memorySink{}

	_, err := NewPipeline(nil, "body", sink)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(be, "", sink)
	assert.ErrorIs(t, err, ErrColumnRequired)

	_, err = NewPipeline(be, "body", nil)
	assert.ErrorIs(t, err, ErrOutputRequired)

	_, err = NewPipeline(be, "body", sink, WithChunking(chunk.Policy{Method: chunk.Words, Size: 2, Overlap: 2}))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestRun_NonChunkingOneRecordPerRow(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	be := newTestEmbedder(t, embedder, 2, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink)
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), rowsOf("first text", "", "third\ntext"))
	require.NoError(t, err)

	require.Len(t, sink.records, 3, "output row count equals input row count")
	assert.Equal(t, 3, summary.RowsRead)
	assert.Equal(t, 3, summary.RecordsWritten)
	assert.Equal(t, 1, summary.BlankTexts)
	assert.Equal(t, 2, summary.Embedded)

	// Fields unchanged, including the raw text
	assert.Equal(t, []string{"r2", "third\ntext"}, sink.records[2].Fields.Values)
	assert.Equal(t, mock.Vector("third text", mock.DefaultDimensions), sink.records[2].Embedding.Vector)

	assert.True(t, sink.records[1].Embedding.IsEmpty(), "blank row kept with the empty marker")
	assert.Equal(t, "[]", sink.records[1].Embedding.String())
	assert.Equal(t, core.ParentID(""), sink.records[1].ParentID)

	assert.Empty(t, sink.links, "linking disabled")
}

func TestRun_ChunkingRecordCountMatchesChunks(t *testing.T) {
	texts := []string{
		"one two three four five",
		"",
		"alpha beta",
		"   ",
		"x",
	}
	policy := chunk.Policy{Method: chunk.Words, Size: 2}

	expected := 0
	for _, text := range texts {
		expected += len(chunk.Split(text, policy))
	}

	be := newTestEmbedder(t, mock.NewMockEmbedder(), 3, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink, WithChunking(policy))
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), rowsOf(texts...))
	require.NoError(t, err)

	assert.Equal(t, expected, len(sink.records))
	assert.Equal(t, 5, summary.RowsRead)
	assert.Equal(t, 3, summary.RowsEmitted)
	assert.Equal(t, 2, summary.RowsDropped)
	assert.Equal(t, expected, summary.Chunks)
}

func TestRun_ChunkingReplacesEmbedColumn(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink, WithChunking(chunk.Policy{Method: chunk.Words, Size: 2}))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("one two three four five"))
	require.NoError(t, err)
	require.Len(t, sink.records, 3)

	parent := core.ParentID("one two three four five")
	for i, want := range []string{"one two", "three four", "five"} {
		record := sink.records[i]
		body, _ := record.Fields.Get("body")
		id, _ := record.Fields.Get("id")
		assert.Equal(t, want, body)
		assert.Equal(t, "r0", id)
		assert.Equal(t, want, record.Text)
		assert.Equal(t, i, record.Seq)
		assert.Equal(t, parent, record.ParentID, "parent id hashes the original text")
		assert.Equal(t, "one two three four five", record.OriginalText)
		assert.Equal(t, mock.Vector(want, mock.DefaultDimensions), record.Embedding.Vector)
	}
}

func TestRun_CharactersScenario(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink, WithChunking(chunk.Policy{Method: chunk.Characters, Size: 3}))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("abcdefg"))
	require.NoError(t, err)

	var got []string
	for _, r := range sink.records {
		got = append(got, r.Text)
	}
	assert.Equal(t, []string{"abc", "def", "g"}, got)
}

func TestRun_LinkingLockstep(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 2, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink,
		WithChunking(chunk.Policy{Method: chunk.Words, Size: 1}),
		WithLinking(sink))
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), rowsOf("a b c", "", "d"))
	require.NoError(t, err)

	pa := core.ParentID("a b c")[:8]
	pd := core.ParentID("d")[:8]
	assert.Equal(t, []string{
		"record:0:0", "record:0:1", "record:0:2", "link:" + pa,
		"record:2:0", "link:" + pd,
	}, sink.log)
	assert.Equal(t, 2, summary.LinksWritten)
}

func TestRun_LinkingParentIDsMatchOutput(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 4, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink,
		WithChunking(chunk.Policy{Method: chunk.Sentences, Size: 1}),
		WithLinking(sink))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf(
		"First one. Second one!",
		"",
		"Only sentence here",
		"Another. And another? Yes.",
	))
	require.NoError(t, err)

	outputIDs := make(map[string]bool)
	for _, r := range sink.records {
		outputIDs[r.ParentID] = true
	}
	linkIDs := make(map[string]bool)
	for _, l := range sink.links {
		linkIDs[l.ParentID] = true
		assert.Equal(t, core.ParentID(l.OriginalText), l.ParentID)
	}
	assert.Equal(t, outputIDs, linkIDs)
}

func TestRun_DuplicateTextsNotDeduplicated(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink, WithLinking(sink))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("same text", "same text"))
	require.NoError(t, err)

	require.Len(t, sink.records, 2)
	assert.Equal(t, sink.records[0].ParentID, sink.records[1].ParentID)
	assert.NotEqual(t, sink.records[0].RowIndex, sink.records[1].RowIndex)
	assert.Len(t, sink.links, 2, "one linking record per source row")
}

func TestRun_ProviderFailureDoesNotAbort(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "bad") {
				return nil, errors.New("rejected")
			}
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, 4)
		}
		return out, nil
	}
	be := newTestEmbedder(t, embedder, 2, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink)
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), rowsOf("ok1", "ok2", "bad", "ok3", "ok4"))
	require.NoError(t, err)
	require.Len(t, sink.records, 5)

	for i, r := range sink.records {
		assert.Equal(t, i == 2 || i == 3, r.Embedding.IsEmpty(), "row %d", i)
	}
	assert.Equal(t, 1, summary.FailedBatches)
	assert.Equal(t, 2, summary.Degraded)
	assert.Equal(t, 3, summary.Embedded)
}

func TestRun_BatchSizeDoesNotChangeOutput(t *testing.T) {
	texts := []string{"a b c d", "", "e f", "g", "h i j k l m"}
	policy := chunk.Policy{Method: chunk.Words, Size: 2, Overlap: 1}

	run := func(batchSize, concurrency int) []core.OutputRecord {
		be := newTestEmbedder(t, mock.NewMockEmbedder(), batchSize, concurrency)
		sink := &memorySink{}
		p, err := NewPipeline(be, "body", sink, WithChunking(policy))
		require.NoError(t, err)
		_, err = p.Run(context.Background(), rowsOf(texts...))
		require.NoError(t, err)
		return sink.records
	}

	expected := run(1, 1)
	assert.Equal(t, expected, run(3, 1))
	assert.Equal(t, expected, run(100, 1))
	assert.Equal(t, expected, run(2, 4))
}

func TestRun_MissingColumnIsFatal(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	be := newTestEmbedder(t, embedder, 10, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "text", sink)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("anything"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.ErrorIs(t, err, core.ErrMissingColumn)
	assert.Empty(t, sink.records)
	assert.Zero(t, embedder.CallCount())
}

func TestRun_RowErrorIsFatal(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink)
	require.NoError(t, err)

	shapeErr := &core.DataShapeError{Row: 1, Err: errors.New("wrong number of fields")}
	rows := func(yield func(core.SourceRow, error) bool) {
		if !yield(core.SourceRow{Columns: []string{"body"}, Values: []string{"ok"}}, nil) {
			return
		}
		yield(core.SourceRow{}, shapeErr)
	}

	summary, err := p.Run(context.Background(), rows)
	assert.ErrorIs(t, err, core.ErrDataShape)
	assert.Equal(t, 1, summary.RowsRead)
}

func TestRun_SinkErrorIsFatal(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 1, 1)
	sink := &memorySink{failOn: 2}
	p, err := NewPipeline(be, "body", sink)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("a", "b", "c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, sink.records, 1)
}

func TestRun_ContextCanceled(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	sink := &memorySink{}
	p, err := NewPipeline(be, "body", sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, rowsOf("a", "b"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.records)
}

func TestRun_Progress(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 2, 1)
	sink := &memorySink{}
	progress := &countingProgress{}
	p, err := NewPipeline(be, "body", sink,
		WithChunking(chunk.Policy{Method: chunk.Words, Size: 5}),
		WithProgress(progress))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("a", "", "b c", "d"))
	require.NoError(t, err)

	assert.True(t, progress.started)
	assert.True(t, progress.finished)
	assert.Equal(t, 4, progress.count, "dropped rows count as processed")
}

func TestRun_SummaryCountsOnlyThisRun(t *testing.T) {
	be := newTestEmbedder(t, mock.NewMockEmbedder(), 10, 1)
	p, err := NewPipeline(be, "body", &memorySink{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), rowsOf("a", "b"))
	require.NoError(t, err)
	summary, err := p.Run(context.Background(), rowsOf("c"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RowsRead)
	assert.Equal(t, 1, summary.Embedded)
}
