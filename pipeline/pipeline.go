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

package pipeline

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/core"
	"github.com/poiesic/rowembed/embed"
)

// Pipeline expands source rows into embedded output records.
type Pipeline struct {
	embedder *embed.BatchEmbedder
	column   string
	output   OutputSink
	linking  LinkingSink
	chunking bool
	policy   chunk.Policy
	progress Progress
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking enables the chunking path under policy. The policy is
// validated here so a bad configuration fails before any row is read.
func WithChunking(policy chunk.Policy) Option {
	return func(p *Pipeline) error {
		policy = policy.WithDefaults()
		if err := policy.Validate(); err != nil {
			return err
		}
		p.chunking = true
		p.policy = policy
		return nil
	}
}

// WithLinking emits one linking record per row that produced output.
func WithLinking(sink LinkingSink) Option {
	return func(p *Pipeline) error {
		p.linking = sink
		return nil
	}
}

// WithProgress reports every processed row to progress.
func WithProgress(progress Progress) Option {
	return func(p *Pipeline) error {
		p.progress = progress
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline that embeds column through embedder and
// writes records to output.
func NewPipeline(embedder *embed.BatchEmbedder, column string, output OutputSink, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if column == "" {
		return nil, ErrColumnRequired
	}
	if output == nil {
		return nil, ErrOutputRequired
	}

	p := &Pipeline{
		embedder: embedder,
		column:   column,
		output:   output,
		policy:   chunk.Policy{Method: chunk.None},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// pendingRow is a source row waiting for its chunk embeddings.
type pendingRow struct {
	row       core.SourceRow
	parentID  string
	original  string
	chunks    []string
	results   []core.EmbeddingResult
	remaining int
}

// chunkRef locates one queued chunk.
type chunkRef struct {
	row *pendingRow
	seq int
}

// run holds the state of a single Run call.
type run struct {
	*Pipeline
	queue   []*pendingRow
	summary core.RunSummary
}

// Run processes rows in order and returns the run counters.
//
// A row error from the iterator, a row without the embed column or a sink
// failure aborts the run. Provider failures do not; they show up in the
// summary as degraded texts.
func (p *Pipeline) Run(ctx context.Context, rows iter.Seq2[core.SourceRow, error]) (core.RunSummary, error) {
	start := time.Now()
	before := p.embedder.Stats()

	r := &run{Pipeline: p}
	batcher, err := embed.NewBatcher(p.embedder, func(ref chunkRef, result core.EmbeddingResult) {
		ref.row.results[ref.seq] = result
		ref.row.remaining--
	})
	if err != nil {
		return r.summary, err
	}
	defer batcher.Release()

	p.logger.Info("starting run",
		"column", p.column, "chunking", p.chunking, "policy", p.policy.String(),
		"linking", p.linking != nil)

	if p.progress != nil {
		p.progress.Start()
	}

	for row, rowErr := range rows {
		if rowErr != nil {
			return r.finish(before, start), rowErr
		}
		if err := ctx.Err(); err != nil {
			return r.finish(before, start), err
		}

		pending, err := r.expand(row)
		if err != nil {
			return r.finish(before, start), err
		}
		r.queue = append(r.queue, pending)

		for seq, text := range pending.chunks {
			if err := batcher.Add(ctx, chunkRef{row: pending, seq: seq}, text); err != nil {
				return r.finish(before, start), err
			}
		}

		if err := r.drain(ctx); err != nil {
			return r.finish(before, start), err
		}
	}

	if err := batcher.Flush(ctx); err != nil {
		return r.finish(before, start), err
	}
	if err := r.drain(ctx); err != nil {
		return r.finish(before, start), err
	}

	if p.progress != nil {
		p.progress.Finish()
	}

	summary := r.finish(before, start)
	p.logger.Info("run complete",
		"rows", summary.RowsRead,
		"records", summary.RecordsWritten,
		"links", summary.LinksWritten,
		"degraded", summary.Degraded,
		"failed_batches", summary.FailedBatches,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// expand validates row and derives its parent identifier and chunks.
func (r *run) expand(row core.SourceRow) (*pendingRow, error) {
	if err := core.ValidateRow(row, r.column); err != nil {
		return nil, err
	}
	r.summary.RowsRead++

	original, _ := row.Get(r.column)
	pending := &pendingRow{
		row:      row,
		parentID: core.ParentID(original),
		original: original,
	}

	if r.chunking {
		for text := range chunk.Seq(original, r.policy) {
			pending.chunks = append(pending.chunks, text)
		}
	} else {
		// Blank texts still yield a record carrying the empty marker
		pending.chunks = []string{original}
	}

	pending.results = make([]core.EmbeddingResult, len(pending.chunks))
	pending.remaining = len(pending.chunks)
	r.summary.Chunks += len(pending.chunks)
	return pending, nil
}

// drain emits every completed row at the head of the queue.
func (r *run) drain(ctx context.Context) error {
	for len(r.queue) > 0 && r.queue[0].remaining == 0 {
		head := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]

		if err := r.emit(ctx, head); err != nil {
			return err
		}
		if r.progress != nil {
			r.progress.Increment(1)
		}
	}
	return nil
}

// emit writes a row's output records followed by its linking record.
func (r *run) emit(ctx context.Context, pending *pendingRow) error {
	if len(pending.chunks) == 0 {
		r.summary.RowsDropped++
		r.logger.Debug("dropping row without chunks", "row", pending.row.Index)
		return nil
	}

	for seq, text := range pending.chunks {
		fields := pending.row
		if r.chunking {
			fields = pending.row.With(r.column, text)
		}
		record := core.OutputRecord{
			RowIndex:     pending.row.Index,
			Fields:       fields,
			ParentID:     pending.parentID,
			Seq:          seq,
			Text:         text,
			OriginalText: pending.original,
			Embedding:    pending.results[seq],
		}
		if err := r.output.WriteRecord(ctx, record); err != nil {
			return fmt.Errorf("writing record for row %d: %w", pending.row.Index, err)
		}
		r.summary.RecordsWritten++
	}
	r.summary.RowsEmitted++

	if r.linking == nil {
		return nil
	}
	link := core.LinkingRecord{ParentID: pending.parentID, OriginalText: pending.original}
	if err := r.linking.WriteLink(ctx, link); err != nil {
		return fmt.Errorf("writing link for row %d: %w", pending.row.Index, err)
	}
	r.summary.LinksWritten++
	return nil
}

// finish fills the embedding counters accumulated since before.
func (r *run) finish(before embed.Stats, start time.Time) core.RunSummary {
	after := r.embedder.Stats()
	r.summary.BlankTexts = after.Blank - before.Blank
	r.summary.Embedded = after.Embedded - before.Embedded
	r.summary.Degraded = after.Degraded - before.Degraded
	r.summary.FailedBatches = after.FailedBatches - before.FailedBatches
	r.summary.CacheHits = after.CacheHits - before.CacheHits
	r.summary.Elapsed = time.Since(start)
	return r.summary
}
