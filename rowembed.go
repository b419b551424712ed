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

// Package rowembed assembles a complete embedding run: one input table,
// the embedding client, an optional cache and the output tables.
package rowembed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/rowembed/ai"
	"github.com/poiesic/rowembed/ai/openai"
	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/config"
	"github.com/poiesic/rowembed/core"
	"github.com/poiesic/rowembed/embed"
	"github.com/poiesic/rowembed/pipeline"
	"github.com/poiesic/rowembed/storage"
	"github.com/poiesic/rowembed/storage/badger"
	"github.com/poiesic/rowembed/tabular"
)

// Job is a single run over one input table. A Job runs once.
type Job struct {
	settings  *config.Settings
	table     *tabular.Table
	embedder  *embed.BatchEmbedder
	cache     storage.EmbeddingCache
	ownsCache bool
	policy    chunk.Policy
	outputs   *outputs
	progress  pipeline.Progress
	logger    *slog.Logger
}

// JobOption configures a Job.
type JobOption func(*jobOptions)

type jobOptions struct {
	embedder ai.Embedder
	cache    storage.EmbeddingCache
	progress pipeline.Progress
	logger   *slog.Logger
}

// WithEmbedder replaces the OpenAI-compatible client built from the settings.
func WithEmbedder(embedder ai.Embedder) JobOption {
	return func(o *jobOptions) {
		o.embedder = embedder
	}
}

// WithCache uses cache instead of opening settings.CacheDir.
// The caller keeps ownership of cache.
func WithCache(cache storage.EmbeddingCache) JobOption {
	return func(o *jobOptions) {
		o.cache = cache
	}
}

// WithProgress reports each emitted row to progress.
func WithProgress(progress pipeline.Progress) JobOption {
	return func(o *jobOptions) {
		o.progress = progress
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) JobOption {
	return func(o *jobOptions) {
		o.logger = logger
	}
}

// NewJob prepares a run of table with settings, writing output tables into
// outputDir. Settings must already have defaults applied and be valid.
// Nothing is written to outputDir until Run succeeds.
func NewJob(settings *config.Settings, table *tabular.Table, outputDir string, opts ...JobOption) (*Job, error) {
	options := &jobOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	if err := table.Validate(settings.EmbedColumn); err != nil {
		return nil, err
	}

	j := &Job{
		settings: settings,
		table:    table,
		progress: options.progress,
		logger:   options.logger,
	}

	if settings.Chunking.IsEnabled {
		policy, err := settings.Policy()
		if err != nil {
			return nil, err
		}
		j.policy = policy
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(settings.AIConfig(), openai.WithLogger(options.logger))
		if err != nil {
			return nil, &core.ConfigurationError{Field: "model", Message: "cannot create embedding client", Err: err}
		}
	}

	j.cache = options.cache
	if j.cache == nil && settings.CacheDir != "" {
		cache, err := badger.NewCache(settings.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		j.cache = cache
		j.ownsCache = true
	}

	embedOpts := []embed.Option{embed.WithLogger(options.logger)}
	if j.cache != nil {
		embedOpts = append(embedOpts, embed.WithCache(j.cache))
	}
	batchEmbedder, err := embed.NewBatchEmbedder(embedder, settings.EmbedConfig(), embedOpts...)
	if err != nil {
		j.Close()
		return nil, err
	}
	j.embedder = batchEmbedder

	out, err := openOutputs(outputDir, table, settings, j.policy)
	if err != nil {
		j.Close()
		return nil, err
	}
	j.outputs = out

	return j, nil
}

// Policy returns the chunk policy, or the zero Policy when chunking is off.
func (j *Job) Policy() chunk.Policy {
	return j.policy
}

// OutputPath returns where the primary output table is written.
func (j *Job) OutputPath() string {
	return j.outputs.primaryPath
}

// LinkingPath returns where the linking table is written, or "" when
// linking is disabled.
func (j *Job) LinkingPath() string {
	return j.outputs.linkingPath
}

// Run embeds every row of the input table. On success the output tables
// are moved into place; on failure they are discarded.
func (j *Job) Run(ctx context.Context) (core.RunSummary, error) {
	opts := []pipeline.Option{pipeline.WithLogger(j.logger)}
	if j.progress != nil {
		opts = append(opts, pipeline.WithProgress(j.progress))
	}
	if j.settings.Chunking.IsEnabled {
		opts = append(opts, pipeline.WithChunking(j.policy))
	}
	if j.outputs.linking != nil {
		opts = append(opts, pipeline.WithLinking(j.outputs.linking))
	}

	p, err := pipeline.NewPipeline(j.embedder, j.settings.EmbedColumn, j.outputs.primary, opts...)
	if err != nil {
		j.outputs.abort(j.logger)
		return core.RunSummary{}, err
	}

	summary, err := p.Run(ctx, j.table.Rows())
	if err != nil {
		j.outputs.abort(j.logger)
		return summary, err
	}
	if err := j.outputs.commit(); err != nil {
		return summary, fmt.Errorf("failed to write output: %w", err)
	}
	if err := writeManifest(j.outputs.primaryPath, j.settings); err != nil {
		return summary, fmt.Errorf("failed to write manifest: %w", err)
	}
	return summary, nil
}

// Close discards uncommitted output and closes a cache the Job opened.
func (j *Job) Close() error {
	if j.outputs != nil {
		j.outputs.abort(j.logger)
	}
	if j.ownsCache && j.cache != nil {
		if err := j.cache.Close(); err != nil {
			j.logger.Error("error closing embedding cache", "err", err)
			return err
		}
	}
	return nil
}

type primarySink interface {
	pipeline.OutputSink
	tabular.Committer
}

type outputs struct {
	primary     primarySink
	primaryPath string
	linking     *tabular.LinkingCSVSink
	linkingPath string
}

func openOutputs(dir string, table *tabular.Table, s *config.Settings, policy chunk.Policy) (*outputs, error) {
	out := &outputs{}

	switch s.OutputFormat {
	case config.FormatJSON:
		out.primaryPath = filepath.Join(dir, s.Destination.OutputTableName+".json")
		method := string(chunk.None)
		if s.Chunking.IsEnabled {
			method = string(policy.Method)
		}
		sink, err := tabular.NewJSONSink(out.primaryPath, s.EmbedColumn, tabular.Metadata{
			ChunkingMethod: method,
			ChunkSize:      policy.Size,
			ChunkOverlap:   policy.Overlap,
			Model:          s.Model,
		})
		if err != nil {
			return nil, err
		}
		out.primary = sink
	default:
		out.primaryPath = filepath.Join(dir, s.Destination.OutputTableName+".csv")
		sink, err := tabular.NewCSVSink(out.primaryPath, table.Columns, s.Destination.EmitLinking)
		if err != nil {
			return nil, err
		}
		out.primary = sink
	}

	if s.Destination.EmitLinking {
		out.linkingPath = filepath.Join(dir, s.Destination.LinkingTableName+".csv")
		sink, err := tabular.NewLinkingCSVSink(out.linkingPath, s.EmbedColumn)
		if err != nil {
			_ = out.primary.Abort()
			return nil, err
		}
		out.linking = sink
	}
	return out, nil
}

func (o *outputs) commit() error {
	if err := o.primary.Commit(); err != nil {
		if o.linking != nil {
			_ = o.linking.Abort()
		}
		return err
	}
	if o.linking != nil {
		return o.linking.Commit()
	}
	return nil
}

// abort is a no-op for sinks that were already committed.
func (o *outputs) abort(logger *slog.Logger) {
	if err := o.primary.Abort(); err != nil {
		logger.Warn("failed to discard output table", "err", err)
	}
	if o.linking != nil {
		if err := o.linking.Abort(); err != nil {
			logger.Warn("failed to discard linking table", "err", err)
		}
	}
}

// writeManifest describes how the platform should load a CSV output table.
func writeManifest(tablePath string, s *config.Settings) error {
	if s.OutputFormat != config.FormatCSV {
		return nil
	}
	if !s.Destination.IncrementalLoad && s.Destination.PrimaryKeys == "" {
		return nil
	}
	return tabular.WriteManifest(tablePath, tabular.Manifest{
		Incremental: s.Destination.IncrementalLoad,
		PrimaryKey:  tabular.ParsePrimaryKey(s.Destination.PrimaryKeys),
	})
}
