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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/poiesic/rowembed"
	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/config"
	"github.com/poiesic/rowembed/core"
	"github.com/poiesic/rowembed/embed"
	"github.com/poiesic/rowembed/pipeline"
	"github.com/poiesic/rowembed/tabular"
	"github.com/urfave/cli/v2"
)

func runCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := resolveSettings(c)
	if err != nil {
		return err
	}

	table, err := openInput(c)
	if err != nil {
		return err
	}

	job, err := rowembed.NewJob(settings, table, outputDir(c),
		rowembed.WithLogger(slog.Default()),
		rowembed.WithProgress(newProgress(c, table)),
	)
	if err != nil {
		return err
	}
	defer job.Close()

	fmt.Fprintf(os.Stderr, "Input: %s\n", table.Path)
	fmt.Fprintf(os.Stderr, "Output: %s\n", job.OutputPath())
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", settings.BaseURL)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", settings.Model)
	fmt.Fprintf(os.Stderr, "Chunking: %s\n", policyLabel(settings, job.Policy()))
	fmt.Fprintln(os.Stderr)

	summary, err := job.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(c, summary)
	return nil
}

// resolveSettings layers the settings file, the environment and the flags.
func resolveSettings(c *cli.Context) (*config.Settings, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, &core.ConfigurationError{Field: "env-file", Message: "cannot load", Err: err}
	}

	path := c.String("config")
	if path == "" {
		path = config.Find(c.String("data-dir"))
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := settings.ApplyEnv(); err != nil {
		return nil, err
	}
	applyFlags(c, settings)
	settings.ApplyDefaults()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyFlags overrides settings with every flag given on the command line.
func applyFlags(c *cli.Context, s *config.Settings) {
	if c.IsSet("embed-column") {
		s.EmbedColumn = c.String("embed-column")
	}
	if c.IsSet("model") {
		s.Model = c.String("model")
	}
	if c.IsSet("base-url") {
		s.BaseURL = c.String("base-url")
	}
	if c.IsSet("chunk-method") {
		s.Chunking.Method = c.String("chunk-method")
		s.Chunking.IsEnabled = true
	}
	if c.IsSet("chunk-size") {
		s.Chunking.Size = c.Int("chunk-size")
	}
	if c.IsSet("overlap") {
		s.Chunking.Overlap = c.Int("overlap")
	}
	if c.IsSet("output-format") {
		s.OutputFormat = c.String("output-format")
	}
	if c.IsSet("emit-linking") {
		s.Destination.EmitLinking = c.Bool("emit-linking")
	}
	if c.IsSet("batch-size") {
		s.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("concurrency") {
		s.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("max-retries") {
		s.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		s.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("rate-limit") {
		s.RateLimit = c.Float64("rate-limit")
	}
	if c.IsSet("cache-dir") {
		s.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("normalize") {
		s.Normalize = c.Bool("normalize")
	}
}

func openInput(c *cli.Context) (*tabular.Table, error) {
	path := c.String("input")
	if path == "" {
		found, err := tabular.FindInputTable(c.String("data-dir"))
		if err != nil {
			return nil, err
		}
		path = found
	}

	table, err := tabular.OpenTable(path)
	if err != nil {
		if errors.Is(err, tabular.ErrUnsupportedFormat) || errors.Is(err, os.ErrNotExist) {
			return nil, &core.ConfigurationError{Field: "input", Message: "cannot open " + path, Err: err}
		}
		return nil, err
	}
	return table, nil
}

func outputDir(c *cli.Context) string {
	if dir := c.String("output-dir"); dir != "" {
		return dir
	}
	return filepath.Join(c.String("data-dir"), tabular.OutputTablesDir)
}

func newProgress(c *cli.Context, table *tabular.Table) pipeline.Progress {
	// A read error here surfaces again when the pipeline reads the rows
	total, _ := table.CountRows()
	if c.Bool("progress-bar") {
		return newBarProgress(os.Stderr, total, "Embedding")
	}
	return embed.NewProgressTracker(os.Stderr, total, c.Int("report-interval"))
}

func policyLabel(s *config.Settings, policy chunk.Policy) string {
	if !s.Chunking.IsEnabled {
		return "disabled"
	}
	return policy.String()
}
