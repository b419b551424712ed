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

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/poiesic/rowembed/ai"
	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/core"
	"github.com/poiesic/rowembed/embed"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	// DefaultOutputTable is the output table name used when none is configured.
	DefaultOutputTable = "app-embed-lancedb"

	// linkingSuffix names the linking table after the output table.
	linkingSuffix = "-linking"
)

// Settings is the complete run configuration.
type Settings struct {
	EmbedColumn  string        `yaml:"embed_column"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	Dimensions   int           `yaml:"dimensions"`
	OutputFormat string        `yaml:"output_format"`
	BatchSize    int           `yaml:"batch_size"`
	Concurrency  int           `yaml:"concurrency"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	RateLimit    float64       `yaml:"rate_limit"`
	Normalize    bool          `yaml:"normalize"`
	CacheDir     string        `yaml:"cache_dir"`
	Chunking     Chunking      `yaml:"chunking"`
	Destination  Destination   `yaml:"destination"`
}

// Chunking selects the chunk policy.
type Chunking struct {
	IsEnabled bool   `yaml:"is_enabled"`
	Method    string `yaml:"method"`
	Size      int    `yaml:"size"`
	Overlap   int    `yaml:"overlap"`
}

// Destination names the output tables.
type Destination struct {
	OutputTableName  string `yaml:"output_table_name"`
	LinkingTableName string `yaml:"linking_table_name"`
	EmitLinking      bool   `yaml:"emit_linking"`
	IncrementalLoad  bool   `yaml:"incremental_load"`
	PrimaryKeys      string `yaml:"primary_keys"`
}

// Default returns settings with every default applied and no embed column.
func Default() *Settings {
	s := &Settings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills unset values.
func (s *Settings) ApplyDefaults() {
	s.Model = ai.ResolveModel(s.Model)
	if s.Model == "" {
		s.Model = ai.DefaultEmbeddingModel
	}
	if s.BaseURL == "" {
		s.BaseURL = ai.DefaultHost
	}
	if s.OutputFormat == "" {
		s.OutputFormat = FormatCSV
	}
	s.OutputFormat = strings.ToLower(s.OutputFormat)

	defaults := embed.DefaultConfig()
	if s.BatchSize == 0 {
		s.BatchSize = defaults.BatchSize
	}
	if s.Concurrency == 0 {
		s.Concurrency = defaults.Concurrency
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = defaults.MaxRetries
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = defaults.RetryDelay
	}

	if s.Chunking.IsEnabled && s.Chunking.Size == 0 {
		if method, err := chunk.ParseMethod(s.Chunking.Method); err == nil {
			s.Chunking.Size = chunk.DefaultSize(method)
		}
	}

	if s.Destination.OutputTableName == "" {
		s.Destination.OutputTableName = DefaultOutputTable
	}
	if s.Destination.LinkingTableName == "" {
		s.Destination.LinkingTableName = s.Destination.OutputTableName + linkingSuffix
	}
}

// Validate reports every configuration problem at once. Each one is a
// *core.ConfigurationError.
func (s *Settings) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, core.NewConfigurationError(field, format, args...))
	}

	if strings.TrimSpace(s.EmbedColumn) == "" {
		add("embed_column", "is required")
	}
	if s.Model == "" {
		add("model", "is required")
	}
	if s.APIKey == "" && strings.Contains(s.BaseURL, "api.openai.com") {
		add("api_key", "is required for %s", ai.DefaultHost)
	}
	if s.Dimensions < 0 {
		add("dimensions", "must not be negative")
	}
	switch s.OutputFormat {
	case FormatCSV, FormatJSON:
	default:
		add("output_format", "%q must be csv or json", s.OutputFormat)
	}

	if err := s.EmbedConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if s.Chunking.IsEnabled {
		if _, err := s.Policy(); err != nil {
			errs = append(errs, err)
		}
	}

	if s.Destination.EmitLinking && s.Destination.LinkingTableName == s.Destination.OutputTableName {
		add("destination.linking_table_name", "must differ from the output table name")
	}

	return errors.Join(errs...)
}

// Policy returns the validated chunk policy.
func (s *Settings) Policy() (chunk.Policy, error) {
	method, err := chunk.ParseMethod(s.Chunking.Method)
	if err != nil {
		return chunk.Policy{}, err
	}
	policy := chunk.Policy{Method: method, Size: s.Chunking.Size, Overlap: s.Chunking.Overlap}.WithDefaults()
	if err := policy.Validate(); err != nil {
		return chunk.Policy{}, err
	}
	return policy, nil
}

// AIConfig returns the provider configuration.
func (s *Settings) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(s.BaseURL),
		ai.WithEmbeddingModel(s.Model),
		ai.WithToken(s.APIKey),
		ai.WithBatchSize(s.BatchSize),
		ai.WithDimensions(s.Dimensions),
	)
}

// EmbedConfig returns the batch embedder configuration.
func (s *Settings) EmbedConfig() *embed.Config {
	return &embed.Config{
		BatchSize:   s.BatchSize,
		Concurrency: s.Concurrency,
		MaxRetries:  s.MaxRetries,
		RetryDelay:  s.RetryDelay,
		RateLimit:   s.RateLimit,
		Normalize:   s.Normalize,
	}
}
