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

package ai

import (
	"errors"
	"strings"
)

const (
	// DefaultHost is the public OpenAI API.
	DefaultHost = "https://api.openai.com/v1"

	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBatchSize matches the number of texts sent per provider call.
	DefaultBatchSize = 10

	// localToken is sent to local OpenAI-compatible services that don't
	// require authentication.
	localToken = "none"
)

// modelAliases maps short configuration names to provider model identifiers.
var modelAliases = map[string]string{
	"small_03": "text-embedding-3-small",
	"large_03": "text-embedding-3-large",
	"ada_002":  "text-embedding-ada-002",
}

// ResolveModel expands a model alias. Unknown names are returned unchanged.
func ResolveModel(name string) string {
	name = strings.TrimSpace(name)
	if resolved, ok := modelAliases[name]; ok {
		return resolved
	}
	return name
}

// Config holds configuration for the embedding provider.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier or alias to use for text embeddings.
	// Example: "text-embedding-3-small", "small_03", "nomic-embed-text"
	EmbeddingModel string

	// Token is the API key passed through to the provider.
	// Empty means the service does not authenticate.
	Token string

	// BatchSize is the largest number of texts sent in a single request.
	// Default: 10
	BatchSize int

	// Dimensions requests shortened vectors from models that support it.
	// Zero leaves the model default.
	Dimensions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithToken sets the API key.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithBatchSize sets the provider request size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithDimensions requests vectors of the given dimensionality.
func WithDimensions(dimensions int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dimensions
	}
}

// DefaultConfig returns a Config targeting the public OpenAI API.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultHost,
		EmbeddingModel: DefaultEmbeddingModel,
		BatchSize:      DefaultBatchSize,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("small_03"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc), and
// expands model aliases.
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	c.EmbeddingModel = ResolveModel(c.EmbeddingModel)
}

// AuthToken returns the token to send, falling back to a placeholder for
// unauthenticated local services.
func (c *Config) AuthToken() string {
	if c.Token == "" {
		return localToken
	}
	return c.Token
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.BatchSize < 1 {
		return errors.New("ai config: BatchSize must be greater than 0")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions must not be negative")
	}
	return nil
}
