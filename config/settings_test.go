package config

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{EmbedColumn: "text", APIKey: "sk-test"}
	s.ApplyDefaults()
	return s
}

func TestApplyDefaults(t *testing.T) {
	s := Default()

	assert.Equal(t, "text-embedding-3-small", s.Model)
	assert.Equal(t, "https://api.openai.com/v1", s.BaseURL)
	assert.Equal(t, FormatCSV, s.OutputFormat)
	assert.Equal(t, 10, s.BatchSize)
	assert.Equal(t, 1, s.Concurrency)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, time.Second, s.RetryDelay)
	assert.Equal(t, "app-embed-lancedb", s.Destination.OutputTableName)
	assert.Equal(t, "app-embed-lancedb-linking", s.Destination.LinkingTableName)
}

func TestApplyDefaults_ResolvesModelAlias(t *testing.T) {
	s := &Settings{Model: "large_03"}
	s.ApplyDefaults()
	assert.Equal(t, "text-embedding-3-large", s.Model)
}

func TestApplyDefaults_ChunkSize(t *testing.T) {
	tests := []struct {
		method string
		want   int
	}{
		{"words", 100},
		{"characters", 100},
		{"sentences", 3},
		{"none", 0},
	}
	for _, tt := range tests {
		s := &Settings{Chunking: Chunking{IsEnabled: true, Method: tt.method}}
		s.ApplyDefaults()
		assert.Equal(t, tt.want, s.Chunking.Size, tt.method)
	}

	s := &Settings{Chunking: Chunking{Method: "words"}}
	s.ApplyDefaults()
	assert.Zero(t, s.Chunking.Size, "disabled chunking keeps its size")
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validSettings().Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	s := &Settings{
		OutputFormat: "parquet",
		BatchSize:    -1,
		Chunking:     Chunking{IsEnabled: true, Method: "words", Size: 5, Overlap: 5},
	}
	s.ApplyDefaults()

	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	msg := err.Error()
	for _, field := range []string{"embed_column", "api_key", "output_format", "batch_size", "chunking.overlap"} {
		assert.Contains(t, msg, field)
	}
}

func TestValidate_EveryErrorIsConfigurationError(t *testing.T) {
	s := &Settings{Concurrency: -2, OutputFormat: "xml"}
	s.ApplyDefaults()

	err := s.Validate()
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	for _, e := range joined.Unwrap() {
		var cfgErr *core.ConfigurationError
		assert.True(t, errors.As(e, &cfgErr), "%v", e)
	}
}

func TestValidate_LocalServiceNeedsNoKey(t *testing.T) {
	s := &Settings{EmbedColumn: "text", BaseURL: "http://localhost:11434/v1"}
	s.ApplyDefaults()
	assert.NoError(t, s.Validate())
}

func TestValidate_UnknownChunkMethod(t *testing.T) {
	s := validSettings()
	s.Chunking = Chunking{IsEnabled: true, Method: "paragraphs", Size: 2}

	err := s.Validate()
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "chunking.method")
}

func TestValidate_LinkingTableCollision(t *testing.T) {
	s := validSettings()
	s.Destination.EmitLinking = true
	s.Destination.LinkingTableName = s.Destination.OutputTableName

	err := s.Validate()
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "linking_table_name")
}

func TestPolicy(t *testing.T) {
	s := validSettings()
	s.Chunking = Chunking{IsEnabled: true, Method: "Words", Size: 4, Overlap: 1}

	policy, err := s.Policy()
	require.NoError(t, err)
	assert.Equal(t, chunk.Policy{Method: chunk.Words, Size: 4, Overlap: 1}, policy)
}

func TestAIConfigAndEmbedConfig(t *testing.T) {
	s := validSettings()
	s.Model = "small_03"
	s.BaseURL = "http://localhost:8080"
	s.Dimensions = 256
	s.Normalize = true
	s.RateLimit = 2.5

	aiCfg := s.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://localhost:8080/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", aiCfg.EmbeddingModel)
	assert.Equal(t, "sk-test", aiCfg.Token)
	assert.Equal(t, 256, aiCfg.Dimensions)

	embedCfg := s.EmbedConfig()
	assert.Equal(t, 10, embedCfg.BatchSize)
	assert.True(t, embedCfg.Normalize)
	assert.Equal(t, 2.5, embedCfg.RateLimit)
}
