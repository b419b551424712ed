package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/poiesic/rowembed/core"
	"gopkg.in/yaml.v3"
)

// candidateNames are tried in order when no config path is given.
var candidateNames = []string{"config.json", "config.yaml", "config.yml"}

// fileSettings is the on-disk shape: Settings plus the alternative key
// spellings accepted for compatibility with platform generated configs.
type fileSettings struct {
	Settings `yaml:",inline"`
	Aliases  aliases `yaml:",inline"`
}

type aliases struct {
	SecretAPIKey      string `yaml:"#api_key"`
	SecretAPIKeyCamel string `yaml:"#apiKey"`
	EmbedColumn       string `yaml:"embedColumn"`
	ChunkingEnabled   *bool  `yaml:"chunkingEnabled"`
	ChunkMethod       string `yaml:"chunkMethod"`
	ChunkSize         int    `yaml:"chunkSize"`
	Overlap           int    `yaml:"overlap"`
	OutputFormat      string `yaml:"outputFormat"`
}

// apply copies alias values over unset canonical fields.
func (a aliases) apply(s *Settings) {
	setString := func(dst *string, values ...string) {
		for _, v := range values {
			if *dst == "" && v != "" {
				*dst = v
			}
		}
	}
	setString(&s.APIKey, a.SecretAPIKey, a.SecretAPIKeyCamel)
	setString(&s.EmbedColumn, a.EmbedColumn)
	setString(&s.Chunking.Method, a.ChunkMethod)
	setString(&s.OutputFormat, a.OutputFormat)
	if a.ChunkingEnabled != nil && !s.Chunking.IsEnabled {
		s.Chunking.IsEnabled = *a.ChunkingEnabled
	}
	if s.Chunking.Size == 0 {
		s.Chunking.Size = a.ChunkSize
	}
	if s.Chunking.Overlap == 0 {
		s.Chunking.Overlap = a.Overlap
	}
}

// Find returns the first config file present in dir, or "" if none is.
func Find(dir string) string {
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads settings from path. YAML and JSON are both accepted; a
// top-level "parameters" object is unwrapped. An empty path yields
// unconfigured settings. Defaults are not applied.
func Load(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConfigurationError{Field: "config", Message: "cannot read " + path, Err: err}
	}
	return Parse(data)
}

// Parse decodes settings from YAML or JSON bytes.
func Parse(data []byte) (*Settings, error) {
	var envelope struct {
		Parameters yaml.Node `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(data, &envelope); err != nil {
		return nil, &core.ConfigurationError{Field: "config", Message: "invalid syntax", Err: err}
	}

	var fsettings fileSettings
	var err error
	if envelope.Parameters.Kind != 0 {
		err = envelope.Parameters.Decode(&fsettings)
	} else {
		err = yaml.Unmarshal(data, &fsettings)
	}
	if err != nil {
		return nil, &core.ConfigurationError{Field: "config", Message: "invalid settings", Err: err}
	}

	s := fsettings.Settings
	fsettings.Aliases.apply(&s)
	return &s, nil
}

// EnvOverrides holds the settings that may come from the environment.
type EnvOverrides struct {
	APIKey    string `env:"OPENAI_API_KEY"`
	BaseURL   string `env:"EMBEDDING_BASE_URL"`
	Model     string `env:"EMBEDDING_MODEL"`
	BatchSize int    `env:"EMBEDDING_BATCH_SIZE"`
	CacheDir  string `env:"EMBEDDING_CACHE_DIR"`
}

// LoadDotEnv loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides s with any variables set in the environment.
func (s *Settings) ApplyEnv() error {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return &core.ConfigurationError{Field: "environment", Message: "invalid value", Err: err}
	}
	if o.APIKey != "" {
		s.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		s.Model = o.Model
	}
	if o.BatchSize != 0 {
		s.BatchSize = o.BatchSize
	}
	if o.CacheDir != "" {
		s.CacheDir = o.CacheDir
	}
	return nil
}
