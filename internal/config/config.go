// Package config provides configuration loading and structs for the cardadvisor services.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document store, the persisted index pair,
// and the card-agreement source directory.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	EmbeddingsDir string `yaml:"embeddings_dir"`
	CardsDir      string `yaml:"cards_dir"`
}

// EmbeddingConfig holds embedder settings. Backend selects the implementation:
// "onnx" (local all-MiniLM-L6-v2, requires CGO), "openai", or "mock".
type EmbeddingConfig struct {
	Backend    string `yaml:"backend"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds chunking and search settings.
type RetrievalConfig struct {
	ChunkSize           int `yaml:"chunk_size"`
	ChunkOverlap        int `yaml:"chunk_overlap"`
	DefaultK            int `yaml:"default_k"`
	MaxK                int `yaml:"max_k"`
	OverfetchMultiplier int `yaml:"overfetch_multiplier"`
}

// AdvisorConfig holds LLM settings for the staged reasoning pipeline.
type AdvisorConfig struct {
	ChatModel     string `yaml:"chat_model"`
	SelectorModel string `yaml:"selector_model"`
	MaxRetries    int    `yaml:"max_retries"`
	RetryDelaySec int    `yaml:"retry_delay_seconds"`
	TimeoutSec    int    `yaml:"timeout_seconds"`
}

// WatchConfig holds card-directory watch settings.
type WatchConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Extensions  []string `yaml:"extensions"`
	DebounceSec int      `yaml:"debounce_seconds"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and validates. Returns an error if the file cannot be read or
// parsed, or if validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.EmbeddingsDir = expandPath(cfg.Storage.EmbeddingsDir, configDir)
	cfg.Storage.CardsDir = expandPath(cfg.Storage.CardsDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants that must fail fast rather than
// surface as runtime misbehavior.
func (c *Config) Validate() error {
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.OverfetchMultiplier < 1 {
		return fmt.Errorf("overfetch_multiplier must be at least 1, got %d", c.Retrieval.OverfetchMultiplier)
	}
	switch c.Embedding.Backend {
	case "onnx", "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding backend %q (want onnx, openai, or mock)", c.Embedding.Backend)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
