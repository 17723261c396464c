// Package file provides TOML-backed service configuration.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file location when none is given.
const DefaultPath = "~/.inlet/config.toml"

// Config is the service configuration tree.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Ollama   OllamaConfig   `toml:"ollama"`
	Indexing IndexingConfig `toml:"indexing"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `toml:"addr"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DataDir is the directory for the SQLite database. Empty means
	// the store's own default.
	DataDir string `toml:"data_dir"`
}

// OllamaConfig holds the local model endpoints.
type OllamaConfig struct {
	BaseURL             string `toml:"base_url"`
	LLMModel            string `toml:"llm_model"`
	EmbeddingModel      string `toml:"embedding_model"`
	EmbeddingDimensions int    `toml:"embedding_dimensions"`
}

// IndexingConfig tunes the indexing pipeline.
type IndexingConfig struct {
	// Workers bounds concurrently running connector runs.
	Workers int `toml:"workers"`

	// ContainerWorkers bounds concurrent containers within one run.
	ContainerWorkers int `toml:"container_workers"`

	// ChunkSize and ChunkOverlap configure the body splitter.
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// RunLockTTLMinutes is the run lock expiry. A crashed run's lock
	// is stolen after this long.
	RunLockTTLMinutes int `toml:"run_lock_ttl_minutes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: "127.0.0.1:8624"},
		Storage: StorageConfig{},
		Ollama: OllamaConfig{
			BaseURL:             "http://localhost:11434",
			LLMModel:            "llama3.2",
			EmbeddingModel:      "nomic-embed-text",
			EmbeddingDimensions: 768,
		},
		Indexing: IndexingConfig{
			Workers:           2,
			ContainerWorkers:  4,
			ChunkSize:         1000,
			ChunkOverlap:      200,
			RunLockTTLMinutes: 60,
		},
	}
}

// Load reads the config file at path, layering it over the defaults.
// A missing file yields the defaults. A "~/" prefix expands to the
// user's home directory.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	expanded, err := expandHome(path)
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", expanded, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", expanded, err)
	}

	return cfg, nil
}

// Save writes the config to path with restricted permissions.
func Save(path string, cfg Config) error {
	expanded, err := expandHome(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(expanded), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	return os.WriteFile(expanded, data, 0600)
}

func expandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
