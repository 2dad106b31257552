// Package file provides TOML-backed configuration loading and saving.
// Configuration lives in a single file within the kiro config directory,
// ~/.kiro/config.toml by default.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/jazz-17/kiro-chatbot/internal/chunker"
	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// Config is the full on-disk configuration.
type Config struct {
	// DataDir is where the database lives. Empty means ~/.kiro/data.
	DataDir string `toml:"data_dir"`

	Embedding EmbeddingConfig `toml:"embedding"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`

	// APIKey authenticates against hosted providers. The KIRO_API_KEY
	// environment variable takes precedence when set.
	APIKey string `toml:"api_key"`

	// Model is the embedding model name. Empty means the provider default.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// Dimensions overrides the model's embedding size.
	Dimensions int `toml:"dimensions"`
}

// ChunkingConfig tunes the text splitter.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// SearchConfig tunes similarity search defaults.
type SearchConfig struct {
	Limit     int     `toml:"limit"`
	Threshold float64 `toml:"threshold"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Embedding: EmbeddingConfig{
			Provider: "openai",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    chunker.DefaultChunkSize,
			ChunkOverlap: chunker.DefaultChunkOverlap,
		},
		Search: SearchConfig{
			Limit:     domain.DefaultSearchLimit,
			Threshold: domain.DefaultSearchThreshold,
		},
	}
}

// Store loads and persists the configuration file.
type Store struct {
	mu       sync.RWMutex
	filePath string
	config   Config
}

// NewStore creates a config store rooted at configDir.
// If configDir is empty, defaults to ~/.kiro.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".kiro")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
		config:   Default(),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns the current configuration with environment overrides
// applied.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.config
	if key := os.Getenv("KIRO_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	return cfg
}

// Update replaces the configuration and persists it immediately.
func (s *Store) Update(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = cfg
	return s.save()
}

// Save persists the current configuration to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes the TOML file (caller must hold lock).
func (s *Store) save() error {
	data, err := toml.Marshal(s.config)
	if err != nil {
		return err
	}

	// Write with restricted permissions, the file may hold an API key
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file. A missing file leaves the
// defaults in place.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.config = Default()
			return nil
		}
		return err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	s.config = cfg
	return nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}
