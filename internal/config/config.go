// Package config provides configuration loading for lexaid.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mengdehong/LexAI/internal/chunker"
	"github.com/mengdehong/LexAI/internal/sanitize"
	"github.com/mengdehong/LexAI/internal/vectorstore"
)

// Config is the full lexaid configuration.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Upload     UploadConfig     `koanf:"upload"`
	HTTP       HTTPConfig       `koanf:"http"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StoreConfig selects and names the vector store.
type StoreConfig struct {
	// Location selects the backend: an http(s) URL for remote Qdrant
	// over gRPC, ":memory:" for an ephemeral in-process store, or a
	// filesystem path for a persistent local store.
	Location string `koanf:"location"`

	// Collection is the collection all chunks live in.
	Collection string `koanf:"collection"`
}

// EmbeddingsConfig configures the embedding model.
type EmbeddingsConfig struct {
	// Model is the embedding model name.
	Model string `koanf:"model"`

	// CacheDir overrides the model weight cache directory.
	CacheDir string `koanf:"cache_dir"`

	// MaxLength is the maximum input sequence length.
	MaxLength int `koanf:"max_length"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	Size    int `koanf:"size"`
	Overlap int `koanf:"overlap"`
}

// ExtractionConfig configures the external document parsers.
type ExtractionConfig struct {
	// Command is the primary text extraction command. The file path is
	// appended as the last argument.
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`

	// FallbackCommand is tried when the primary command fails.
	FallbackCommand string   `koanf:"fallback_command"`
	FallbackArgs    []string `koanf:"fallback_args"`
}

// UploadConfig configures the HTTP upload staging area.
type UploadConfig struct {
	// Dir is where uploaded files are staged before processing.
	Dir string `koanf:"dir"`
}

// HTTPConfig configures the optional HTTP surface.
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Store.Location == "" {
		cfg.Store.Location = "http://localhost:6334"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = vectorstore.DefaultCollection
	} else {
		cfg.Store.Collection = sanitize.Identifier(cfg.Store.Collection)
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = chunker.DefaultChunkSize
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = chunker.DefaultChunkOverlap
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = filepath.Join(os.TempDir(), "lexai_uploads")
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8000
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Store.Location == "" {
		return fmt.Errorf("store.location cannot be empty")
	}
	if err := vectorstore.ValidateCollectionName(c.Store.Collection); err != nil {
		return fmt.Errorf("store.collection: %w", err)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap cannot be negative, got %d", c.Chunking.Overlap)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be in 1-65535, got %d", c.HTTP.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
