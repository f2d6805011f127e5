// Package embeddings provides embedding generation from local ONNX
// models via FastEmbed.
//
// The worker resolves one model per process; construction is expensive
// (model weights are downloaded on first use), so callers hold a single
// Provider for the process lifetime.
package embeddings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider generates vector embeddings from text.
//
// Embeddings are fixed-length per model: every vector returned by a
// provider has Dimension() elements, and EmbedDocuments preserves input
// order (one vector per input text).
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts in one
	// batched call.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query term.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for the FastEmbed provider.
type Config struct {
	// Model is the embedding model name.
	// Supported: BAAI/bge-small-en-v1.5 (default), BAAI/bge-base-en-v1.5,
	// sentence-transformers/all-MiniLM-L6-v2, etc.
	Model string

	// CacheDir is the directory for cached model weights.
	// Empty means ResolveCacheDir().
	CacheDir string

	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
}

// cacheEnvVars are consulted in order when no cache dir is configured.
// The HF-style names keep parity with hosts that already cache model
// weights for other tools.
var cacheEnvVars = []string{
	"LEXAI_MODEL_CACHE",
	"HF_HOME",
	"HUGGINGFACE_HUB_CACHE",
	"HF_HUB_CACHE",
}

// ResolveCacheDir returns the model weight cache directory: the first
// set cache environment variable, falling back to an
// application-private directory under the user config dir.
func ResolveCacheDir() string {
	for _, key := range cacheEnvVars {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "lexai", "models")
}

// EnsureCacheDir resolves the cache directory for cfg and creates it if
// absent, returning the effective path.
func EnsureCacheDir(cfg Config) (string, error) {
	dir := cfg.CacheDir
	if dir == "" {
		dir = ResolveCacheDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
