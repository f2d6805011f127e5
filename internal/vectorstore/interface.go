// Package vectorstore provides vector storage implementations.
//
// Two backends are supported: Qdrant over its native gRPC transport for
// shared deployments, and chromem-go for embedded use (persistent on
// disk or purely in memory). The backend is selected from the store
// location string, see New.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCollectionName indicates an unsafe collection name.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrEmptyPoints indicates an upsert with no points.
	ErrEmptyPoints = errors.New("points cannot be empty")
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against naming rules.
// Rejects uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Point is one chunk embedding with its retrieval payload.
type Point struct {
	// ID is the point identifier. Must be a UUID string.
	ID string

	// Vector is the chunk embedding.
	Vector []float32

	// DocumentID scopes the chunk to its source document.
	DocumentID string

	// ChunkText is the chunk content returned verbatim on search hits.
	ChunkText string
}

// SearchResult is one scored chunk from a similarity search.
type SearchResult struct {
	// ChunkText is the stored chunk content.
	ChunkText string `json:"chunk_text"`

	// Score is the cosine similarity of the chunk to the query.
	Score float32 `json:"score"`
}

// Store persists chunk embeddings and serves filtered similarity search.
//
// Implementations are safe for use from a single control loop; they do
// not need to tolerate concurrent mutation.
type Store interface {
	// EnsureCollection creates the backing collection if it does not
	// exist, configured for vectors of the given dimension with cosine
	// distance. Idempotent.
	EnsureCollection(ctx context.Context, dimension int) error

	// UpsertPoints writes points to the collection, overwriting points
	// with matching IDs. Returns once the write is durable.
	UpsertPoints(ctx context.Context, points []Point) error

	// SearchChunks returns up to limit chunks belonging to documentID,
	// ordered by descending similarity to vector. A document with no
	// stored chunks yields an empty slice, not an error.
	SearchChunks(ctx context.Context, documentID string, vector []float32, limit int) ([]SearchResult, error)

	// Collection returns the collection name in use.
	Collection() string

	// Location returns the store location string the store was built from.
	Location() string

	// Close releases backend resources.
	Close() error
}
