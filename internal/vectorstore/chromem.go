package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("lexai.vectorstore.chromem")

// MemoryLocation selects a purely in-memory chromem store.
const MemoryLocation = ":memory:"

// ChromemConfig holds configuration for the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty or
	// ":memory:" keeps everything in memory.
	Path string

	// Collection is the collection used for all operations.
	Collection string

	// Compress enables gzip compression for persisted data.
	Compress bool
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	return ValidateCollectionName(c.Collection)
}

// ChromemStore implements Store using chromem-go, an embeddable vector
// database with no external service dependency. Vectors are computed by
// the caller and stored precomputed; chromem's own embedding hook is
// never exercised.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	mu sync.Mutex
}

// NewChromemStore creates a ChromemStore. A Path of ":memory:" (or
// empty) builds an ephemeral store; anything else persists gob files
// under that directory.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.Path == "" || config.Path == MemoryLocation {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(config.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", config.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	return &ChromemStore{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// Collection returns the collection name in use.
func (s *ChromemStore) Collection() string { return s.config.Collection }

// Location returns the store location string.
func (s *ChromemStore) Location() string {
	if s.config.Path == "" {
		return MemoryLocation
	}
	return s.config.Path
}

// Close releases the store. chromem persists on write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error { return nil }

// noEmbedding guards chromem's embedding hook. All vectors are supplied
// precomputed, so the hook firing indicates a wiring bug.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings must be precomputed")
}

func (s *ChromemStore) getOrCreateCollection() (*chromem.Collection, error) {
	collection, err := s.db.GetOrCreateCollection(s.config.Collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", s.config.Collection, err)
	}
	return collection, nil
}

// EnsureCollection creates the collection if absent. chromem stores the
// dimension per document, so dimension is accepted for interface parity
// only.
func (s *ChromemStore) EnsureCollection(ctx context.Context, dimension int) error {
	_, span := chromemTracer.Start(ctx, "ChromemStore.EnsureCollection")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("dimension", dimension),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getOrCreateCollection(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// UpsertPoints writes points with their precomputed embeddings.
func (s *ChromemStore) UpsertPoints(ctx context.Context, points []Point) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpsertPoints")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("point_count", len(points)),
	)

	if len(points) == 0 {
		return ErrEmptyPoints
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collection, err := s.getOrCreateCollection()
	if err != nil {
		span.RecordError(err)
		return err
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.ChunkText,
			Embedding: p.Vector,
			Metadata:  map[string]string{payloadDocumentID: p.DocumentID},
		}
	}

	// Concurrency of 1: embeddings are already computed, parallelism
	// buys nothing here.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted points to chromem",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(points)),
	)
	return nil
}

// SearchChunks returns the most similar chunks of documentID.
func (s *ChromemStore) SearchChunks(ctx context.Context, documentID string, vector []float32, limit int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.SearchChunks")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.String("document_id", documentID),
		attribute.Int("limit", limit),
	)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collection := s.db.GetCollection(s.config.Collection, noEmbedding)
	if collection == nil {
		// Nothing uploaded yet; the document has no chunks.
		span.SetStatus(codes.Ok, "no collection")
		return []SearchResult{}, nil
	}

	// chromem requires nResults <= stored document count.
	docCount := collection.Count()
	if docCount == 0 {
		span.SetStatus(codes.Ok, "empty collection")
		return []SearchResult{}, nil
	}
	if limit > docCount {
		limit = docCount
	}

	where := map[string]string{payloadDocumentID: documentID}
	hits, err := collection.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{
			ChunkText: hit.Content,
			Score:     hit.Similarity,
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

var _ Store = (*ChromemStore)(nil)
