// Package search serves term context lookups: embed the query term,
// then similarity-search the chunks of one document.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/embeddings"
	"github.com/mengdehong/LexAI/internal/metrics"
	"github.com/mengdehong/LexAI/internal/vectorstore"
)

var tracer = otel.Tracer("lexai.search")

// DefaultLimit is the result count used when the caller does not ask
// for one.
const DefaultLimit = 5

var (
	// ErrEmptyDocumentID indicates a missing document identifier.
	ErrEmptyDocumentID = errors.New("document_id is required")

	// ErrEmptyTerm indicates a missing search term.
	ErrEmptyTerm = errors.New("term is required")
)

// Service answers term context searches.
type Service struct {
	embedder embeddings.Provider
	store    vectorstore.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService creates a search service.
func NewService(embedder embeddings.Provider, store vectorstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder: embedder,
		store:    store,
		logger:   logger,
		metrics:  metrics.New(),
	}
}

// TermContexts returns up to limit chunks of documentID ranked by
// similarity to term. A limit <= 0 means DefaultLimit. A document with
// no stored chunks yields an empty slice.
func (s *Service) TermContexts(ctx context.Context, documentID, term string, limit int) ([]vectorstore.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "Service.TermContexts")
	defer span.End()

	if documentID == "" {
		return nil, ErrEmptyDocumentID
	}
	if term == "" {
		return nil, ErrEmptyTerm
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.Int("limit", limit),
	)

	start := time.Now()
	defer func() {
		s.metrics.SearchesTotal.Inc()
		s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	vector, err := s.embedder.EmbedQuery(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query term: %w", err)
	}

	results, err := s.store.SearchChunks(ctx, documentID, vector, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("term context search served",
		zap.String("document_id", documentID),
		zap.Int("results", len(results)),
	)
	return results, nil
}
