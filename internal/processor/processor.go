// Package processor runs the document ingestion pipeline: extract,
// normalize, chunk, embed, upsert.
//
// The pipeline is all-or-nothing: chunk upserts happen only after a
// document has been fully extracted, normalized, chunked, and embedded,
// so a failed upload never leaves partial chunk sets in the store.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/chunker"
	"github.com/mengdehong/LexAI/internal/embeddings"
	"github.com/mengdehong/LexAI/internal/extraction"
	"github.com/mengdehong/LexAI/internal/metrics"
	"github.com/mengdehong/LexAI/internal/sanitize"
	"github.com/mengdehong/LexAI/internal/vectorstore"
)

var tracer = otel.Tracer("lexai.processor")

// Pipeline failure codes beyond the extraction taxonomy.
const (
	CodeEmptyDocument    = "empty_document"
	CodeChunkingFailure  = "chunking_failure"
	CodeEmbeddingFailure = "embedding_failure"
)

// ProcessingError is a classified pipeline failure. Code is a stable
// identifier callers switch on to show a user-appropriate message;
// Message is the human-readable text.
type ProcessingError struct {
	Code    string
	Message string
}

func (e *ProcessingError) Error() string { return e.Message }

// newExtractionError classifies err into the extraction taxonomy.
func newExtractionError(err error) *ProcessingError {
	kind := extraction.Classify(err)
	return &ProcessingError{
		Code:    string(kind),
		Message: extraction.Message(kind),
	}
}

// Service runs the ingestion pipeline against its collaborators.
type Service struct {
	splitter *chunker.Splitter
	embedder embeddings.Provider
	store    vectorstore.Store
	primary  extraction.Extractor
	fallback extraction.Extractor
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithFallbackExtractor sets a secondary extractor tried when the
// primary fails. The primary's error is still the one classified when
// both fail.
func WithFallbackExtractor(e extraction.Extractor) Option {
	return func(s *Service) { s.fallback = e }
}

// NewService creates a processing service.
func NewService(splitter *chunker.Splitter, embedder embeddings.Provider, store vectorstore.Store, primary extraction.Extractor, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		primary:  primary,
		logger:   logger,
		metrics:  metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process ingests the file at filePath under documentID and returns the
// normalized extracted text.
//
// Classified failures are returned as *ProcessingError; anything else
// is an internal error.
func (s *Service) Process(ctx context.Context, filePath, documentID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Service.Process")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.String("file_path", filePath),
	)

	start := time.Now()
	outcome := "processed"
	defer func() {
		s.metrics.DocumentsProcessedTotal.WithLabelValues(outcome).Inc()
		s.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	text, err := s.extract(ctx, filePath)
	if err != nil {
		perr := newExtractionError(err)
		outcome = perr.Code
		span.RecordError(err)
		span.SetStatus(codes.Error, perr.Code)
		s.logger.Warn("extraction failed",
			zap.String("document_id", documentID),
			zap.String("code", perr.Code),
			zap.Error(err),
		)
		return "", perr
	}

	text = sanitize.Text(text)
	if text == "" {
		outcome = CodeEmptyDocument
		span.SetStatus(codes.Error, CodeEmptyDocument)
		return "", &ProcessingError{
			Code:    CodeEmptyDocument,
			Message: "Extracted document text is empty",
		}
	}

	chunks, err := s.splitter.Split(text)
	if err != nil || len(chunks) == 0 {
		outcome = CodeChunkingFailure
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, CodeChunkingFailure)
		return "", &ProcessingError{
			Code:    CodeChunkingFailure,
			Message: "No text chunks were generated from the document",
		}
	}
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil || len(vectors) == 0 {
		outcome = CodeEmbeddingFailure
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, CodeEmbeddingFailure)
		return "", &ProcessingError{
			Code:    CodeEmbeddingFailure,
			Message: "No embeddings generated for document chunks",
		}
	}
	if len(vectors) != len(chunks) {
		outcome = CodeEmbeddingFailure
		span.SetStatus(codes.Error, CodeEmbeddingFailure)
		return "", &ProcessingError{
			Code:    CodeEmbeddingFailure,
			Message: "No embeddings generated for document chunks",
		}
	}

	if err := s.store.EnsureCollection(ctx, len(vectors[0])); err != nil {
		outcome = "store_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("ensuring collection: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:         uuid.NewString(),
			Vector:     vectors[i],
			DocumentID: documentID,
			ChunkText:  chunk,
		}
	}

	if err := s.store.UpsertPoints(ctx, points); err != nil {
		outcome = "store_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("upserting chunks: %w", err)
	}

	span.SetAttributes(attribute.Int("points_upserted", len(points)))
	span.SetStatus(codes.Ok, "processed")
	s.logger.Info("document processed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// extract picks an extractor for the file and runs it. Plain-text files
// bypass the external parser. When the primary extractor fails and a
// fallback is configured, the fallback is tried; the primary's error
// wins if both fail, so classification reflects the real parser.
func (s *Service) extract(ctx context.Context, filePath string) (string, error) {
	if extraction.IsPlainText(filePath) {
		return extraction.PlainText{}.Extract(ctx, filePath)
	}

	text, primaryErr := s.primary.Extract(ctx, filePath)
	if primaryErr == nil {
		return text, nil
	}

	if s.fallback != nil {
		if text, err := s.fallback.Extract(ctx, filePath); err == nil {
			s.logger.Debug("fallback extractor succeeded",
				zap.String("file_path", filePath),
				zap.NamedError("primary_error", primaryErr),
			)
			return text, nil
		}
	}
	return "", primaryErr
}
