package rpc

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/chunker"
	"github.com/mengdehong/LexAI/internal/config"
	"github.com/mengdehong/LexAI/internal/embeddings"
	"github.com/mengdehong/LexAI/internal/extraction"
	"github.com/mengdehong/LexAI/internal/processor"
	"github.com/mengdehong/LexAI/internal/search"
	"github.com/mengdehong/LexAI/internal/vectorstore"
)

// Dependencies holds the worker's collaborators, constructed lazily so
// the process starts fast and model download happens on first use, not
// at boot. Accessors are once-guarded: a handle is built at most once
// and shared for the process lifetime.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// NewEmbedder overrides embedder construction, for tests.
	NewEmbedder func() (embeddings.Provider, error)

	// NewStore overrides store construction, for tests.
	NewStore func() (vectorstore.Store, error)

	embedderOnce sync.Once
	embedder     embeddings.Provider
	embedderErr  error

	storeOnce sync.Once
	store     vectorstore.Store
	storeErr  error

	processorOnce sync.Once
	processor     *processor.Service
	processorErr  error

	searchOnce sync.Once
	search     *search.Service
	searchErr  error
}

// NewDependencies creates lazily-initialized dependencies from config.
func NewDependencies(cfg *config.Config, logger *zap.Logger) *Dependencies {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dependencies{Config: cfg, Logger: logger}
}

// Embedder returns the process-wide embedding provider, constructing it
// on first call.
func (d *Dependencies) Embedder() (embeddings.Provider, error) {
	d.embedderOnce.Do(func() {
		if d.NewEmbedder != nil {
			d.embedder, d.embedderErr = d.NewEmbedder()
			return
		}
		d.embedder, d.embedderErr = embeddings.NewFastEmbed(embeddings.Config{
			Model:     d.Config.Embeddings.Model,
			CacheDir:  d.Config.Embeddings.CacheDir,
			MaxLength: d.Config.Embeddings.MaxLength,
		})
	})
	return d.embedder, d.embedderErr
}

// Store returns the process-wide vector store, constructing it on first
// call.
func (d *Dependencies) Store() (vectorstore.Store, error) {
	d.storeOnce.Do(func() {
		if d.NewStore != nil {
			d.store, d.storeErr = d.NewStore()
			return
		}
		d.store, d.storeErr = vectorstore.New(d.Config.Store.Location, d.Config.Store.Collection, d.Logger)
	})
	return d.store, d.storeErr
}

// Processor returns the ingestion pipeline service.
func (d *Dependencies) Processor() (*processor.Service, error) {
	d.processorOnce.Do(func() {
		embedder, err := d.Embedder()
		if err != nil {
			d.processorErr = fmt.Errorf("initializing embedder: %w", err)
			return
		}
		store, err := d.Store()
		if err != nil {
			d.processorErr = fmt.Errorf("initializing store: %w", err)
			return
		}

		splitter := chunker.New(
			chunker.WithChunkSize(d.Config.Chunking.Size),
			chunker.WithOverlap(d.Config.Chunking.Overlap),
		)

		var opts []processor.Option
		if d.Config.Extraction.FallbackCommand != "" {
			opts = append(opts, processor.WithFallbackExtractor(
				extraction.NewCommand(d.Config.Extraction.FallbackCommand, d.Config.Extraction.FallbackArgs...),
			))
		}

		primary := extraction.NewCommand(d.Config.Extraction.Command, d.Config.Extraction.Args...)
		d.processor = processor.NewService(splitter, embedder, store, primary, d.Logger, opts...)
	})
	return d.processor, d.processorErr
}

// Search returns the term context search service.
func (d *Dependencies) Search() (*search.Service, error) {
	d.searchOnce.Do(func() {
		embedder, err := d.Embedder()
		if err != nil {
			d.searchErr = fmt.Errorf("initializing embedder: %w", err)
			return
		}
		store, err := d.Store()
		if err != nil {
			d.searchErr = fmt.Errorf("initializing store: %w", err)
			return
		}
		d.search = search.NewService(embedder, store, d.Logger)
	})
	return d.search, d.searchErr
}

// embeddingsCacheDir reports the effective model cache directory.
func embeddingsCacheDir(configured string) string {
	if configured != "" {
		return configured
	}
	return embeddings.ResolveCacheDir()
}

// Close releases held resources. Only handles that were actually
// constructed are closed.
func (d *Dependencies) Close() error {
	var firstErr error
	if d.embedder != nil {
		if err := d.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
