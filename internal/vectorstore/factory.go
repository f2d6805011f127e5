package vectorstore

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "lexai_documents"

// New builds a Store from a store location string:
//
//   - "http://..." or "https://..." selects a remote Qdrant reached over
//     gRPC (the URL port, or 6334 when absent)
//   - ":memory:" selects an ephemeral in-memory chromem store
//   - anything else is a local filesystem path for a persistent chromem
//     store
func New(location, collection string, logger *zap.Logger) (Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if location == "" {
		return nil, fmt.Errorf("%w: store location cannot be empty", ErrInvalidConfig)
	}

	switch {
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		cfg, err := ParseQdrantURL(location, collection)
		if err != nil {
			return nil, err
		}
		return NewQdrantStore(cfg)

	case location == MemoryLocation:
		return NewChromemStore(ChromemConfig{
			Path:       MemoryLocation,
			Collection: collection,
		}, logger)

	default:
		return NewChromemStore(ChromemConfig{
			Path:       location,
			Collection: collection,
		}, logger)
	}
}
