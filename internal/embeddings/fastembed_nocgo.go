//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned when FastEmbed is not available
// (binary built without CGO support).
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (binary built without CGO support)")

// FastEmbed provides embedding generation using local ONNX models.
// This is a stub for non-CGO builds.
type FastEmbed struct{}

// NewFastEmbed returns an error when CGO is not available.
func NewFastEmbed(_ Config) (*FastEmbed, error) {
	return nil, ErrFastEmbedNotAvailable
}

// EmbedDocuments returns an error when CGO is not available.
func (p *FastEmbed) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

// EmbedQuery returns an error when CGO is not available.
func (p *FastEmbed) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

// Dimension returns 0 when CGO is not available.
func (p *FastEmbed) Dimension() int {
	return 0
}

// Close is a no-op when CGO is not available.
func (p *FastEmbed) Close() error {
	return nil
}

var _ Provider = (*FastEmbed)(nil)
