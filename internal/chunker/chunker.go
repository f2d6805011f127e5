// Package chunker splits normalized document text into overlapping
// segments sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks.
const DefaultChunkOverlap = 200

// Splitter produces ordered, overlapping text chunks.
//
// Splitting is recursive: paragraph boundaries are preferred over line
// boundaries, lines over words, with a hard cut at the size limit as the
// last resort. Chunk order follows the document's left-to-right order.
type Splitter struct {
	chunkSize int
	overlap   int
	inner     textsplitter.RecursiveCharacter
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must stay below chunk size or splitting cannot advance.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	s.inner = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.overlap),
	)

	return s
}

// ChunkSize returns the configured target chunk size.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split breaks text into ordered chunks. Empty segments are dropped so
// every returned chunk is non-empty.
func (s *Splitter) Split(text string) ([]string, error) {
	raw, err := s.inner.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		if strings.TrimSpace(c) == "" {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
