package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	s := New()

	chunks, err := s.Split("hello lexai")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello lexai", chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	s := New()

	chunks, err := s.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitLongText(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("the quick brown fox jumps over the lazy dog ")
	}
	text := strings.TrimSpace(b.String())

	chunks, err := s.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.NotEmpty(t, c, "chunk %d must be non-empty", i)
		assert.LessOrEqual(t, len(c), 100, "chunk %d exceeds size limit", i)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := New(WithChunkSize(60), WithOverlap(0))

	text := "first paragraph stays together here\n\nsecond paragraph stays together"
	chunks, err := s.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "first paragraph")
	assert.Contains(t, chunks[1], "second paragraph")
}

func TestSplitCoversAllContent(t *testing.T) {
	s := New(WithChunkSize(80), WithOverlap(10))

	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
		"hotel", "india", "juliett", "kilo", "lima", "mike", "november", "oscar",
		"papa", "quebec", "romeo", "sierra", "tango", "uniform", "victor"}
	text := strings.Join(words, " ")

	chunks, err := s.Split(text)
	require.NoError(t, err)

	// Every word of the input must appear in at least one chunk.
	joined := strings.Join(chunks, " ")
	for _, w := range words {
		assert.Contains(t, joined, w)
	}
}

func TestNewClampsOverlap(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(150))
	assert.Equal(t, 25, s.Overlap())
	assert.Equal(t, 100, s.ChunkSize())
}

func TestDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, DefaultChunkOverlap, s.Overlap())
}
