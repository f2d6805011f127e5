package rpc

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/config"
	"github.com/mengdehong/LexAI/internal/embeddings"
	"github.com/mengdehong/LexAI/internal/vectorstore"
)

// testEmbedder produces deterministic vectors: texts mentioning LexAI
// land close together, everything else points elsewhere.
type testEmbedder struct{}

func embedText(text string) []float32 {
	if strings.Contains(text, "LexAI") {
		return []float32{1, 1, 0}
	}
	return []float32{1, 0, 1}
}

func (testEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func (testEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func (testEmbedder) Dimension() int { return 3 }
func (testEmbedder) Close() error   { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Location:   ":memory:",
			Collection: "lexai_documents",
		},
		Embeddings: config.EmbeddingsConfig{Model: "all-MiniLM-L6-v2"},
		Chunking:   config.ChunkingConfig{Size: 1000, Overlap: 200},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	deps := NewDependencies(testConfig(), zap.NewNop())
	deps.NewEmbedder = func() (embeddings.Provider, error) {
		return testEmbedder{}, nil
	}
	deps.NewStore = func() (vectorstore.Store, error) {
		return vectorstore.New(":memory:", "lexai_documents", zap.NewNop())
	}
	t.Cleanup(func() { _ = deps.Close() })
	return NewServer(deps)
}

func handle(t *testing.T, s *Server, line string) Response {
	t.Helper()
	return s.HandleLine(context.Background(), line)
}

func TestHandleLine_Ping(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	require.Nil(t, resp.Error)
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, float64(1), resp.ID)
	result := resp.Result.(map[string]any)
	assert.Equal(t, "ok", result["status"])
}

func TestHandleLine_Health(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":"h1","method":"health"}`)

	require.Nil(t, resp.Error)
	assert.Equal(t, "h1", resp.ID)
	result := resp.Result.(map[string]any)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "all-MiniLM-L6-v2", result["embedding_model"])
	assert.Equal(t, ":memory:", result["store_location"])
	assert.Equal(t, "lexai_documents", result["collection"])
}

func TestHandleLine_ParseError(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Nil(t, resp.ID)
}

func TestHandleLine_InvalidVersion(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		line string
	}{
		{name: "wrong version", line: `{"jsonrpc":"1.0","id":1,"method":"ping"}`},
		{name: "missing version", line: `{"id":1,"method":"ping"}`},
		{name: "non-string version", line: `{"jsonrpc":2,"id":1,"method":"ping"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handle(t, s, tt.line)
			require.NotNil(t, resp.Error)
			assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
			assert.Equal(t, "Invalid JSON-RPC version", resp.Error.Message)
		})
	}
}

func TestHandleLine_MethodMustBeString(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":42}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "Method must be a string", resp.Error.Message)
	assert.Equal(t, float64(1), resp.ID)
}

func TestHandleLine_MethodNotFound(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":7,"method":"reindex_all"}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "Method not found: reindex_all", resp.Error.Message)
	assert.Equal(t, float64(7), resp.ID)
}

func TestHandleLine_ParamsMustBeObject(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping","params":[1,2]}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Params must be an object", resp.Error.Message)
}

func TestHandleLine_NullParamsAccepted(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping","params":null}`)
	assert.Nil(t, resp.Error)
}

func TestHandleLine_NonObjectRequest(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `[1,2,3]`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Nil(t, resp.ID)
}

func TestUploadDocument_MissingFilePath(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"upload_document","params":{}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "file_path is required", resp.Error.Message)
}

func TestUploadDocument_FileNotFound(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"upload_document","params":{"file_path":"/nonexistent/input.txt"}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeProcessingFailed, resp.Error.Code)
	data := resp.Error.Data.(map[string]any)
	assert.Equal(t, "file_not_found", data["code"])
}

func TestUploadDocument_EmptyDocument(t *testing.T) {
	s := newTestServer(t)

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("  \n "), 0o644))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"upload_document","params":{"file_path":"`+path+`"}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeProcessingFailed, resp.Error.Code)
	data := resp.Error.Data.(map[string]any)
	assert.Equal(t, "empty_document", data["code"])
}

func TestSearchTermContexts_MissingParams(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"search_term_contexts","params":{"term":"x"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "document_id is required", resp.Error.Message)

	resp = handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"search_term_contexts","params":{"document_id":"d"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "term is required", resp.Error.Message)
}

func TestSearchTermContexts_UnknownDocumentEmptyResults(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"search_term_contexts","params":{"document_id":"ghost","term":"anything"}}`)

	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	assert.Empty(t, result["results"])
}

func TestUploadThenSearch(t *testing.T) {
	s := newTestServer(t)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("LexAI test term appears here."), 0o644))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"upload_document","params":{"file_path":"`+path+`","document_id":"doc-1"}}`)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Equal(t, "doc-1", result["document_id"])
	assert.Equal(t, "processed", result["status"])
	assert.Equal(t, "Document processed successfully", result["message"])
	assert.Equal(t, "LexAI test term appears here.", result["extracted_text"])

	resp = handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"search_term_contexts","params":{"document_id":"doc-1","term":"LexAI"}}`)
	require.Nil(t, resp.Error)

	searchResult := resp.Result.(map[string]any)
	hits := searchResult["results"].([]map[string]any)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0]["chunk_text"], "LexAI test term")
}

func TestUploadDocument_GeneratesDocumentID(t *testing.T) {
	s := newTestServer(t)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("content without explicit id"), 0o644))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"upload_document","params":{"file_path":"`+path+`"}}`)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.NotEmpty(t, result["document_id"])
}

func TestServe_ContinuesAfterBadLine(t *testing.T) {
	s := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))

	scanner := bufio.NewScanner(&out)

	require.True(t, scanner.Scan())
	first := scanner.Text()
	assert.Contains(t, first, `"code":-32700`)
	assert.Contains(t, first, `"id":null`)

	require.True(t, scanner.Scan())
	second := scanner.Text()
	assert.Contains(t, second, `"id":2`)
	assert.Contains(t, second, `"status":"ok"`)

	assert.False(t, scanner.Scan())
}

func TestServe_OneResponsePerRequest(t *testing.T) {
	s := newTestServer(t)

	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"health"}` + "\n"

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestSearchTermContexts_InvalidLimit(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"search_term_contexts","params":{"document_id":"d","term":"t","limit":"five"}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}
