package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/chunker"
	"github.com/mengdehong/LexAI/internal/extraction"
	"github.com/mengdehong/LexAI/internal/processor"
	"github.com/mengdehong/LexAI/internal/search"
	"github.com/mengdehong/LexAI/internal/vectorstore"
)

type fixedEmbedder struct{}

func embedText(text string) []float32 {
	if strings.Contains(text, "LexAI") {
		return []float32{1, 1, 0}
	}
	return []float32{1, 0, 1}
}

func (fixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func (fixedEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func (fixedEmbedder) Dimension() int { return 3 }
func (fixedEmbedder) Close() error   { return nil }

const echoContentType = "Content-Type"

func newTestHTTPServer(t *testing.T) *Server {
	t.Helper()

	store, err := vectorstore.New(":memory:", "lexai_documents", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	embedder := fixedEmbedder{}
	proc := processor.NewService(chunker.New(), embedder, store, extraction.NewCommand(""), zap.NewNop())
	searchSvc := search.NewService(embedder, store, zap.NewNop())

	srv, err := NewServer(proc, searchSvc, zap.NewNop(), Config{
		Port:          8000,
		UploadDir:     t.TempDir(),
		StoreLocation: ":memory:",
	})
	require.NoError(t, err)
	return srv
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestHandleHealth(t *testing.T) {
	srv := newTestHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ":memory:", resp.StoreLocation)
}

func TestHandleMetrics(t *testing.T) {
	srv := newTestHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleUpload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newTestHTTPServer(t)

		body, contentType := multipartUpload(t, "doc.txt", "LexAI test term appears here.")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set(echoContentType, contentType)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp UploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.DocumentID)
		assert.Equal(t, "processed", resp.Status)
		assert.Equal(t, "Document processed successfully", resp.Message)
	})

	t.Run("missing file field", func(t *testing.T) {
		srv := newTestHTTPServer(t)

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", strings.NewReader(""))
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty file", func(t *testing.T) {
		srv := newTestHTTPServer(t)

		body, contentType := multipartUpload(t, "empty.txt", "")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set(echoContentType, contentType)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Uploaded file is empty", resp.Detail)
	})

	t.Run("whitespace-only document is classified", func(t *testing.T) {
		srv := newTestHTTPServer(t)

		body, contentType := multipartUpload(t, "blank.txt", "   \n\t ")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set(echoContentType, contentType)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "empty_document", resp.Code)
	})
}

func TestUploadThenSearch(t *testing.T) {
	srv := newTestHTTPServer(t)

	body, contentType := multipartUpload(t, "doc.txt", "LexAI test term appears here.")
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set(echoContentType, contentType)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var upload UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))

	req = httptest.NewRequest(http.MethodGet, "/documents/"+upload.DocumentID+"/search?term=LexAI", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].ChunkText, "LexAI test term")
}

func TestHandleSearch_MissingTerm(t *testing.T) {
	srv := newTestHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1/search", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_UnknownDocument(t *testing.T) {
	srv := newTestHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/documents/ghost/search?term=anything", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
}

func TestUploadCleansStagedFile(t *testing.T) {
	srv := newTestHTTPServer(t)
	uploadDir := srv.config.UploadDir

	body, contentType := multipartUpload(t, "doc.txt", "some document content")
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set(echoContentType, contentType)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
