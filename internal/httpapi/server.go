// Package httpapi provides the HTTP API for lexaid: document upload,
// per-document term search, health, and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/processor"
	"github.com/mengdehong/LexAI/internal/search"
)

// Config holds HTTP server configuration.
type Config struct {
	Port int

	// UploadDir is where uploaded files are staged before processing.
	UploadDir string

	// StoreLocation is reported by the health endpoint.
	StoreLocation string
}

// Server provides HTTP endpoints for lexaid.
type Server struct {
	echo      *echo.Echo
	processor *processor.Service
	search    *search.Service
	logger    *zap.Logger
	config    Config
}

// NewServer creates an HTTP server wired to the processing and search
// services.
func NewServer(proc *processor.Service, searchSvc *search.Service, logger *zap.Logger, cfg Config) (*Server, error) {
	if proc == nil {
		return nil, fmt.Errorf("processor service is required")
	}
	if searchSvc == nil {
		return nil, fmt.Errorf("search service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "lexai_uploads")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		processor: proc,
		search:    searchSvc,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	docs := s.echo.Group("/documents")
	docs.POST("/upload", s.handleUpload)
	docs.GET("/:id/search", s.handleSearch)
}

// UploadResponse is the response body for POST /documents/upload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// SearchResult is one scored chunk in a search response.
type SearchResult struct {
	ChunkText string  `json:"chunk_text"`
	Score     float32 `json:"score"`
}

// SearchResponse is the response body for GET /documents/:id/search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ErrorResponse carries an error detail and, for classified pipeline
// failures, the stable code.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	StoreLocation string `json:"store_location"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		StoreLocation: s.config.StoreLocation,
	})
}

// handleUpload stages the multipart file to the upload directory, runs
// the ingestion pipeline, and always removes the staged file.
func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "file field is required"})
	}
	if fileHeader.Filename == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "Filename is required"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "failed to read uploaded file"})
	}
	defer src.Close()

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		s.logger.Error("creating upload dir", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "failed to stage uploaded file"})
	}

	documentID := uuid.NewString()
	safeName := filepath.Base(fileHeader.Filename)
	tempPath := filepath.Join(s.config.UploadDir, fmt.Sprintf("%s_%s", documentID, safeName))

	dst, err := os.Create(tempPath)
	if err != nil {
		s.logger.Error("staging uploaded file", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "failed to stage uploaded file"})
	}

	written, err := io.Copy(dst, src)
	closeErr := dst.Close()
	// The staged copy is removed regardless of processing outcome.
	defer os.Remove(tempPath)

	if err != nil || closeErr != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "failed to stage uploaded file"})
	}
	if written == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "Uploaded file is empty"})
	}

	if _, err := s.processor.Process(c.Request().Context(), tempPath, documentID); err != nil {
		var perr *processor.ProcessingError
		if errors.As(err, &perr) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: perr.Message, Code: perr.Code})
		}
		s.logger.Error("processing uploaded document",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: fmt.Sprintf("Failed to process document: %v", err)})
	}

	return c.JSON(http.StatusCreated, UploadResponse{
		DocumentID: documentID,
		Status:     "processed",
		Message:    "Document processed successfully",
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	documentID := c.Param("id")
	term := c.QueryParam("term")
	if term == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "term query parameter is required"})
	}

	hits, err := s.search.TermContexts(c.Request().Context(), documentID, term, search.DefaultLimit)
	if err != nil {
		s.logger.Error("search failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: fmt.Sprintf("Search failed: %v", err)})
	}

	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{ChunkText: hit.ChunkText, Score: hit.Score}
	}
	return c.JSON(http.StatusOK, SearchResponse{Results: results})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
