// Package rpc implements the line-delimited JSON-RPC 2.0 worker
// protocol served over stdio.
//
// One request per line, one response per line. Requests are handled
// strictly in order by a single control loop; a malformed line produces
// an error response and the loop continues with the next line. Stdout
// carries only protocol frames; all logging goes to stderr.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/metrics"
	"github.com/mengdehong/LexAI/internal/processor"
)

// maxLineSize bounds a single request line. Documents arrive by file
// path, not inline, so requests stay small; this is headroom, not a
// target.
const maxLineSize = 10 * 1024 * 1024

// Handler serves one RPC method.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Server dispatches JSON-RPC requests to registered handlers.
type Server struct {
	deps     *Dependencies
	logger   *zap.Logger
	metrics  *metrics.Metrics
	handlers map[string]Handler
}

// NewServer creates a server with the built-in method set: ping,
// health, health_plus, upload_document, search_term_contexts.
func NewServer(deps *Dependencies) *Server {
	s := &Server{
		deps:    deps,
		logger:  deps.Logger,
		metrics: metrics.New(),
	}
	s.handlers = map[string]Handler{
		"ping":                 s.handlePing,
		"health":               s.handleHealth,
		"health_plus":          s.handleHealthPlus,
		"upload_document":      s.handleUploadDocument,
		"search_term_contexts": s.handleSearchTermContexts,
	}
	return s
}

// ErrorObject is the wire form of a JSON-RPC error.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Response is one JSON-RPC response frame.
type Response struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}

func successResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id any, rpcErr *Error) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ErrorObject{
			Code:    rpcErr.Code,
			Message: rpcErr.Message,
			Data:    rpcErr.Data,
		},
	}
}

// Serve reads requests from r line by line and writes one response per
// request to w, until r is exhausted or ctx is canceled. Errors on a
// single request never stop the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := s.HandleLine(ctx, line)
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

// HandleLine processes one raw request line and returns the response
// to write.
func (s *Server) HandleLine(ctx context.Context, line string) Response {
	var raw any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return errorResponse(nil, NewError(CodeParseError, fmt.Sprintf("Parse error: %v", err)))
	}

	request, ok := raw.(map[string]any)
	if !ok {
		return errorResponse(nil, NewError(CodeInvalidRequest, "Request must be an object"))
	}

	requestID := request["id"]

	result, err := s.dispatch(ctx, request)
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return errorResponse(requestID, rpcErr)
		}
		return errorResponse(requestID, NewErrorWithData(
			CodeInternalError,
			fmt.Sprintf("Internal error: %v", err),
			map[string]any{"traceback": err.Error()},
		))
	}
	return successResponse(requestID, result)
}

// dispatch validates the envelope and runs the method handler.
func (s *Server) dispatch(ctx context.Context, request map[string]any) (result any, err error) {
	if v, _ := request["jsonrpc"].(string); v != "2.0" {
		return nil, NewError(CodeInvalidRequest, "Invalid JSON-RPC version")
	}

	method, ok := request["method"].(string)
	if !ok {
		return nil, NewError(CodeInvalidRequest, "Method must be a string")
	}

	handler, ok := s.handlers[method]
	if !ok {
		return nil, NewError(CodeMethodNotFound, fmt.Sprintf("Method not found: %s", method))
	}

	params := map[string]any{}
	if raw, present := request["params"]; present && raw != nil {
		params, ok = raw.(map[string]any)
		if !ok {
			return nil, NewError(CodeInvalidParams, "Params must be an object")
		}
	}

	s.metrics.RPCRequestsTotal.WithLabelValues(method).Inc()

	// A handler panic must not kill the worker; surface it as an
	// internal error with a trace for operators.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic",
				zap.String("method", method),
				zap.Any("panic", r),
			)
			err = NewErrorWithData(
				CodeInternalError,
				fmt.Sprintf("Internal error: %v", r),
				map[string]any{"traceback": string(debug.Stack())},
			)
		}
	}()

	return handler(ctx, params)
}

func (s *Server) handlePing(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{"status": "ok"}, nil
}

func (s *Server) handleHealth(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{
		"status":          "ok",
		"embedding_model": s.deps.Config.Embeddings.Model,
		"store_location":  s.deps.Config.Store.Location,
		"collection":      s.deps.Config.Store.Collection,
	}, nil
}

// handleHealthPlus additionally proves the embedder can initialize and
// reports the model cache environment, for diagnosing cold installs.
func (s *Server) handleHealthPlus(_ context.Context, _ map[string]any) (any, error) {
	if _, err := s.deps.Embedder(); err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("Embedder initialization failed: %v", err))
	}
	return map[string]any{
		"status":          "ok",
		"embedding_model": s.deps.Config.Embeddings.Model,
		"cache_dir":       embeddingsCacheDir(s.deps.Config.Embeddings.CacheDir),
	}, nil
}

func (s *Server) handleUploadDocument(ctx context.Context, params map[string]any) (any, error) {
	filePath, _ := params["file_path"].(string)
	if filePath == "" {
		return nil, NewError(CodeInvalidParams, "file_path is required")
	}

	documentID, _ := params["document_id"].(string)
	if documentID == "" {
		documentID = uuid.NewString()
	}

	svc, err := s.deps.Processor()
	if err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("Failed to process document: %v", err))
	}

	extractedText, err := svc.Process(ctx, filePath, documentID)
	if err != nil {
		var perr *processor.ProcessingError
		if errors.As(err, &perr) {
			return nil, NewErrorWithData(CodeProcessingFailed, perr.Message, map[string]any{"code": perr.Code})
		}
		return nil, NewError(CodeInternalError, fmt.Sprintf("Failed to process document: %v", err))
	}

	return map[string]any{
		"document_id":    documentID,
		"status":         "processed",
		"message":        "Document processed successfully",
		"extracted_text": extractedText,
	}, nil
}

func (s *Server) handleSearchTermContexts(ctx context.Context, params map[string]any) (any, error) {
	documentID, _ := params["document_id"].(string)
	if documentID == "" {
		return nil, NewError(CodeInvalidParams, "document_id is required")
	}
	term, _ := params["term"].(string)
	if term == "" {
		return nil, NewError(CodeInvalidParams, "term is required")
	}

	limit := 0
	if raw, ok := params["limit"]; ok {
		f, ok := raw.(float64)
		if !ok {
			return nil, NewError(CodeInvalidParams, "limit must be a number")
		}
		limit = int(f)
	}

	svc, err := s.deps.Search()
	if err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("Search failed: %v", err))
	}

	hits, err := svc.TermContexts(ctx, documentID, term, limit)
	if err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("Search failed: %v", err))
	}

	results := make([]map[string]any, len(hits))
	for i, hit := range hits {
		results[i] = map[string]any{
			"chunk_text": hit.ChunkText,
			"score":      hit.Score,
		}
	}
	return map[string]any{"results": results}, nil
}
