// Package main implements lexaid, the LexAI document worker.
//
// The default mode serves line-delimited JSON-RPC over stdio: one
// request per line on stdin, one response per line on stdout, logging
// on stderr. The http subcommand serves the same pipeline over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mengdehong/LexAI/internal/config"
	"github.com/mengdehong/LexAI/internal/httpapi"
	"github.com/mengdehong/LexAI/internal/logging"
	"github.com/mengdehong/LexAI/internal/rpc"
)

// Version information (set via ldflags during build).
var (
	version   = "dev"
	gitCommit = "unknown"
)

var configPath string

func main() {
	// A missing .env file is fine; explicit environment still applies.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lexaid",
	Short: "LexAI document ingestion and retrieval worker",
	Long: `lexaid ingests documents (extract, chunk, embed, store) and serves
semantic term searches over their chunks.

Without a subcommand it runs the stdio JSON-RPC worker: requests are
read line by line from stdin and answered in order on stdout.`,
	Version:       fmt.Sprintf("%s (%s)", version, gitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStdio,
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve the document API over HTTP",
	Long: `Serve document upload and search over HTTP.

Endpoints:
  POST /documents/upload      multipart upload, processed synchronously
  GET  /documents/:id/search  term context search (term query parameter)
  GET  /healthz               health check
  GET  /metrics               Prometheus metrics`,
	RunE: runHTTP,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/lexai/config.yaml)")
	rootCmd.AddCommand(httpCmd)
}

// setup loads config and builds the logger and lazy dependencies.
func setup() (*config.Config, *zap.Logger, *rpc.Dependencies, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	return cfg, logger, rpc.NewDependencies(cfg, logger), nil
}

func runStdio(cmd *cobra.Command, _ []string) error {
	cfg, logger, deps, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = deps.Close()
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting stdio worker",
		zap.String("store_location", cfg.Store.Location),
		zap.String("collection", cfg.Store.Collection),
		zap.String("embedding_model", cfg.Embeddings.Model),
	)

	server := rpc.NewServer(deps)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio worker: %w", err)
	}

	logger.Info("stdio worker stopped")
	return nil
}

func runHTTP(cmd *cobra.Command, _ []string) error {
	cfg, logger, deps, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = deps.Close()
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proc, err := deps.Processor()
	if err != nil {
		return fmt.Errorf("initializing processor: %w", err)
	}
	searchSvc, err := deps.Search()
	if err != nil {
		return fmt.Errorf("initializing search: %w", err)
	}

	server, err := httpapi.NewServer(proc, searchSvc, logger, httpapi.Config{
		Port:          cfg.HTTP.Port,
		UploadDir:     cfg.Upload.Dir,
		StoreLocation: cfg.Store.Location,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("http server stopped")
	return nil
}
