package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/a3tai/pdf-rag-ingest/internal/config"
	"github.com/a3tai/pdf-rag-ingest/internal/httpapi"
	"github.com/a3tai/pdf-rag-ingest/internal/ingest"
	"github.com/a3tai/pdf-rag-ingest/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 30 * time.Second

// logOutput picks where logs go. In stdio mode stdout carries the MCP
// protocol, so logs go to stderr when debugging and nowhere otherwise.
func logOutput(cfg *config.Config) io.Writer {
	if cfg.IsStdioMode() {
		if cfg.IsDebug() {
			return os.Stderr
		}
		return io.Discard
	}
	return os.Stdout
}

// newLogger builds the process logger for cfg.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     cfg.SlogLevel(),
		AddSource: cfg.IsServerMode() && cfg.IsDebug(),
	}))
}

// runServerMode serves the HTTP API until ctx is cancelled, then drains
// in-flight requests.
func runServerMode(ctx context.Context, cfg *config.Config, svc *ingest.Service, logger *slog.Logger) error {
	srv := httpapi.NewServer(cfg, httpapi.NewHandler(svc, cfg.APIKey, cfg.MaxFileSize, logger))

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", srv.Addr)
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped successfully")
		return nil

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// runStdioMode serves the MCP tools; the parent process owns our lifecycle.
func runStdioMode(ctx context.Context, cfg *config.Config, svc *ingest.Service, logger *slog.Logger) error {
	server, err := mcp.NewServer(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, logOutput(cfg))
	slog.SetDefault(logger)
	logger.Debug("starting", "config", cfg.String())

	svc := ingest.NewFromConfig(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if cfg.IsServerMode() {
		err = runServerMode(ctx, cfg, svc, logger)
	} else {
		err = runStdioMode(ctx, cfg, svc, logger)
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "PDF RAG Ingest\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
