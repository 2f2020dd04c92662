// Package httpapi exposes the ingest service over HTTP: PUT /process takes
// the raw file as the request body and answers with the JSON documents.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a3tai/pdf-rag-ingest/internal/config"
	"github.com/a3tai/pdf-rag-ingest/internal/document"
	"github.com/a3tai/pdf-rag-ingest/internal/ingest"
)

// HeaderFilename carries the original file name of the uploaded body.
const HeaderFilename = "X-Filename"

// Processor is the part of the ingest service the handler needs.
type Processor interface {
	Process(ctx context.Context, req ingest.Request) ([]document.Document, error)
}

// Handler serves the ingestion endpoints.
type Handler struct {
	svc     Processor
	apiKey  string
	maxBody int64
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler returns the HTTP routes. Requests to /process must carry
// "Authorization: Bearer <apiKey>" and a body of at most maxBody bytes.
func NewHandler(svc Processor, apiKey string, maxBody int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:     svc,
		apiKey:  apiKey,
		maxBody: maxBody,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("PUT /process", h.handleProcess)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	if status, msg := h.authorize(r.Header.Get("Authorization")); status != 0 {
		writeError(w, status, msg)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Body exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "Cannot read body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Empty body")
		return
	}

	docs, err := h.svc.Process(r.Context(), ingest.Request{
		Filename:    r.Header.Get(HeaderFilename),
		ContentType: r.Header.Get("Content-Type"),
		Data:        body,
	})
	if err != nil {
		h.logger.Error("processing failed", "filename", r.Header.Get(HeaderFilename), "error", err)
		writeError(w, http.StatusInternalServerError, "Processing failed")
		return
	}
	if docs == nil {
		docs = []document.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// authorize returns a non-zero status when the bearer token is unusable.
func (h *Handler) authorize(header string) (int, string) {
	if h.apiKey == "" {
		return http.StatusInternalServerError, "API key is not set on the ingestion engine"
	}
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return http.StatusUnauthorized, "Missing Bearer token"
	}
	token := strings.TrimSpace(header[len("bearer "):])
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) != 1 {
		return http.StatusForbidden, "Invalid token"
	}
	return 0, ""
}

// NewServer wraps h in an http.Server listening on the configured address.
func NewServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
