// Package ingest turns an uploaded file into retrieval documents. PDFs go
// through the table cascade, falling back to chunked page text; any other
// content is treated as best-effort UTF-8 text.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/pdf-rag-ingest/internal/cascade"
	"github.com/a3tai/pdf-rag-ingest/internal/detect"
	"github.com/a3tai/pdf-rag-ingest/internal/document"
)

// ErrStorage is returned when the per-request scratch space cannot be set up.
var ErrStorage = errors.New("temporary storage unavailable")

const (
	// DefaultFilename names uploads that arrive without a filename.
	DefaultFilename = "uploaded"

	// Content types recorded when the request carries none.
	ContentTypePDF    = "application/pdf"
	ContentTypeBinary = "application/octet-stream"

	// Engine metadata values for documents that did not come from a table.
	EngineFallbackText = "fallback_text"
	EngineBasicText    = "basic_text"

	pageSeparator = "\n\n---\n\n"
)

// TextExtractor reads per-page plain text from a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string, maxPages int) ([]detect.PageText, error)
}

// PageResolver expands a page selector. A nil result means every page.
type PageResolver interface {
	Resolve(path, selector string) ([]int, error)
}

// Options bounds the output of a request.
type Options struct {
	MaxDocumentChars int
	OverlapChars     int
	MaxTextPages     int

	// Pages is the default page selector.
	Pages string

	// TempDir is the parent of the per-request scratch directories. Empty
	// uses the system default.
	TempDir string
}

// DefaultOptions returns the output bounds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxDocumentChars: 6000,
		OverlapChars:     800,
		MaxTextPages:     200,
		Pages:            detect.AllPages,
	}
}

// Request is one file to ingest.
type Request struct {
	Filename    string
	ContentType string
	Data        []byte

	// Pages overrides the default page selector when set.
	Pages string
}

// Service orchestrates a single ingestion.
type Service struct {
	cascade *cascade.Cascade
	emitter *document.Emitter
	text    TextExtractor
	pages   PageResolver
	opts    Options
	logger  *slog.Logger
}

// NewService wires the pipeline stages together.
func NewService(c *cascade.Cascade, e *document.Emitter, text TextExtractor, pages PageResolver, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cascade: c,
		emitter: e,
		text:    text,
		pages:   pages,
		opts:    opts,
		logger:  logger,
	}
}

// Options returns the effective output bounds.
func (s *Service) Options() Options {
	return s.opts
}

// Process converts req into documents. Only failures to create scratch
// storage are returned as errors; every other problem degrades to fewer
// documents or a placeholder.
func (s *Service) Process(ctx context.Context, req Request) ([]document.Document, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = DefaultFilename
	}
	mime := strings.ToLower(strings.TrimSpace(req.ContentType))

	if !IsPDF(filename, mime, req.Data) {
		return s.processText(filename, mime, req.Data), nil
	}

	dir, err := os.MkdirTemp(s.opts.TempDir, "pdf-rag-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, req.Data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	selector := req.Pages
	if selector == "" {
		selector = s.opts.Pages
	}
	return s.processPDF(ctx, path, filename, mime, selector), nil
}

// IsPDF reports whether the upload should take the PDF path: the content
// type mentions pdf, the name ends in .pdf, or the bytes carry a PDF header.
func IsPDF(filename, mime string, data []byte) bool {
	return strings.Contains(strings.ToLower(mime), "pdf") ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf") ||
		bytes.HasPrefix(data, []byte("%PDF-"))
}

func (s *Service) processPDF(ctx context.Context, path, filename, mime, selector string) []document.Document {
	pages, err := s.pages.Resolve(path, selector)
	if err != nil {
		s.logger.Warn("ignoring page selection", "file", filename, "pages", selector, "error", err)
		pages = nil
	}

	result := s.cascade.Extract(ctx, path, pages)
	if len(result.Tables) > 0 {
		docs := document.ChunkDocuments(s.emitter.EmitAll(result.Tables, filename), s.opts.MaxDocumentChars, s.opts.OverlapChars)
		s.logger.Info("processed document",
			"file", filename,
			"tables", len(result.Tables),
			"documents", len(docs),
			"detector_failures", len(result.Failures))
		return docs
	}

	texts, err := s.text.ExtractText(ctx, path, s.opts.MaxTextPages)
	if err != nil {
		s.logger.Warn("text extraction failed", "file", filename, "error", err)
		texts = nil
	}

	text := RenderPages(texts)
	if text == "" {
		text = filename + "\n\n(No tables or text content was found in this PDF. It may be scanned; OCR may be required.)"
	}
	if mime == "" {
		mime = ContentTypePDF
	}

	docs := document.TextDocuments(text, map[string]any{
		document.MetaSource:      filename,
		document.MetaContentType: mime,
		document.MetaEngine:      EngineFallbackText,
	}, s.opts.MaxDocumentChars, s.opts.OverlapChars)

	s.logger.Info("processed document without tables",
		"file", filename,
		"pages_with_text", len(texts),
		"documents", len(docs),
		"detector_failures", len(result.Failures))
	return docs
}

func (s *Service) processText(filename, mime string, data []byte) []document.Document {
	text := strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	if text == "" {
		text = filename + "\n\n(Non-PDF format not handled; empty text.)"
	}
	if mime == "" {
		mime = ContentTypeBinary
	}

	docs := document.TextDocuments(text, map[string]any{
		document.MetaSource:      filename,
		document.MetaContentType: mime,
		document.MetaEngine:      EngineBasicText,
	}, s.opts.MaxDocumentChars, s.opts.OverlapChars)

	s.logger.Info("processed non-PDF upload", "file", filename, "content_type", mime, "documents", len(docs))
	return docs
}

// RenderPages joins non-blank page texts under per-page headings.
func RenderPages(texts []detect.PageText) string {
	blocks := make([]string, 0, len(texts))
	for _, t := range texts {
		body := strings.TrimSpace(t.Text)
		if body == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## page %d\n\n%s\n", t.Page, body))
	}
	return strings.TrimSpace(strings.Join(blocks, pageSeparator))
}
