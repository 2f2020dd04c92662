package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor reads the plain text of each page.
type TextExtractor struct {
	Quiet  bool
	Logger *slog.Logger
}

// NewTextExtractor returns a text extractor.
func NewTextExtractor(quiet bool, logger *slog.Logger) *TextExtractor {
	return &TextExtractor{Quiet: quiet, Logger: logger}
}

// ExtractText returns the non-blank text of the first maxPages pages, in
// page order. A page that cannot be read is skipped.
func (e *TextExtractor) ExtractText(ctx context.Context, path string, maxPages int) (out []PageText, err error) {
	defer recoverPanic("text", &err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages > 0 && maxPages < total {
		total = maxPages
	}

	log := newPageLogger(e.Logger, "text", e.Quiet)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		text, err := pagePlainText(r, n)
		if err != nil {
			log.skip(n, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, PageText{Page: n, Text: text})
		}
	}
	return out, nil
}

func pagePlainText(r *pdf.Reader, n int) (text string, err error) {
	defer recoverPanic("read page", &err)

	page := r.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", n)
	}
	return page.GetPlainText(nil)
}
