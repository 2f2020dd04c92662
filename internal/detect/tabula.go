package detect

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"
)

// tabulaPage is one parsed page: positioned text plus the stroked graphics.
type tabulaPage struct {
	Number    int
	Width     float64
	Height    float64
	Fragments []text.TextFragment
	Graphics  *graphicsstate.GraphicsExtractor
}

// eachTabulaPage parses the selected pages with tabula and calls fn for each.
// Pages that fail to parse or panic are skipped; only failing to open the file
// is an error.
func eachTabulaPage(ctx context.Context, path string, selected []int, log pageLogger, fn func(p tabulaPage)) (err error) {
	defer recoverPanic("tabula", &err)

	r, err := reader.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return fmt.Errorf("failed to count pages: %w", err)
	}

	for _, n := range selectPages(selected, count) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visitTabulaPage(r, n, log, fn); err != nil {
			log.skip(n, err)
		}
	}
	return nil
}

// visitTabulaPage parses page n and hands it to fn. A panic in the parser or
// in fn is returned as an error so the remaining pages are still visited.
func visitTabulaPage(r *reader.Reader, n int, log pageLogger, fn func(p tabulaPage)) (err error) {
	defer recoverPanic(fmt.Sprintf("page %d", n), &err)

	page, err := r.GetPage(n - 1)
	if err != nil {
		return err
	}

	fragments, err := r.ExtractTextFragments(page)
	if err != nil {
		return err
	}

	ge := graphicsstate.NewGraphicsExtractor()
	if data, err := pageContent(page); err != nil {
		log.skip(n, err)
	} else if err := ge.ExtractFromBytes(data); err != nil {
		log.skip(n, err)
	}

	width, _ := page.Width()
	height, _ := page.Height()

	fn(tabulaPage{
		Number:    n,
		Width:     width,
		Height:    height,
		Fragments: fragments,
		Graphics:  ge,
	})
	return nil
}

// pageContent concatenates the decoded content streams of a page.
func pageContent(page *pages.Page) ([]byte, error) {
	contents, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to get contents: %w", err)
	}

	var buf bytes.Buffer
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content stream: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
