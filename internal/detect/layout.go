package detect

import (
	"context"
	"log/slog"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

// Layout is the last-resort detector. It clusters positioned text into
// aligned rows and columns, using rulings only as supporting evidence, so
// it also finds tables the other detectors miss.
type Layout struct {
	MinConfidence float64
	Quiet         bool
	Logger        *slog.Logger
}

// NewLayout returns a layout detector tuned by opts.
func NewLayout(opts Options, logger *slog.Logger) *Layout {
	return &Layout{
		MinConfidence: opts.LayoutMinConfidence,
		Quiet:         opts.Quiet,
		Logger:        logger,
	}
}

func (l *Layout) Name() string { return SourceLayout }

func (l *Layout) Detect(ctx context.Context, path string, pages []int) ([]table.Grid, error) {
	cfg := tables.DefaultConfig()
	if l.MinConfidence > 0 {
		cfg.MinConfidence = l.MinConfidence
	}
	det := tables.NewGeometricDetector()
	if err := det.Configure(cfg); err != nil {
		return nil, err
	}

	log := newPageLogger(l.Logger, SourceLayout, l.Quiet)

	var grids []table.Grid
	err := eachTabulaPage(ctx, path, pages, log, func(p tabulaPage) {
		found, err := det.Detect(modelPage(p))
		if err != nil {
			log.skip(p.Number, err)
			return
		}
		for _, t := range found {
			if rows := tableRows(t); len(rows) > 0 {
				grids = append(grids, table.Grid{Page: p.Number, Rows: rows})
			}
		}
	})
	return grids, err
}

// modelPage converts a parsed page into the layout model the geometric
// detector consumes.
func modelPage(p tabulaPage) *model.Page {
	mp := model.NewPage(p.Width, p.Height)
	mp.Number = p.Number
	mp.RawText = modelFragments(p.Fragments)
	if p.Graphics != nil {
		mp.RawLines = append(mp.RawLines, p.Graphics.ToModelLines()...)
		mp.RawLines = append(mp.RawLines, p.Graphics.ToModelRectangles()...)
	}
	return mp
}

func modelFragments(fragments []text.TextFragment) []model.TextFragment {
	out := make([]model.TextFragment, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return out
}

func tableRows(t *model.Table) [][]string {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(r))
		for j, c := range r {
			row[j] = c.Text
		}
		rows = append(rows, row)
	}
	return trimCells(rows)
}
