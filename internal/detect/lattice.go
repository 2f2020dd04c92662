package detect

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

// Lattice finds tables drawn with ruling lines. Stroked horizontal and
// vertical segments are clustered into grids and each text fragment is
// placed in the cell containing its centre.
type Lattice struct {
	MinLineLength      float64
	AlignmentTolerance float64
	Quiet              bool
	Logger             *slog.Logger
}

// NewLattice returns a lattice detector tuned by opts.
func NewLattice(opts Options, logger *slog.Logger) *Lattice {
	return &Lattice{
		MinLineLength:      opts.LatticeMinLineLength,
		AlignmentTolerance: opts.LatticeAlignmentTolerance,
		Quiet:              opts.Quiet,
		Logger:             logger,
	}
}

func (l *Lattice) Name() string { return SourceLattice }

func (l *Lattice) Detect(ctx context.Context, path string, pages []int) ([]table.Grid, error) {
	gd := tables.NewGridDetector()
	if l.MinLineLength > 0 {
		gd.MinLineLength = l.MinLineLength
	}
	if l.AlignmentTolerance > 0 {
		gd.AlignmentTolerance = l.AlignmentTolerance
	}

	var grids []table.Grid
	err := eachTabulaPage(ctx, path, pages, newPageLogger(l.Logger, SourceLattice, l.Quiet), func(p tabulaPage) {
		for _, h := range gd.DetectFromExtractor(p.Graphics) {
			rows := fillGrid(h.HorizontalLines, h.VerticalLines, p.Fragments)
			if len(rows) > 0 {
				grids = append(grids, table.Grid{Page: p.Number, Rows: rows})
			}
		}
	})
	return grids, err
}

// fillGrid places fragments into the cells bounded by rulings. ys are row
// boundaries sorted top to bottom (descending Y), xs column boundaries
// sorted left to right. Grids without any text yield nil.
func fillGrid(ys, xs []float64, fragments []text.TextFragment) [][]string {
	nRows, nCols := len(ys)-1, len(xs)-1
	if nRows < 1 || nCols < 1 {
		return nil
	}

	ordered := make([]text.TextFragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Y != ordered[j].Y {
			return ordered[i].Y > ordered[j].Y
		}
		return ordered[i].X < ordered[j].X
	})

	cells := make([][]strings.Builder, nRows)
	for i := range cells {
		cells[i] = make([]strings.Builder, nCols)
	}

	placed := 0
	for _, f := range ordered {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		row := bandIndex(ys, f.Y+f.Height/2, true)
		col := bandIndex(xs, f.X+f.Width/2, false)
		if row < 0 || col < 0 {
			continue
		}
		b := &cells[row][col]
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Text)
		placed++
	}
	if placed == 0 {
		return nil
	}

	rows := make([][]string, nRows)
	for i := range cells {
		rows[i] = make([]string, nCols)
		for j := range cells[i] {
			rows[i][j] = cells[i][j].String()
		}
	}
	return trimCells(rows)
}

// bandIndex returns the band of bounds that contains v, or -1.
func bandIndex(bounds []float64, v float64, descending bool) int {
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		if descending {
			lo, hi = hi, lo
		}
		if v >= lo && v < hi {
			return i
		}
	}
	return -1
}
