package detect

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

// Stream finds tables laid out with whitespace only. Glyphs are grouped
// into lines, lines are split into cells on wide horizontal gaps, and runs
// of consecutive multi-cell lines whose cells start at shared x positions
// become a grid.
type Stream struct {
	ColumnGap     float64
	SnapTolerance float64
	Quiet         bool
	Logger        *slog.Logger
}

// NewStream returns a stream detector tuned by opts.
func NewStream(opts Options, logger *slog.Logger) *Stream {
	return &Stream{
		ColumnGap:     opts.StreamColumnGap,
		SnapTolerance: opts.StreamSnapTolerance,
		Quiet:         opts.Quiet,
		Logger:        logger,
	}
}

func (s *Stream) Name() string { return SourceStream }

func (s *Stream) Detect(ctx context.Context, path string, pages []int) (grids []table.Grid, err error) {
	defer recoverPanic(SourceStream, &err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	log := newPageLogger(s.Logger, SourceStream, s.Quiet)
	for _, n := range selectPages(pages, r.NumPage()) {
		if err := ctx.Err(); err != nil {
			return grids, err
		}

		glyphs, err := pageGlyphs(r, n)
		if err != nil {
			log.skip(n, err)
			continue
		}
		for _, rows := range s.inferTables(glyphs) {
			grids = append(grids, table.Grid{Page: n, Rows: rows})
		}
	}
	return grids, nil
}

// glyph is one positioned text run.
type glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

func pageGlyphs(r *pdf.Reader, n int) (glyphs []glyph, err error) {
	defer recoverPanic("read page", &err)

	page := r.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", n)
	}
	for _, t := range page.Content().Text {
		glyphs = append(glyphs, glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return glyphs, nil
}

// segment is a run of glyphs in one line with no wide gap inside it.
type segment struct {
	X    float64
	Text string
}

func (s *Stream) columnGap() float64 {
	if s.ColumnGap > 0 {
		return s.ColumnGap
	}
	return DefaultOptions().StreamColumnGap
}

func (s *Stream) snap() float64 {
	if s.SnapTolerance > 0 {
		return s.SnapTolerance
	}
	return DefaultOptions().StreamSnapTolerance
}

// inferTables returns the cell rows of every whitespace table in a page.
func (s *Stream) inferTables(glyphs []glyph) [][][]string {
	var (
		out   [][][]string
		block [][]segment
	)
	flush := func() {
		if len(block) >= 2 {
			if rows := s.blockRows(block); rows != nil {
				out = append(out, rows)
			}
		}
		block = nil
	}

	for _, line := range groupLines(glyphs, s.snap()) {
		segs := splitSegments(line, s.columnGap())
		if len(segs) < 2 {
			flush()
			continue
		}
		block = append(block, segs)
	}
	flush()
	return out
}

// blockRows aligns the segments of consecutive lines to shared column
// anchors. Blocks with fewer than two anchors are not tables.
func (s *Stream) blockRows(block [][]segment) [][]string {
	anchors := columnAnchors(block, s.snap())
	if len(anchors) < 2 {
		return nil
	}

	rows := make([][]string, 0, len(block))
	for _, segs := range block {
		row := make([]string, len(anchors))
		for _, seg := range segs {
			col := anchorIndex(anchors, seg.X, s.snap())
			if row[col] != "" {
				row[col] += " "
			}
			row[col] += seg.Text
		}
		rows = append(rows, row)
	}
	return trimCells(rows)
}

// groupLines buckets glyphs into lines by baseline, top line first, each
// line ordered left to right.
func groupLines(glyphs []glyph, tolerance float64) [][]glyph {
	sorted := make([]glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines [][]glyph
	for _, g := range sorted {
		n := len(lines)
		if n > 0 && math.Abs(lines[n-1][0].Y-g.Y) <= tolerance {
			lines[n-1] = append(lines[n-1], g)
			continue
		}
		lines = append(lines, []glyph{g})
	}

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
	}
	return lines
}

// splitSegments joins the glyphs of a line, starting a new segment at every
// gap of at least columnGap points. Smaller visible gaps become spaces.
func splitSegments(line []glyph, columnGap float64) []segment {
	var (
		segs []segment
		cur  strings.Builder
		curX float64
		end  float64
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			segs = append(segs, segment{X: curX, Text: t})
		}
		cur.Reset()
	}

	for i, g := range line {
		if i > 0 {
			gap := g.X - end
			switch {
			case gap >= columnGap:
				flush()
			case gap > 0.2*math.Max(g.FontSize, 1) && !strings.HasSuffix(cur.String(), " "):
				cur.WriteByte(' ')
			}
		}
		if cur.Len() == 0 {
			curX = g.X
		}
		cur.WriteString(g.S)
		if i == 0 || g.X+g.W > end {
			end = g.X + g.W
		}
	}
	flush()
	return segs
}

// columnAnchors clusters segment start positions and keeps the clusters
// present in at least half of the lines. Each anchor is the leftmost start
// of its cluster.
func columnAnchors(block [][]segment, tolerance float64) []float64 {
	type start struct {
		x    float64
		line int
	}
	var starts []start
	for i, segs := range block {
		for _, seg := range segs {
			starts = append(starts, start{x: seg.X, line: i})
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].x < starts[j].x })

	var anchors []float64
	for i := 0; i < len(starts); {
		j := i + 1
		for j < len(starts) && starts[j].x-starts[j-1].x <= tolerance {
			j++
		}
		lines := make(map[int]bool)
		for _, st := range starts[i:j] {
			lines[st.line] = true
		}
		if 2*len(lines) >= len(block) {
			anchors = append(anchors, starts[i].x)
		}
		i = j
	}
	return anchors
}

// anchorIndex returns the rightmost anchor at or left of x.
func anchorIndex(anchors []float64, x, tolerance float64) int {
	idx := 0
	for i, a := range anchors {
		if a-tolerance <= x {
			idx = i
		}
	}
	return idx
}
