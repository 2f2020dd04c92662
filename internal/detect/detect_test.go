package detect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/text"
)

func TestSelectPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []int
		count int
		want  []int
	}{
		{"nil selects all", nil, 3, []int{1, 2, 3}},
		{"empty selects none", []int{}, 3, []int{}},
		{"filters and sorts", []int{5, 2, 0, 2, 1}, 3, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectPages(tt.pages, tt.count))
		})
	}
}

func TestFillGrid(t *testing.T) {
	ys := []float64{700, 680, 660}
	xs := []float64{50, 150, 250}
	frags := []text.TextFragment{
		{Text: "1.00", X: 160, Y: 665, Width: 20, Height: 10},
		{Text: "Green", X: 95, Y: 665, Width: 20, Height: 10},
		{Text: "Name", X: 60, Y: 685, Width: 30, Height: 10},
		{Text: "Price", X: 160, Y: 685, Width: 30, Height: 10},
		{Text: "Apple", X: 60, Y: 665, Width: 25, Height: 10},
		{Text: "stray", X: 400, Y: 665, Width: 20, Height: 10},
		{Text: "  ", X: 60, Y: 665, Width: 5, Height: 10},
	}

	got := fillGrid(ys, xs, frags)

	assert.Equal(t, [][]string{
		{"Name", "Price"},
		{"Apple Green", "1.00"},
	}, got)
}

func TestFillGrid_Degenerate(t *testing.T) {
	assert.Nil(t, fillGrid([]float64{700}, []float64{50, 100}, nil))
	assert.Nil(t, fillGrid([]float64{700, 600}, []float64{50, 100}, []text.TextFragment{
		{Text: "outside", X: 500, Y: 650, Width: 10, Height: 10},
	}))
}

func TestBandIndex(t *testing.T) {
	assert.Equal(t, 0, bandIndex([]float64{0, 10, 20}, 5, false))
	assert.Equal(t, 1, bandIndex([]float64{0, 10, 20}, 10, false))
	assert.Equal(t, -1, bandIndex([]float64{0, 10, 20}, 25, false))
	assert.Equal(t, 1, bandIndex([]float64{20, 10, 0}, 5, true))
	assert.Equal(t, -1, bandIndex([]float64{20, 10, 0}, 21, true))
}

func word(s string, x, y float64) glyph {
	return glyph{X: x, Y: y, W: 6 * float64(len(s)), FontSize: 10, S: s}
}

func TestGroupLinesAndSplitSegments(t *testing.T) {
	glyphs := []glyph{
		word("2024", 95, 700.5),
		word("Tariffs", 50, 700),
		word("Calls", 200, 650),
		word("Country", 50, 651),
	}

	lines := groupLines(glyphs, 3)
	require.Len(t, lines, 2)

	title := splitSegments(lines[0], 8)
	assert.Equal(t, []segment{{X: 50, Text: "Tariffs 2024"}}, title)

	header := splitSegments(lines[1], 8)
	assert.Equal(t, []segment{{X: 50, Text: "Country"}, {X: 200, Text: "Calls"}}, header)
}

func TestColumnAnchors(t *testing.T) {
	block := [][]segment{
		{{X: 50, Text: "a"}, {X: 200, Text: "b"}},
		{{X: 50, Text: "c"}, {X: 202, Text: "d"}, {X: 400, Text: "note"}},
		{{X: 50, Text: "e"}, {X: 201, Text: "f"}},
	}

	assert.Equal(t, []float64{50, 200}, columnAnchors(block, 3))
	assert.Equal(t, 1, anchorIndex([]float64{50, 200}, 400, 3))
	assert.Equal(t, 1, anchorIndex([]float64{50, 200}, 198, 3))
	assert.Equal(t, 0, anchorIndex([]float64{50, 200}, 10, 3))
}

func TestStreamInferTables(t *testing.T) {
	s := NewStream(DefaultOptions(), nil)

	glyphs := []glyph{
		word("Tariffs", 50, 700), word("2024", 95, 700),

		word("Country", 50, 650), word("Calls", 200, 650), word("SMS", 300, 650),
		word("Argentina", 50, 635), word("1,20", 202, 635), word("0,10", 301, 635),
		word("Brazil", 50, 620), word("2,00", 200, 620), word("0,20", 300, 620),

		word("Prices include VAT.", 50, 500),
	}

	got := s.inferTables(glyphs)

	require.Len(t, got, 1)
	assert.Equal(t, [][]string{
		{"Country", "Calls", "SMS"},
		{"Argentina", "1,20", "0,10"},
		{"Brazil", "2,00", "0,20"},
	}, got[0])
}

func TestStreamInferTables_SingleLineIsNotATable(t *testing.T) {
	s := NewStream(DefaultOptions(), nil)
	got := s.inferTables([]glyph{word("Total", 50, 600), word("12", 300, 600)})
	assert.Empty(t, got)
}

func TestModelPageConversion(t *testing.T) {
	p := tabulaPage{
		Number: 3,
		Width:  612,
		Height: 792,
		Fragments: []text.TextFragment{
			{Text: "Cell", X: 10, Y: 20, Width: 30, Height: 12, FontName: "Helvetica", FontSize: 12},
		},
	}

	mp := modelPage(p)

	assert.Equal(t, 3, mp.Number)
	assert.Equal(t, 612.0, mp.Width)
	require.Len(t, mp.RawText, 1)
	assert.Equal(t, model.BBox{X: 10, Y: 20, Width: 30, Height: 12}, mp.RawText[0].BBox)
	assert.Equal(t, "Helvetica", mp.RawText[0].FontName)
	assert.Empty(t, mp.RawLines)
}

func TestTableRows(t *testing.T) {
	assert.Nil(t, tableRows(nil))

	got := tableRows(&model.Table{Rows: [][]model.Cell{
		{{Text: " a "}, {Text: "b"}},
		{{Text: "c"}},
	}})
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, got)
}

func TestDetectorNames(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, SourceLattice, NewLattice(opts, nil).Name())
	assert.Equal(t, SourceStream, NewStream(opts, nil).Name())
	assert.Equal(t, SourceLayout, NewLayout(opts, nil).Name())
}

func TestDetectors_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	ctx := context.Background()
	opts := DefaultOptions()

	_, err := NewLattice(opts, nil).Detect(ctx, missing, nil)
	assert.Error(t, err)

	_, err = NewStream(opts, nil).Detect(ctx, missing, nil)
	assert.Error(t, err)

	_, err = NewLayout(opts, nil).Detect(ctx, missing, nil)
	assert.Error(t, err)

	_, err = NewTextExtractor(true, nil).ExtractText(ctx, missing, 10)
	assert.Error(t, err)
}

func TestPageSelector_Resolve(t *testing.T) {
	s := NewPageSelector()

	for _, sel := range []string{"", "all", " ALL "} {
		pages, err := s.Resolve("unused.pdf", sel)
		require.NoError(t, err)
		assert.Nil(t, pages, "selector %q", sel)
	}

	_, err := s.Resolve(filepath.Join(t.TempDir(), "missing.pdf"), "1-2")
	assert.Error(t, err)
}
