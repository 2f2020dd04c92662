package table

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxHeaderRows bounds how many leading rows may be folded into column names.
	DefaultMaxHeaderRows = 4

	// DefaultHeaderNumericRatio is the largest share of numeric-like cells a
	// row may have and still count as a header row.
	DefaultHeaderNumericRatio = 0.5

	// HeaderSeparator joins the levels of a compound column name.
	HeaderSeparator = " | "
)

// Reconstructor folds multi-row headers that detectors flattened into the
// first body rows back into compound column names.
type Reconstructor struct {
	Numeric      *NumericMatcher
	NumericRatio float64
}

// NewReconstructor returns a reconstructor with the default thresholds.
func NewReconstructor(numeric *NumericMatcher) *Reconstructor {
	if numeric == nil {
		numeric = DefaultNumericMatcher()
	}
	return &Reconstructor{
		Numeric:      numeric,
		NumericRatio: DefaultHeaderNumericRatio,
	}
}

// Reconstruct detects up to maxHeaderRows header rows at the top of t and
// merges them into the column names. The input is returned unchanged when no
// header row is found or when folding would leave no body rows.
func (r *Reconstructor) Reconstruct(t Table, maxHeaderRows int) Table {
	if len(t.Rows) < 2 || len(t.Columns) == 0 {
		return t
	}

	headerRows := r.headerRowCount(t, maxHeaderRows)
	if headerRows == 0 || headerRows >= len(t.Rows) {
		return t
	}

	filled := make([][]string, headerRows)
	for i := 0; i < headerRows; i++ {
		filled[i] = forwardFill(t.Rows[i], len(t.Columns))
	}

	names := make([]string, len(t.Columns))
	for col := range t.Columns {
		parts := make([]string, 0, headerRows)
		for _, row := range filled {
			if v := CleanCell(row[col]); v != "" {
				parts = append(parts, v)
			}
		}
		name := strings.Join(strings.Fields(strings.Join(parts, HeaderSeparator)), " ")
		if name == "" {
			name = t.Columns[col]
		}
		names[col] = name
	}

	body := make([][]string, 0, len(t.Rows)-headerRows)
	for _, row := range t.Rows[headerRows:] {
		body = append(body, append([]string(nil), row...))
	}

	return Table{
		Columns: dedupeNames(names, func(name string, n int) string {
			return fmt.Sprintf("%s (%d)", name, n)
		}),
		Rows: body,
	}
}

// headerRowCount counts the consecutive header-like rows from the top.
func (r *Reconstructor) headerRowCount(t Table, maxHeaderRows int) int {
	limit := maxHeaderRows
	if limit > len(t.Rows) {
		limit = len(t.Rows)
	}

	count := 0
	for i := 0; i < limit; i++ {
		if !r.isHeaderRow(t.Rows[i], len(t.Columns)) {
			break
		}
		count++
	}
	return count
}

func (r *Reconstructor) isHeaderRow(row []string, width int) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if width == 0 {
		return false
	}

	nonEmpty, numeric := 0, 0
	for i := 0; i < width; i++ {
		v := ""
		if i < len(row) {
			v = CleanCell(row[i])
		}
		if v == "" {
			continue
		}
		nonEmpty++
		if r.Numeric.IsNumericLike(v) {
			numeric++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(numeric) <= float64(width)*r.NumericRatio
}

// forwardFill propagates the last non-empty value rightwards over blank cells,
// which is how a merged group heading shows up in a flattened grid.
func forwardFill(row []string, width int) []string {
	out := make([]string, width)
	last := ""
	for i := 0; i < width; i++ {
		v := ""
		if i < len(row) {
			v = CleanCell(row[i])
		}
		if v == "" {
			v = last
		} else {
			last = v
		}
		out[i] = v
	}
	return out
}
