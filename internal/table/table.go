// Package table holds the schema-agnostic table model used by the ingest
// pipeline: cleaning raw detector grids, rebuilding multi-row headers and
// fingerprinting table content for deduplication.
package table

import (
	"fmt"
	"regexp"
	"strings"
)

// Grid is the untouched output of a table detector for a single region.
// Rows may be ragged and cells may be blank; there is no header row yet.
type Grid struct {
	Page int
	Rows [][]string
}

// Table is a rectangular table with named columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of body rows.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// NumCols returns the number of columns.
func (t Table) NumCols() int {
	return len(t.Columns)
}

// IsEmpty reports whether the table has no body rows or no columns.
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// Column returns the cells of column i, or nil when out of range.
func (t Table) Column(i int) []string {
	if i < 0 || i >= len(t.Columns) {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// FromGrid converts a raw grid into a table with blank column labels, padding
// ragged rows to the widest row. Every grid row becomes a body row.
func FromGrid(g Grid) Table {
	width := 0
	for _, row := range g.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	rows := make([][]string, 0, len(g.Rows))
	for _, row := range g.Rows {
		padded := make([]string, width)
		copy(padded, row)
		rows = append(rows, padded)
	}

	return Table{
		Columns: make([]string, width),
		Rows:    rows,
	}
}

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// CleanCell replaces non-breaking spaces, collapses runs of spaces and tabs
// and trims the result.
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = horizontalSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize cleans every cell and column name, names blank columns
// positionally, makes column names unique and drops rows that are empty after
// cleaning. Normalize(Normalize(t)) equals Normalize(t).
func Normalize(t Table) Table {
	width := len(t.Columns)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := make([]string, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(t.Columns) {
			name = CleanCell(t.Columns[i])
		}
		if name == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		columns[i] = name
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cleaned := make([]string, width)
		nonEmpty := false
		for i := 0; i < width && i < len(row); i++ {
			cleaned[i] = CleanCell(row[i])
			if cleaned[i] != "" {
				nonEmpty = true
			}
		}
		if nonEmpty {
			rows = append(rows, cleaned)
		}
	}

	return Table{
		Columns: dedupeNames(columns, func(name string, n int) string {
			return fmt.Sprintf("%s_%d", name, n)
		}),
		Rows: rows,
	}
}

// dedupeNames keeps the first occurrence of every name and renames later
// occurrences with suffix(name, n), where n starts at the occurrence count and
// is bumped until the candidate collides with neither an input name nor an
// already assigned one. A list of unique names is returned unchanged.
func dedupeNames(names []string, suffix func(name string, n int) string) []string {
	reserved := make(map[string]bool, len(names))
	for _, name := range names {
		reserved[name] = true
	}

	assigned := make(map[string]bool, len(names))
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		seen[name]++
		if !assigned[name] {
			assigned[name] = true
			out[i] = name
			continue
		}
		n := seen[name]
		candidate := suffix(name, n)
		for reserved[candidate] || assigned[candidate] {
			n++
			candidate = suffix(name, n)
		}
		assigned[candidate] = true
		out[i] = candidate
	}
	return out
}
