package document

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/a3tai/pdf-rag-ingest/internal/cascade"
	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

const (
	// DefaultEntityTextRatio is the minimum share of non-numeric values the
	// first column needs before each row gets its own document.
	DefaultEntityTextRatio = 0.7

	// DefaultEntityMinValues is the minimum number of non-empty first-column values.
	DefaultEntityMinValues = 3

	// MaxKeyLength bounds column names in key/value lines.
	MaxKeyLength = 80

	ellipsis = "…"
)

// Emitter converts recovered tables into retrieval documents.
type Emitter struct {
	Numeric         *table.NumericMatcher
	EntityTextRatio float64
	EntityMinValues int
}

// NewEmitter returns an emitter with the default entity heuristic.
func NewEmitter(numeric *table.NumericMatcher) *Emitter {
	if numeric == nil {
		numeric = table.DefaultNumericMatcher()
	}
	return &Emitter{
		Numeric:         numeric,
		EntityTextRatio: DefaultEntityTextRatio,
		EntityMinValues: DefaultEntityMinValues,
	}
}

// EmitAll converts every recovered table of a document, in order.
func (e *Emitter) EmitAll(tables []cascade.RecoveredTable, docName string) []Document {
	var docs []Document
	for _, rt := range tables {
		docs = append(docs, e.Emit(rt, docName)...)
	}
	return docs
}

// Emit returns one document per row when the first column is an entity
// column, followed by exactly one snapshot document of the whole table.
func (e *Emitter) Emit(rt cascade.RecoveredTable, docName string) []Document {
	tableID := TableID(rt.Page, rt.Ordinal, rt.Fingerprint)
	base := map[string]any{
		MetaSource:    docName,
		MetaPage:      rt.Page,
		MetaExtractor: rt.Source,
		MetaTableID:   tableID,
	}

	var docs []Document
	if e.HasEntityColumn(rt.Table) {
		docs = append(docs, e.rowDocuments(rt.Table, base)...)
	}

	snapshot := copyMetadata(base)
	snapshot[MetaFormat] = FormatSnapshot
	docs = append(docs, Document{
		Content:  renderSnapshot(rt, docName, tableID),
		Metadata: snapshot,
	})

	return docs
}

// HasEntityColumn reports whether the first column is mostly textual.
func (e *Emitter) HasEntityColumn(t table.Table) bool {
	if t.NumCols() == 0 {
		return false
	}

	nonEmpty, textLike := 0, 0
	for _, v := range t.Column(0) {
		v = table.CleanCell(v)
		if v == "" {
			continue
		}
		nonEmpty++
		if !e.Numeric.IsNumericLike(v) {
			textLike++
		}
	}

	if nonEmpty < e.EntityMinValues || nonEmpty == 0 {
		return false
	}
	return float64(textLike) >= e.EntityTextRatio*float64(nonEmpty)
}

func (e *Emitter) rowDocuments(t table.Table, base map[string]any) []Document {
	entityCol := t.Columns[0]

	var docs []Document
	for idx, row := range t.Rows {
		entity := ""
		if len(row) > 0 {
			entity = table.CleanCell(row[0])
		}
		if entity == "" {
			continue
		}

		lines := keyValueLines(t.Columns[1:], row[1:])
		if len(lines) == 0 {
			continue
		}

		md := copyMetadata(base)
		md[MetaRowIndex] = idx + 1
		md[MetaEntity] = entity
		md[MetaEntityCol] = entityCol
		md[MetaFormat] = FormatRowKV

		docs = append(docs, Document{
			Content:  entityCol + ": " + entity + "\n" + strings.Join(lines, "\n"),
			Metadata: md,
		})
	}
	return docs
}

func keyValueLines(columns, cells []string) []string {
	var lines []string
	for i, key := range columns {
		key = strings.TrimSpace(key)
		if key == "" || i >= len(cells) {
			continue
		}
		val := table.CleanCell(cells[i])
		if val == "" {
			continue
		}
		if r := []rune(key); len(r) > MaxKeyLength {
			key = string(r[:MaxKeyLength]) + ellipsis
		}
		lines = append(lines, key+": "+val)
	}
	return lines
}

func renderSnapshot(rt cascade.RecoveredTable, docName, tableID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s - table\n", docName)
	fmt.Fprintf(&b, "- page: %d\n", rt.Page)
	fmt.Fprintf(&b, "- extractor: %s\n", rt.Source)
	fmt.Fprintf(&b, "- table_id: %s\n\n", tableID)
	b.WriteString(renderTable(rt.Table))
	b.WriteByte('\n')
	return b.String()
}

// renderTable draws a pipe table with columns padded to their display width.
func renderTable(t table.Table) string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = max(3, runewidth.StringWidth(escapeCell(c)))
	}
	for _, row := range t.Rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(escapeCell(row[i])))
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, w := range widths {
			v := ""
			if i < len(cells) {
				v = escapeCell(cells[i])
			}
			b.WriteString(" ")
			b.WriteString(runewidth.FillRight(v, w))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(t.Columns)
	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(":")
		b.WriteString(strings.Repeat("-", w+1))
		b.WriteString("|")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
