// Package document turns recovered tables and raw text into retrieval
// documents and keeps each document under a size bound.
package document

import "fmt"

// Metadata keys shared by every emitted document.
const (
	MetaSource      = "source"
	MetaPage        = "page"
	MetaExtractor   = "extractor"
	MetaTableID     = "table_id"
	MetaFormat      = "format"
	MetaRowIndex    = "row_index"
	MetaEntity      = "entity"
	MetaEntityCol   = "entity_col"
	MetaChunk       = "chunk"
	MetaChunksTotal = "chunks_total"
	MetaContentType = "content_type"
	MetaEngine      = "engine"
)

// Format markers distinguishing per-row documents from table snapshots.
const (
	FormatRowKV    = "row_kv"
	FormatSnapshot = "table_markdown"
)

// Document is the terminal output unit of the pipeline. Field names follow
// the loader protocol expected by the consuming RAG service.
type Document struct {
	Content  string         `json:"page_content"`
	Metadata map[string]any `json:"metadata"`
}

// TableID builds the human-readable identifier of a table: zero-padded page,
// zero-padded ordinal and the first 8 characters of the fingerprint.
func TableID(page, ordinal int, fingerprint string) string {
	short := fingerprint
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("p%03d_t%03d_%s", page, ordinal, short)
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
