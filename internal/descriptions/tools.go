package descriptions

import "sort"

// Tool descriptions shown to MCP clients

const (
	PDFToDocumentsDescription = `Recover the tables of a PDF and return them as retrieval-ready documents.

**When to use:** A PDF holds price lists, tariff grids or other tables that must be indexed for retrieval augmented generation.

**What you get:** A JSON array of {page_content, metadata} objects. Every table yields a markdown snapshot of the whole table and, when its first column names entities (countries, products, plans), one document per row shaped "Header: value" line by line.

**Examples:**
• Roaming tariffs: "Turn tarifs-2024.pdf into documents so each country's rates can be retrieved"
• Catalog import: "Index the price tables on pages 3-5 of catalog.pdf"

**Common workflows:**
1. Indexing: pdf_to_documents → embed page_content → store with metadata
2. Tuning: pdf_ingest_info → check thresholds → pdf_to_documents on a page range

**Fallbacks:** When no detector finds a table, the page text is returned in overlapping chunks. Scanned PDFs without a text layer yield a single placeholder document.`

	PDFIngestInfoDescription = `Report how the ingestion engine is configured.

**When to use:** Before converting documents, to know which table detectors run, in which priority, and how output is chunked.

**What you get:** Server name and version, the allowed directory, detector order, chunk size and overlap, header folding limits and the words and units counted as numeric.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_to_documents": PDFToDocumentsDescription,
	"pdf_ingest_info":  PDFIngestInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the registered tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
