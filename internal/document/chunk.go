package document

// Chunk splits text into windows of at most maxChars runes. Consecutive
// windows share up to overlapChars runes so that context spanning a boundary
// survives in at least one chunk. Text that already fits is returned as the
// only element. The window start advances by at least one rune per step, so
// overlapChars >= maxChars still terminates.
func Chunk(text string, maxChars, overlapChars int) []string {
	if maxChars < 1 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return []string{text}
	}
	if overlapChars < 0 {
		overlapChars = 0
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}

		next := end - overlapChars
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// ChunkDocuments splits every document whose content exceeds maxChars and
// tags the parts with chunk/chunks_total. Documents that fit are returned as is.
func ChunkDocuments(docs []Document, maxChars, overlapChars int) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		parts := Chunk(d.Content, maxChars, overlapChars)
		if len(parts) == 1 {
			out = append(out, d)
			continue
		}
		for i, p := range parts {
			md := copyMetadata(d.Metadata)
			md[MetaChunk] = i + 1
			md[MetaChunksTotal] = len(parts)
			out = append(out, Document{Content: p, Metadata: md})
		}
	}
	return out
}

// TextDocuments chunks free text into documents that all share base metadata
// plus chunk/chunks_total, even when the text fits in a single chunk.
func TextDocuments(text string, base map[string]any, maxChars, overlapChars int) []Document {
	parts := Chunk(text, maxChars, overlapChars)
	out := make([]Document, 0, len(parts))
	for i, p := range parts {
		md := copyMetadata(base)
		md[MetaChunk] = i + 1
		md[MetaChunksTotal] = len(parts)
		out = append(out, Document{Content: p, Metadata: md})
	}
	return out
}
