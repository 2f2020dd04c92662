package table

import (
	"crypto/md5" //nolint:gosec // content fingerprint for deduplication, not a security boundary
	"encoding/hex"
	"strings"
)

// Fingerprint returns a stable hex digest of the table's cleaned column names
// and cells. Row and column order are significant. Empty tables yield "".
func Fingerprint(t Table) string {
	if t.IsEmpty() {
		return ""
	}

	var b strings.Builder
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(CleanCell(c))
	}
	b.WriteByte('\n')
	for i, row := range t.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte('|')
			}
			b.WriteString(CleanCell(cell))
		}
	}

	sum := md5.Sum([]byte(b.String())) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
