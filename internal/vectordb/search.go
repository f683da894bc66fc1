package vectordb

import (
	"fmt"
	"strings"
)

// FormatHits renders search hits as human-readable text.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(hits)))

	for i, h := range hits {
		sb.WriteString(fmt.Sprintf("--- Result %d (score: %.4f) ---\n", i+1, h.Score))
		if h.Source != "" {
			sb.WriteString(fmt.Sprintf("Source: %s (chunk %d)\n", h.Source, h.ChunkIndex))
		}
		sb.WriteString(fmt.Sprintf("ID: %s\n", h.ID))
		sb.WriteString("\n")
		sb.WriteString(h.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
