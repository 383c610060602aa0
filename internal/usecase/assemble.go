package usecase

import (
	"fmt"
	"strings"

	"legalrag/internal/domain"
)

// SourceDelimiter separates sources in an assembled context.
const SourceDelimiter = "\n\n---\n\n"

// AssembleContext formats matches into one context string. Each source is
// headed "[Document i]" followed by whichever of case, court, section and
// file are known.
func AssembleContext(matches []domain.RetrievedMatch) string {
	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		parts = append(parts, sourceHeader(i+1, m.Metadata)+"\n"+m.Content)
	}
	return strings.Join(parts, SourceDelimiter)
}

func sourceHeader(n int, meta domain.ChunkMetadata) string {
	var info []string
	if meta.CaseName != "" {
		info = append(info, "Case: "+meta.CaseName)
	}
	if meta.Court != "" {
		info = append(info, "Court: "+meta.Court)
	}
	if meta.Section != "" {
		info = append(info, "Section: "+meta.Section)
	}
	if meta.Filename != "" {
		info = append(info, "File: "+meta.Filename)
	}

	header := fmt.Sprintf("[Document %d]", n)
	if len(info) > 0 {
		header += " (" + strings.Join(info, "; ") + ")"
	}
	return header
}
