package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"legalrag/internal/adapter/analyzer"
	"legalrag/internal/domain"
)

// DefaultSection names the single section of a document chunked
// without section boundaries.
const DefaultSection = "CONTENT"

// LegalChunker splits documents into paragraph-aligned chunks with a
// character overlap between neighbours.
type LegalChunker struct {
	chunkSize       int
	chunkOverlap    int
	respectSections bool
}

func NewLegalChunker(chunkSize, chunkOverlap int, respectSections bool) *LegalChunker {
	return &LegalChunker{
		chunkSize:       chunkSize,
		chunkOverlap:    chunkOverlap,
		respectSections: respectSections,
	}
}

// unit is a paragraph or sentence with the separator that precedes it
// inside a chunk.
type unit struct {
	text string
	sep  string
}

func (c *LegalChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", c.chunkSize)
	}

	docID := documentID(doc)

	sections := doc.Sections
	if !c.respectSections || len(sections) == 0 {
		sections = []domain.Section{{Name: DefaultSection, Text: doc.Content}}
	}

	var chunks []domain.Chunk
	for _, sec := range sections {
		for i, text := range c.chunkSection(sec.Text) {
			chunks = append(chunks, domain.Chunk{
				ID:         fmt.Sprintf("%s_%s_%d", docID, sec.Name, i),
				DocumentID: docID,
				Section:    sec.Name,
				Ordinal:    i,
				Content:    text,
				Metadata:   doc.Metadata,
			})
		}
	}
	return chunks, nil
}

// chunkSection greedily packs the section's units into chunk texts.
func (c *LegalChunker) chunkSection(text string) []string {
	units := c.units(text)
	if len(units) == 0 {
		return nil
	}

	var out []string
	var buf []unit
	size := 0

	for _, u := range units {
		add := len(u.text)
		if len(buf) > 0 {
			add += len(u.sep)
		}

		if len(buf) > 0 && size+add > c.chunkSize {
			out = append(out, join(buf))
			seed := c.overlapTail(buf)
			buf, size = nil, 0
			if seed != "" {
				buf = append(buf, unit{text: seed})
				size = len(seed)
				u.sep = " "
			}
			add = len(u.text)
			if len(buf) > 0 {
				add += len(u.sep)
			}
		}

		buf = append(buf, u)
		size += add
	}

	if len(buf) > 0 {
		out = append(out, join(buf))
	}
	return out
}

// units splits text into paragraphs, breaking paragraphs longer than the
// chunk size into sentences.
func (c *LegalChunker) units(text string) []unit {
	var units []unit
	for _, para := range analyzer.SplitParagraphs(text) {
		if len(para) <= c.chunkSize {
			units = append(units, unit{text: para, sep: "\n\n"})
			continue
		}
		for i, sentence := range analyzer.SplitSentences(para) {
			sep := " "
			if i == 0 {
				sep = "\n\n"
			}
			units = append(units, unit{text: sentence, sep: sep})
		}
	}
	return units
}

// overlapTail collects trailing text of buf for the next chunk. Whole
// units are taken from the end while they fit; the unit straddling the
// budget contributes its trailing characters. The result, joined with
// single spaces, never exceeds chunkOverlap-1 bytes so that the space
// joining it to the next unit stays inside the overlap budget.
func (c *LegalChunker) overlapTail(buf []unit) string {
	budget := c.chunkOverlap - 1
	if budget <= 0 {
		return ""
	}

	var parts []string
	used := 0
	for i := len(buf) - 1; i >= 0; i-- {
		text := buf[i].text
		need := len(text)
		if len(parts) > 0 {
			need++
		}
		if used+need <= budget {
			parts = append([]string{text}, parts...)
			used += need
			continue
		}

		remaining := budget - used
		if len(parts) > 0 {
			remaining--
		}
		if remaining > 0 {
			if tail := strings.TrimSpace(tailBytes(text, remaining)); tail != "" {
				parts = append([]string{tail}, parts...)
			}
		}
		break
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// tailBytes returns at most n trailing bytes of s without splitting a rune.
func tailBytes(s string, n int) string {
	if n >= len(s) {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func join(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString(u.sep)
		}
		b.WriteString(u.text)
	}
	return b.String()
}

func documentID(doc domain.Document) string {
	switch {
	case doc.ID != "":
		return doc.ID
	case doc.Metadata.Filename != "":
		return doc.Metadata.Filename
	default:
		return "document"
	}
}
