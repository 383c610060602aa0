package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"legalrag/internal/domain"
)

// ErrUnsupportedFormat is returned for files the parser cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// PreambleSection names text that precedes the first section header.
const PreambleSection = "PREAMBLE"

// SectionHeaders are the headings that open a new document section.
var SectionHeaders = []string{
	"OPINION", "BACKGROUND", "FACTS", "ANALYSIS", "DISCUSSION",
	"CONCLUSION", "HOLDING", "JUDGMENT", "ORDER", "DISSENT",
	"CONCURRENCE", "PROCEDURAL HISTORY", "STANDARD OF REVIEW",
	"LEGAL STANDARD", "INTRODUCTION", "SUMMARY",
}

var (
	caseCitationRe = regexp.MustCompile(`\d+\s+[A-Z][a-z]*\.?\s*\d*d?\s+\d+`)
	dateRe         = regexp.MustCompile(`(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`)
	caseNameRe     = regexp.MustCompile(`([A-Z][A-Za-z \t,.]+?)[ \t]+v\.?[ \t]+([A-Z][A-Za-z \t,.]+)`)
	courtRes       = []*regexp.Regexp{
		regexp.MustCompile(`Supreme Court of [A-Za-z ]+`),
		regexp.MustCompile(`United States Court of Appeals`),
		regexp.MustCompile(`United States District Court`),
		regexp.MustCompile(`Court of Appeals of [A-Za-z ]+`),
		regexp.MustCompile(`Superior Court of [A-Za-z ]+`),
	}
)

type extractor func(path string) (string, error)

// Parser reads legal documents from disk and extracts their metadata and
// sections.
type Parser struct {
	extractors map[string]extractor
}

func NewParser() *Parser {
	return &Parser{
		extractors: map[string]extractor{
			".txt":  extractText,
			".md":   extractText,
			".docx": extractDocx,
			".pdf":  extractPDF,
		},
	}
}

// Supports reports whether path has a readable extension.
func (p *Parser) Supports(path string) bool {
	_, ok := p.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ParseFile reads and parses the document at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	extract, ok := p.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}

	text, err := extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	doc := Parse(filepath.Base(path), text)
	doc.Metadata.Format = strings.TrimPrefix(ext, ".")
	return &doc, nil
}

// Parse builds a document from already extracted text.
func Parse(filename, text string) domain.Document {
	meta := ExtractMetadata(text)
	meta.Filename = filename
	return domain.Document{
		ID:       filename,
		Content:  text,
		Sections: ExtractSections(text),
		Metadata: meta,
	}
}

// ExtractMetadata finds the citation, date, case name and court of a
// judicial opinion. Fields that cannot be found stay empty.
func ExtractMetadata(text string) domain.DocumentMetadata {
	var meta domain.DocumentMetadata

	meta.Citation = caseCitationRe.FindString(text)
	meta.Date = dateRe.FindString(text)

	if m := caseNameRe.FindStringSubmatch(prefix(text, 500)); m != nil {
		meta.CaseName = strings.TrimSpace(m[1]) + " v. " + strings.TrimSpace(m[2])
	}

	head := prefix(text, 1000)
	for _, re := range courtRes {
		if court := re.FindString(head); court != "" {
			meta.Court = strings.TrimSpace(court)
			break
		}
	}
	return meta
}

// ExtractSections splits text at lines that look like section headers.
// Text before the first header belongs to PreambleSection and sections
// without content are dropped.
func ExtractSections(text string) []domain.Section {
	var sections []domain.Section
	name := PreambleSection
	var body strings.Builder

	flush := func() {
		if content := strings.TrimSpace(body.String()); content != "" {
			sections = append(sections, domain.Section{Name: name, Text: content})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if header := sectionHeader(line); header != "" {
			flush()
			name = header
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	return sections
}

func sectionHeader(line string) string {
	upper := strings.ToUpper(strings.TrimSpace(line))
	for _, h := range SectionHeaders {
		if strings.HasPrefix(upper, h) && len(upper) < len(h)+20 {
			return h
		}
	}
	return ""
}

// prefix returns at most n bytes of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
