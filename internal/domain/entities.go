package domain

import "sort"

// DocumentMetadata describes a source document. Empty fields are absent.
type DocumentMetadata struct {
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	CaseName string `json:"case_name,omitempty" yaml:"case_name,omitempty"`
	Court    string `json:"court,omitempty" yaml:"court,omitempty"`
	Date     string `json:"date,omitempty" yaml:"date,omitempty"`
	Citation string `json:"citation,omitempty" yaml:"citation,omitempty"`
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Section is a named slice of a document's text.
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Document is a parsed legal document ready for segmentation. An empty
// Sections list means the whole content is one section.
type Document struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Sections []Section        `json:"sections,omitempty"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Chunk is a bounded segment of a document.
type Chunk struct {
	ID         string           `json:"chunk_id"`
	DocumentID string           `json:"document_id"`
	Section    string           `json:"section"`
	Ordinal    int              `json:"ordinal"`
	Content    string           `json:"content"`
	Metadata   DocumentMetadata `json:"metadata"`
}

// Record returns the metadata stored alongside the chunk's text.
func (c Chunk) Record() ChunkMetadata {
	return ChunkMetadata{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		Section:    c.Section,
		Filename:   c.Metadata.Filename,
		CaseName:   c.Metadata.CaseName,
		Court:      c.Metadata.Court,
		Date:       c.Metadata.Date,
		Citation:   c.Metadata.Citation,
	}
}

// ChunkMetadata is the structured form of a stored chunk's metadata.
type ChunkMetadata struct {
	ChunkID    string `json:"chunk_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Section    string `json:"section,omitempty"`
	Filename   string `json:"filename,omitempty"`
	CaseName   string `json:"case_name,omitempty"`
	Court      string `json:"court,omitempty"`
	Date       string `json:"date,omitempty"`
	Citation   string `json:"citation,omitempty"`
}

// Metadata keys used by the scalar projection and by filters.
const (
	KeyChunkID    = "chunk_id"
	KeyDocumentID = "document_id"
	KeySection    = "section"
	KeyFilename   = "filename"
	KeyCaseName   = "case_name"
	KeyCourt      = "court"
	KeyDate       = "date"
	KeyCitation   = "citation"
)

// Fields projects the record onto flat scalar fields for storage
// backends. Empty values are omitted.
func (m ChunkMetadata) Fields() map[string]string {
	out := make(map[string]string, 8)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put(KeyChunkID, m.ChunkID)
	put(KeyDocumentID, m.DocumentID)
	put(KeySection, m.Section)
	put(KeyFilename, m.Filename)
	put(KeyCaseName, m.CaseName)
	put(KeyCourt, m.Court)
	put(KeyDate, m.Date)
	put(KeyCitation, m.Citation)
	return out
}

// MetadataFromFields rebuilds a record from its scalar projection.
// Unknown keys are ignored.
func MetadataFromFields(fields map[string]string) ChunkMetadata {
	return ChunkMetadata{
		ChunkID:    fields[KeyChunkID],
		DocumentID: fields[KeyDocumentID],
		Section:    fields[KeySection],
		Filename:   fields[KeyFilename],
		CaseName:   fields[KeyCaseName],
		Court:      fields[KeyCourt],
		Date:       fields[KeyDate],
		Citation:   fields[KeyCitation],
	}
}

// Filter restricts a search to chunks whose metadata equals every entry.
type Filter map[string]string

// Matches reports whether fields satisfies every entry of the filter.
func (f Filter) Matches(fields map[string]string) bool {
	for k, v := range f {
		if fields[k] != v {
			return false
		}
	}
	return true
}

// Key returns a deterministic string form of the filter.
func (f Filter) Key() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []byte
	for i, k := range keys {
		if i > 0 {
			out = append(out, '&')
		}
		out = append(out, k...)
		out = append(out, '=')
		out = append(out, f[k]...)
	}
	return string(out)
}

// RetrievedMatch is one search hit.
type RetrievedMatch struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Similarity float64       `json:"similarity"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// CompressionResult describes one compression call.
type CompressionResult struct {
	CompressedText     string   `json:"compressed_text"`
	OriginalTokens     int      `json:"original_tokens"`
	CompressedTokens   int      `json:"compressed_tokens"`
	CompressionRatio   float64  `json:"compression_ratio"`
	PreservedCitations []string `json:"preserved_citations"`
	Method             string   `json:"method"`
}

// TokenStats summarises context size before and after compression.
type TokenStats struct {
	Original       int     `json:"original"`
	Compressed     int     `json:"compressed"`
	Savings        int     `json:"savings"`
	SavingsPercent float64 `json:"savings_percent"`
}

// NewTokenStats derives savings from the original and compressed counts.
func NewTokenStats(original, compressed int) TokenStats {
	ts := TokenStats{
		Original:   original,
		Compressed: compressed,
		Savings:    original - compressed,
	}
	if original > 0 {
		ts.SavingsPercent = float64(ts.Savings) / float64(original) * 100
	}
	return ts
}

// RAGResponse is the result of a single query.
type RAGResponse struct {
	Query              string           `json:"query"`
	Answer             string           `json:"answer"`
	Sources            []RetrievedMatch `json:"sources"`
	CompressedContext  string           `json:"compressed_context"`
	TokenStats         TokenStats       `json:"token_stats"`
	CompressionMethod  string           `json:"compression_method,omitempty"`
	PreservedCitations []string         `json:"preserved_citations,omitempty"`
}

// StoreStats describes a chunk store.
type StoreStats struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Location string `json:"location"`
	Backend  string `json:"backend"`
}

// FileError records a document that failed to ingest.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IngestResult summarises an ingestion run.
type IngestResult struct {
	Documents int         `json:"documents"`
	Chunks    int         `json:"chunks"`
	Stored    int         `json:"stored"`
	Errors    []FileError `json:"errors,omitempty"`
}
