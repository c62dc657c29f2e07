package model

// DocumentFormat identifies the input format of a document.
type DocumentFormat string

const (
	FormatPlainText DocumentFormat = "plain_text"
	FormatMarkdown  DocumentFormat = "markdown"
	FormatHTML      DocumentFormat = "html"
	FormatPDF       DocumentFormat = "pdf"
	FormatWord      DocumentFormat = "word"
	FormatRTF       DocumentFormat = "rtf"
	FormatEmail     DocumentFormat = "email"
)

// DocumentInput is the raw document submitted for enrichment. Content is
// plain text for textual formats and base64-encoded bytes for binary ones.
type DocumentInput struct {
	Content  string         `json:"content"`
	Format   DocumentFormat `json:"format"`
	Filename string         `json:"filename,omitempty"`
}

// TextElement is an optional structural element reported by an ingester.
type TextElement struct {
	Text        string   `json:"text"`
	ElementType string   `json:"element_type"` // heading, paragraph, list_item, table_cell
	SectionPath []string `json:"section_path,omitempty"`
	Page        int      `json:"page,omitempty"`
	Level       int      `json:"level,omitempty"`
}

// TextChunk is a bounded, offset-tracked window of the normalized text.
// Invariant: FullText[StartOffset:EndOffset] == Text.
type TextChunk struct {
	Text        string   `json:"text"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	ChunkIndex  int      `json:"chunk_index"`
	Sentences   []string `json:"sentences,omitempty"`
}

// CanonicalText is the normalized document: full text plus its chunking.
type CanonicalText struct {
	FullText     string         `json:"full_text"`
	Chunks       []TextChunk    `json:"chunks"`
	SourceFormat DocumentFormat `json:"source_format"`
	Elements     []TextElement  `json:"elements,omitempty"`
}
