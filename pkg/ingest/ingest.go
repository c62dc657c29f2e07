package ingest

import (
	"fmt"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// Ingester extracts raw text (and optional structural elements) from one
// document format.
type Ingester interface {
	Ingest(doc *model.DocumentInput) (string, []model.TextElement, error)
}

// Registry maps document formats to ingesters.
type Registry struct {
	ingesters map[model.DocumentFormat]Ingester
}

// NewRegistry builds a registry with all built-in ingesters.
func NewRegistry() *Registry {
	return &Registry{
		ingesters: map[model.DocumentFormat]Ingester{
			model.FormatPlainText: &PlainTextIngester{},
			model.FormatMarkdown:  &MarkdownIngester{},
			model.FormatHTML:      &HTMLIngester{},
			model.FormatPDF:       &PDFIngester{},
			model.FormatWord:      &WordIngester{},
			model.FormatRTF:       &RTFIngester{},
			model.FormatEmail:     &EmailIngester{},
		},
	}
}

// Register adds or replaces the ingester for a format.
func (r *Registry) Register(format model.DocumentFormat, ing Ingester) {
	r.ingesters[format] = ing
}

// Ingest extracts text from the document using the format's ingester.
func (r *Registry) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	ing, ok := r.ingesters[doc.Format]
	if !ok {
		return "", nil, fmt.Errorf("no ingester registered for format: %s", doc.Format)
	}
	return ing.Ingest(doc)
}

// DetectFormat guesses the document format from the filename extension,
// falling back to content heuristics.
func DetectFormat(filename, content string) model.DocumentFormat {
	if filename != "" {
		ext := ""
		if idx := strings.LastIndexByte(filename, '.'); idx != -1 {
			ext = strings.ToLower(filename[idx+1:])
		}
		switch ext {
		case "txt":
			return model.FormatPlainText
		case "md", "markdown":
			return model.FormatMarkdown
		case "html", "htm":
			return model.FormatHTML
		case "pdf":
			return model.FormatPDF
		case "docx", "doc":
			return model.FormatWord
		case "rtf":
			return model.FormatRTF
		case "eml", "msg":
			return model.FormatEmail
		}
	}

	stripped := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(stripped, "<!") || strings.HasPrefix(stripped, "<html"):
		return model.FormatHTML
	case strings.HasPrefix(stripped, "{\\rtf"):
		return model.FormatRTF
	case strings.HasPrefix(stripped, "# ") || strings.Contains(stripped, "\n## "):
		return model.FormatMarkdown
	}
	return model.FormatPlainText
}
