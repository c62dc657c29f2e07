package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// WordIngester extracts text from base64-encoded .docx bytes.
type WordIngester struct{}

var (
	docxParagraph = regexp.MustCompile(`</w:p>`)
	docxTag       = regexp.MustCompile(`<[^>]+>`)
)

func (i *WordIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	raw, err := base64.StdEncoding.DecodeString(doc.Content)
	if err != nil {
		return "", nil, fmt.Errorf("word content is not valid base64: %w", err)
	}

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse docx: %w", err)
	}
	defer reader.Close()

	// GetContent returns the document XML; paragraph closes become newlines
	// and the remaining tags are stripped.
	content := reader.Editable().GetContent()
	content = docxParagraph.ReplaceAllString(content, "\n")
	content = docxTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	var elements []model.TextElement
	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
			elements = append(elements, model.TextElement{
				Text:        trimmed,
				ElementType: "paragraph",
			})
		}
	}

	return strings.Join(cleaned, "\n"), elements, nil
}
