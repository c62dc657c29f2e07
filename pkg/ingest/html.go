package ingest

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// HTMLIngester extracts the readable article from an HTML document, then
// reduces it to plain text by way of a markdown intermediate so headings
// survive as structural elements.
type HTMLIngester struct{}

func (i *HTMLIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	html := doc.Content

	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		html = article.Content
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", nil, fmt.Errorf("html conversion failed: %w", err)
	}

	mdIngester := &MarkdownIngester{}
	text, elements, err := mdIngester.Ingest(&model.DocumentInput{
		Content: markdown,
		Format:  model.FormatMarkdown,
	})
	if err != nil {
		return "", nil, err
	}

	// Collapse the blank-line noise tag stripping leaves behind.
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n"), elements, nil
}
