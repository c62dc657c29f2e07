package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// PDFIngester extracts text page by page from base64-encoded PDF bytes.
type PDFIngester struct{}

var (
	pdfHyphenBreak = regexp.MustCompile(`(\w)-\n(\w)`)
	pdfSoftWrap    = regexp.MustCompile(`([^.!?:;\n])\n([a-z])`)
	pdfPageNumber  = regexp.MustCompile(`\n\s*\d+\s*\n`)
)

func (i *PDFIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	raw, err := base64.StdEncoding.DecodeString(doc.Content)
	if err != nil {
		return "", nil, fmt.Errorf("pdf content is not valid base64: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	var pages []string
	var elements []model.TextElement
	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
		elements = append(elements, model.TextElement{
			Text:        firstLine(text),
			ElementType: "paragraph",
			Page:        pageNum,
		})
	}

	return normalizePDFText(strings.Join(pages, "\n\n")), elements, nil
}

// normalizePDFText repairs extraction artifacts: hyphenated line breaks,
// soft-wrapped lines, and bare page-number lines.
func normalizePDFText(text string) string {
	text = pdfHyphenBreak.ReplaceAllString(text, "$1$2")
	text = pdfSoftWrap.ReplaceAllString(text, "$1 $2")
	text = pdfPageNumber.ReplaceAllString(text, "\n")
	return text
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx != -1 {
		text = text[:idx]
	}
	if len(text) > 120 {
		text = text[:120]
	}
	return text
}
