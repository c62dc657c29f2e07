package ingest

import (
	"regexp"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// PlainTextIngester passes content through untouched.
type PlainTextIngester struct{}

func (i *PlainTextIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	return doc.Content, nil, nil
}

// MarkdownIngester strips markdown formatting while preserving the text and
// reporting headings as structural elements.
type MarkdownIngester struct{}

var (
	mdHeading    = regexp.MustCompile(`(?m)^(#{1,6})\s+(.*)$`)
	mdBold       = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	mdUnderline  = regexp.MustCompile(`_{1,3}([^_]+)_{1,3}`)
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdHRule      = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdBullet     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

func (i *MarkdownIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	text := doc.Content

	var elements []model.TextElement
	var sectionPath []string
	for _, m := range mdHeading.FindAllStringSubmatch(text, -1) {
		level := len(m[1])
		heading := strings.TrimSpace(m[2])
		if level <= len(sectionPath) {
			sectionPath = sectionPath[:level-1]
		}
		sectionPath = append(sectionPath, heading)
		elements = append(elements, model.TextElement{
			Text:        heading,
			ElementType: "heading",
			SectionPath: append([]string(nil), sectionPath...),
			Level:       level,
		})
	}

	text = mdHeading.ReplaceAllString(text, "$2")
	text = mdImage.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdUnderline.ReplaceAllString(text, "$1")
	text = mdInlineCode.ReplaceAllString(text, "$1")
	text = mdHRule.ReplaceAllString(text, "")
	text = mdBullet.ReplaceAllString(text, "")
	text = mdNumbered.ReplaceAllString(text, "")

	return strings.TrimSpace(text), elements, nil
}
