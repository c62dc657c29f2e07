package export

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// HTMLExporter renders the canonical text with annotation, individual, and
// property spans wrapped in styled tags. Tags are inserted in reverse offset
// order; when spans overlap the output may be mis-nested, which browsers
// tolerate.
type HTMLExporter struct{}

func (e *HTMLExporter) Format() string      { return "html" }
func (e *HTMLExporter) ContentType() string { return "text/html" }

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Lexigraph - Annotated Document</title>
<style>
.lx-annotation { background-color: #e8f4fd; border-bottom: 2px solid #2196F3; cursor: pointer; }
.lx-annotation:hover { background-color: #bbdefb; }
.lx-individual { border-top: 2px solid #009688; cursor: pointer; }
.lx-individual:hover { background-color: rgba(0,150,136,0.15); }
.lx-property { text-decoration: underline wavy #9C27B0; cursor: pointer; }
.lx-property:hover { background-color: rgba(156,39,176,0.15); }
.lx-link { color: inherit; text-decoration: none; }
body { font-family: 'Georgia', serif; line-height: 1.6; max-width: 800px; margin: 40px auto; padding: 0 20px; }
</style>
</head>
<body>
<pre style="white-space: pre-wrap; font-family: inherit;">%s</pre>
</body>
</html>`

// tagSet collects tag insertions keyed by byte offset. At the same offset a
// later insertion lands before earlier ones, matching reverse-order span
// insertion into a character list.
type tagSet map[int][]string

func (t tagSet) add(pos int, tag string) {
	t[pos] = append([]string{tag}, t[pos]...)
}

func (e *HTMLExporter) Export(job *model.Job) ([]byte, error) {
	if job.Result.CanonicalText == nil {
		return []byte("<html><body><p>No content</p></body></html>"), nil
	}
	fullText := job.Result.CanonicalText.FullText
	tags := make(tagSet)

	anns := append([]*model.Annotation(nil), job.Result.Annotations...)
	sort.Slice(anns, func(i, j int) bool { return anns[i].Span.Start > anns[j].Span.Start })
	for _, ann := range anns {
		concept := ann.Primary()
		if concept == nil {
			continue
		}
		if !validSpan(ann.Span, len(fullText)) {
			continue
		}
		tags.add(ann.Span.End, "</a></span>")
		tags.add(ann.Span.Start, annotationOpenTag(concept))
	}

	inds := append([]*model.Individual(nil), job.Result.Individuals...)
	sort.Slice(inds, func(i, j int) bool { return inds[i].Span.Start > inds[j].Span.Start })
	for _, ind := range inds {
		if !validSpan(ind.Span, len(fullText)) {
			continue
		}
		tags.add(ind.Span.End, "</span>")
		tags.add(ind.Span.Start, individualOpenTag(ind))
	}

	props := append([]*model.PropertyAnnotation(nil), job.Result.Properties...)
	sort.Slice(props, func(i, j int) bool { return props[i].Span.Start > props[j].Span.Start })
	for _, prop := range props {
		if !validSpan(prop.Span, len(fullText)) {
			continue
		}
		tags.add(prop.Span.End, "</span>")
		tags.add(prop.Span.Start, propertyOpenTag(prop))
	}

	var body strings.Builder
	for i := 0; i < len(fullText); i++ {
		for _, tag := range tags[i] {
			body.WriteString(tag)
		}
		writeEscapedByte(&body, fullText[i])
	}
	for _, tag := range tags[len(fullText)] {
		body.WriteString(tag)
	}

	return []byte(fmt.Sprintf(htmlPage, body.String())), nil
}

func validSpan(span model.Span, textLen int) bool {
	return span.Start >= 0 && span.Start < span.End && span.End <= textLen
}

// writeEscapedByte escapes HTML-significant bytes. Multibyte runes pass
// through untouched, so byte offsets in the source text stay valid.
func writeEscapedByte(b *strings.Builder, c byte) {
	switch c {
	case '&':
		b.WriteString("&amp;")
	case '<':
		b.WriteString("&lt;")
	case '>':
		b.WriteString("&gt;")
	case '"':
		b.WriteString("&#34;")
	case '\'':
		b.WriteString("&#39;")
	default:
		b.WriteByte(c)
	}
}

func confidenceBorder(conf float64) string {
	switch {
	case conf >= 0.90:
		return "#228B22"
	case conf >= 0.60:
		return "#FFD700"
	case conf >= 0.45:
		return "#FF8C00"
	default:
		return "#D3D3D3"
	}
}

func annotationOpenTag(c *model.ConceptMatch) string {
	branch := ""
	if len(c.Branches) > 0 {
		branch = c.Branches[0]
	}
	label := c.FolioLabel
	if label == "" {
		label = c.ConceptText
	}
	definition := c.FolioDefinition
	if definition == "" {
		definition = "No definition"
	}
	branchPart := ""
	if branch != "" {
		branchPart = fmt.Sprintf(" (%s)", branch)
	}
	tooltip := html.EscapeString(fmt.Sprintf("%s%s - %s", label, branchPart, definition))

	iri := "#"
	iriLink := "#"
	if c.FolioIRI != "" {
		iri = html.EscapeString(c.FolioIRI)
		iriLink = iri + "/html"
	}
	branchColor := c.BranchColor
	if branchColor == "" {
		branchColor = "#2196F3"
	}

	return fmt.Sprintf(
		`<span class="lx-annotation" style="border-bottom-color: %s; background-color: %s18;" data-iri="%s" data-branch="%s" data-confidence="%.2f"><a href="%s" title="%s" class="lx-link">`,
		confidenceBorder(c.Confidence), branchColor, iri, html.EscapeString(branch), c.Confidence, iriLink, tooltip)
}

func individualOpenTag(ind *model.Individual) string {
	classLabel := ind.IndividualType
	if len(ind.ClassLinks) > 0 && ind.ClassLinks[0].FolioLabel != "" {
		classLabel = ind.ClassLinks[0].FolioLabel
	}
	tooltip := html.EscapeString(fmt.Sprintf("%s (%s)", ind.Name, classLabel))

	borderColor := "#FF9800"
	if ind.IndividualType == model.IndividualLegalCitation {
		borderColor = "#009688"
	}

	return fmt.Sprintf(
		`<span class="lx-individual" style="border-top: 2px solid %s; background-color: %s12;" data-type="individual" data-individual-type="%s" title="%s">`,
		borderColor, borderColor, html.EscapeString(ind.IndividualType), tooltip)
}

func propertyOpenTag(prop *model.PropertyAnnotation) string {
	label := prop.FolioLabel
	if label == "" {
		label = prop.PropertyText
	}
	definition := prop.FolioDefinition
	if definition == "" {
		definition = "OWL ObjectProperty"
	}
	tooltip := html.EscapeString(fmt.Sprintf("%s: %s", label, definition))

	iri := "#"
	if prop.FolioIRI != "" {
		iri = html.EscapeString(prop.FolioIRI)
	}

	return fmt.Sprintf(
		`<span class="lx-property" style="text-decoration: underline wavy #9C27B0; text-underline-offset: 3px;" data-type="property" data-iri="%s" title="%s">`,
		iri, tooltip)
}
