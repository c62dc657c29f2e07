package docmeta

import (
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// positionHints map a metadata field to phrases that, appearing just before
// an annotation, suggest the annotation text fills that field.
var positionHints = []struct {
	field string
	hints []string
}{
	{"judge", []string{"honorable", "judge", "justice"}},
	{"court", []string{"in the", "united states district court", "court of"}},
	{"author", []string{"signature", "signed by", "executed by"}},
}

// Promote scans confirmed annotations; when the 50 characters preceding a
// span contain a role hint, the concept text fills the corresponding field
// if it is still empty.
func Promote(annotations []*model.Annotation, fullText string, fields *model.DocumentFields) {
	for _, ann := range annotations {
		if ann.State != model.StateConfirmed {
			continue
		}
		primary := ann.Primary()
		if primary == nil {
			continue
		}

		start := ann.Span.Start - 50
		if start < 0 {
			start = 0
		}
		if ann.Span.Start > len(fullText) {
			continue
		}
		preceding := strings.ToLower(fullText[start:ann.Span.Start])

		for _, ph := range positionHints {
			if !anyContains(preceding, ph.hints) {
				continue
			}
			switch ph.field {
			case "judge":
				if fields.Judge == "" {
					fields.Judge = primary.ConceptText
				}
			case "court":
				if fields.Court == "" {
					fields.Court = primary.ConceptText
				}
			case "author":
				if fields.Author == "" {
					fields.Author = primary.ConceptText
				}
			}
			break
		}
	}
}

func anyContains(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
