// Package dependency extracts subject-verb-object triples from sentences
// where two or more recognized concepts co-occur.
package dependency

import (
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
)

// ConceptSpan is one recognized concept occurrence in the full text.
type ConceptSpan struct {
	Text  string
	Start int
	End   int
	IRI   string
	// AnnotationID or IndividualID lets downstream cross-link the triple.
	RefID string
}

// Parser tags sentences and pairs concept mentions across their main verb.
type Parser struct{}

// NewParser builds a parser.
func NewParser() *Parser {
	return &Parser{}
}

// verbTags are the Penn Treebank verb tags the tagger emits.
var verbTags = map[string]bool{
	"VB": true, "VBD": true, "VBG": true, "VBN": true, "VBP": true, "VBZ": true,
}

// auxVerbs never carry the relation on their own.
var auxVerbs = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "has": true, "have": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "shall": true, "may": true, "might": true,
	"can": true, "could": true, "would": true, "should": true, "must": true,
}

// Extract walks each sentence holding at least two concept spans, finds the
// main verb between two of them, and emits one triple per subject/object
// pair straddling that verb.
func (p *Parser) Extract(sentences *normalize.SentenceIndex, spans []ConceptSpan) []model.SPOTriple {
	var triples []model.SPOTriple

	for _, sent := range sentences.Spans() {
		var inSentence []ConceptSpan
		for _, cs := range spans {
			if cs.Start >= sent.Start && cs.End <= sent.End {
				inSentence = append(inSentence, cs)
			}
		}
		if len(inSentence) < 2 {
			continue
		}

		verb, verbOffset, ok := mainVerb(sent.Text)
		if !ok {
			continue
		}
		verbStart := sent.Start + verbOffset

		for _, subj := range inSentence {
			if subj.End > verbStart {
				continue
			}
			for _, obj := range inSentence {
				if obj.Start < verbStart+len(verb) {
					continue
				}
				triples = append(triples, model.SPOTriple{
					Subject:      subj.Text,
					Verb:         strings.ToLower(verb),
					Object:       obj.Text,
					Sentence:     sent.Text,
					SubjectIndID: subj.RefID,
					ObjectIndID:  obj.RefID,
				})
			}
		}
	}

	logger.GetLogger().Info("dependency parsing complete", "triples", len(triples))
	return triples
}

// mainVerb returns the first non-auxiliary verb token and its byte offset
// within the sentence.
func mainVerb(sentence string) (string, int, bool) {
	doc, err := prose.NewDocument(sentence,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		logger.GetLogger().Debug("pos tagging failed", "error", err)
		return "", 0, false
	}

	cursor := 0
	for _, tok := range doc.Tokens() {
		idx := strings.Index(sentence[cursor:], tok.Text)
		if idx < 0 {
			continue
		}
		offset := cursor + idx
		cursor = offset + len(tok.Text)

		if verbTags[tok.Tag] && !auxVerbs[strings.ToLower(tok.Text)] {
			return tok.Text, offset, true
		}
	}
	return "", 0, false
}

// CrossLink fills property references on triples whose verb matches a
// recognized property annotation in the same region of text.
func CrossLink(triples []model.SPOTriple, properties []*model.PropertyAnnotation) {
	byText := make(map[string]*model.PropertyAnnotation, len(properties))
	for _, prop := range properties {
		key := strings.ToLower(prop.PropertyText)
		if _, ok := byText[key]; !ok {
			byText[key] = prop
		}
	}
	for i := range triples {
		if prop, ok := byText[triples[i].Verb]; ok {
			triples[i].PropertyID = prop.ID
		}
	}
}
