package ruler

import (
	"strings"

	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/match"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const minPatternLength = 3

// Common English words that false-positive against ontology labels.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "by": true, "for": true, "or": true, "and": true,
	"is": true, "it": true, "be": true, "as": true, "do": true, "no": true,
	"so": true, "up": true, "if": true, "my": true, "me": true, "he": true,
	"we": true, "am": true, "us": true, "go": true, "re": true, "al": true,
	"de": true, "la": true, "le": true, "mr": true, "ms": true, "dr": true,
	"st": true, "vs": true, "id": true, "ie": true, "eg": true, "etc": true,
	"per": true, "via": true, "not": true, "but": true, "has": true,
	"had": true, "was": true, "are": true, "its": true, "may": true,
	"can": true, "did": true, "she": true, "his": true, "her": true,
	"him": true, "our": true, "who": true, "how": true, "all": true,
	"any": true, "new": true, "one": true, "two": true, "out": true,
	"own": true, "set": true, "use": true, "way": true, "day": true,
	"get": true, "see": true, "now": true, "old": true, "end": true,
	"put": true, "run": true, "let": true, "say": true, "too": true,
	"yet": true, "off": true, "try": true, "ask": true, "got": true,
	"met": true, "cut": true, "pay": true, "due": true, "add": true,
}

// Base confidences by (label type, token count). Multi-word labels are far
// less ambiguous than single words; alternative labels less trusted than
// preferred ones.
const (
	confMultiPreferred    = 0.95
	confSinglePreferred   = 0.80
	confMultiAlternative  = 0.65
	confSingleAlternative = 0.35
)

type patternValue struct {
	iri       string
	labelType string
	concept   *folio.Concept
}

// Match is one deterministic label hit in the document.
type Match struct {
	Text       string
	Start      int
	End        int
	IRI        string
	LabelType  string
	Confidence float64
	Concept    *folio.Concept
}

// Ruler is the deterministic label matcher: every usable ontology label
// becomes a pattern in a shared automaton.
type Ruler struct {
	matcher *match.Matcher
}

// New builds a ruler from the ontology's label index.
func New(onto *folio.Ontology) *Ruler {
	m := match.NewMatcher()
	count := 0
	for label, info := range onto.AllLabels() {
		if len(label) < minPatternLength || stopwords[label] {
			continue
		}
		m.AddPattern(label, patternValue{
			iri:       info.Concept.IRI,
			labelType: info.LabelType,
			concept:   info.Concept,
		})
		count++
	}
	m.Build()
	logger.GetLogger().Info("entity ruler loaded", "patterns", count)
	return &Ruler{matcher: m}
}

// PatternCount returns the number of loaded label patterns.
func (r *Ruler) PatternCount() int { return r.matcher.PatternCount() }

// FindMatches scans the full text and returns every label hit with its
// confidence.
func (r *Ruler) FindMatches(text string) []Match {
	var out []Match
	for _, m := range r.matcher.Search(text) {
		value, ok := m.Value.(patternValue)
		if !ok {
			continue
		}
		out = append(out, Match{
			Text:       text[m.Start:m.End],
			Start:      m.Start,
			End:        m.End,
			IRI:        value.iri,
			LabelType:  value.labelType,
			Confidence: Confidence(value.labelType, m.Pattern),
			Concept:    value.concept,
		})
	}
	return out
}

// FindConcepts scans the text and reduces the hits to one ConceptMatch per
// distinct concept text, keeping the highest-confidence variant.
func (r *Ruler) FindConcepts(text string) []model.ConceptMatch {
	best := make(map[string]model.ConceptMatch)
	var order []string

	for _, m := range r.FindMatches(text) {
		key := strings.ToLower(m.Text)
		cm := model.ConceptMatch{
			ConceptText:     m.Text,
			FolioIRI:        m.IRI,
			FolioLabel:      m.Concept.DisplayLabel(),
			FolioDefinition: m.Concept.Definition,
			Confidence:      m.Confidence,
			Source:          model.SourceEntityRuler,
			MatchType:       matchType(m.LabelType),
			State:           model.StatePreliminary,
		}
		if existing, ok := best[key]; !ok {
			best[key] = cm
			order = append(order, key)
		} else if cm.Confidence > existing.Confidence {
			best[key] = cm
		}
	}

	out := make([]model.ConceptMatch, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// Confidence maps a label type and pattern to the ruler's base confidence.
func Confidence(labelType, pattern string) float64 {
	multiWord := strings.ContainsRune(strings.TrimSpace(pattern), ' ')
	if labelType == folio.LabelPreferred {
		if multiWord {
			return confMultiPreferred
		}
		return confSinglePreferred
	}
	if multiWord {
		return confMultiAlternative
	}
	return confSingleAlternative
}

func matchType(labelType string) string {
	if labelType == folio.LabelAlternative {
		return model.MatchAlternative
	}
	return model.MatchPreferred
}
