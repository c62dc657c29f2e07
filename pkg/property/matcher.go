// Package property extracts ontology object-property (verb/relation)
// mentions: a deterministic label matcher first, then an LLM pass that
// finds missed verbs and links domain/range annotations.
package property

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/match"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// Property annotation sources.
const (
	SourceAhoCorasick = "aho_corasick"
	SourceLLM         = "llm"
)

// Conservative stopword list. Most single-word verbs like "reversed",
// "denied", "granted" are kept on purpose.
var propertyStopwords = map[string]bool{
	"not": true, "and": true, "near": true, "equal": true,
	"can": true, "has": true, "or": true,
}

type patternValue struct {
	prop         *folio.Property
	labelType    string
	matchedLabel string
}

// Matcher finds object-property labels in text with a pattern automaton
// built once at construction.
type Matcher struct {
	matcher *match.Matcher
	cfg     config.PipelineConfig
}

// NewMatcher builds the automaton from every property label plus lemma
// variants of the single-word ones.
func NewMatcher(onto *folio.Ontology, cfg config.PipelineConfig) *Matcher {
	m := match.NewMatcher()
	count := 0

	for labelKey, info := range onto.AllPropertyLabels() {
		if len(labelKey) <= 2 || propertyStopwords[labelKey] {
			continue
		}
		m.AddPattern(labelKey, patternValue{
			prop:         info.Property,
			labelType:    info.LabelType,
			matchedLabel: info.MatchedLabel,
		})
		count++

		for _, variant := range lemmaVariants(labelKey) {
			if len(variant) <= 2 || propertyStopwords[variant] || m.HasPattern(variant) {
				continue
			}
			m.AddPattern(variant, patternValue{
				prop:         info.Property,
				labelType:    folio.LabelLemma,
				matchedLabel: info.MatchedLabel,
			})
			count++
		}
	}

	m.Build()
	logger.GetLogger().Info("property matcher built", "patterns", count)
	return &Matcher{matcher: m, cfg: cfg}
}

// PatternCount reports how many patterns the automaton holds.
func (pm *Matcher) PatternCount() int {
	return pm.matcher.PatternCount()
}

// Match searches the full text and returns property annotations with
// confidences by label type; multi-word matches gain a small boost.
func (pm *Matcher) Match(text string) []*model.PropertyAnnotation {
	var results []*model.PropertyAnnotation
	for _, m := range pm.matcher.Search(text) {
		data, ok := m.Value.(patternValue)
		if !ok {
			continue
		}

		confidence := pm.baseConfidence(data.labelType)
		if strings.Contains(m.Pattern, " ") {
			confidence = min1(confidence + 0.05)
		}

		spanText := text[m.Start:m.End]
		results = append(results, &model.PropertyAnnotation{
			ID:              uuid.NewString(),
			PropertyText:    spanText,
			FolioIRI:        data.prop.IRI,
			FolioLabel:      data.prop.CleanLabel(),
			FolioDefinition: data.prop.Definition,
			FolioExamples:   data.prop.Examples,
			FolioAltLabels:  data.prop.CleanAltLabels(),
			DomainIRIs:      data.prop.DomainIRIs,
			RangeIRIs:       data.prop.RangeIRIs,
			InverseOfIRI:    data.prop.InverseOf,
			Span:            model.Span{Start: m.Start, End: m.End, Text: spanText},
			Confidence:      confidence,
			Source:          SourceAhoCorasick,
			MatchType:       data.labelType,
			Lineage: []model.StageEvent{
				model.NewStageEvent("property_extraction", "created",
					fmt.Sprintf("aho_corasick: matched %q as %s", m.Pattern, data.prop.CleanLabel())).
					WithConfidence(confidence),
			},
		})
	}
	return results
}

func (pm *Matcher) baseConfidence(labelType string) float64 {
	switch labelType {
	case folio.LabelPreferred:
		return pm.cfg.PropertyPreferredConfidence
	case folio.LabelLemma:
		return pm.cfg.PropertyLemmaConfidence
	default:
		return pm.cfg.PropertyAltConfidence
	}
}

// lemmaVariants inflects single-word verb labels with plain suffix rules.
// Multi-word labels are left alone; inflecting mid-phrase produces more
// noise than signal.
func lemmaVariants(label string) []string {
	if strings.Contains(label, " ") || len(label) < 3 {
		return nil
	}

	switch {
	case strings.HasSuffix(label, "e"):
		return []string{label + "s", label + "d", strings.TrimSuffix(label, "e") + "ing"}
	case strings.HasSuffix(label, "y") && len(label) > 3 && !isVowel(label[len(label)-2]):
		stem := strings.TrimSuffix(label, "y")
		return []string{stem + "ies", stem + "ied", label + "ing"}
	case strings.HasSuffix(label, "s"), strings.HasSuffix(label, "x"),
		strings.HasSuffix(label, "ch"), strings.HasSuffix(label, "sh"):
		return []string{label + "es", label + "ed", label + "ing"}
	default:
		return []string{label + "s", label + "ed", label + "ing"}
	}
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
