package individual

import (
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// nerLabelMap maps NER tags to ontology class labels and confidences.
// Statistical NER runs lower-confidence than the structured patterns.
var nerLabelMap = map[string]struct {
	folioLabel string
	name       string
	confidence float64
}{
	"PERSON": {folioLabel: "Person", name: "person", confidence: 0.80},
	"GPE":    {folioLabel: "Location", name: "location", confidence: 0.78},
	"ORG":    {folioLabel: "Organization", name: "organization", confidence: 0.78},
	"LOC":    {folioLabel: "Location", name: "location", confidence: 0.78},
}

// nerExtractor wraps the statistical named entity recognizer. Document
// construction does the tokenizing and tagging; entity offsets are
// recovered by forward search since the model reports text only.
type nerExtractor struct{}

func nerExtractors() []SpanProducer {
	return []SpanProducer{&nerExtractor{}}
}

func (e *nerExtractor) Name() string { return "ner" }

func (e *nerExtractor) Extract(text string) []*model.Individual {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(true))
	if err != nil {
		logger.GetLogger().Warn("ner document build failed", "error", err)
		return nil
	}

	var out []*model.Individual
	cursor := 0
	for _, ent := range doc.Entities() {
		meta, ok := nerLabelMap[ent.Label]
		if !ok {
			continue
		}
		mention := strings.TrimSpace(ent.Text)
		if len(mention) < 2 {
			continue
		}

		// Entities arrive in document order, so the search cursor only
		// moves forward.
		idx := strings.Index(text[cursor:], mention)
		if idx < 0 {
			idx = strings.Index(text, mention)
			if idx < 0 {
				continue
			}
			cursor = 0
		}
		start := cursor + idx
		end := start + len(mention)
		cursor = end

		span := model.Span{Start: start, End: end, Text: mention}
		ind := model.NewIndividual(mention, mention, model.IndividualNamedEntity, span)
		ind.Confidence = meta.confidence
		ind.Source = model.IndSourceSpacyNER
		ind.ClassLinks = []model.ClassLink{{
			FolioLabel:   meta.folioLabel,
			Relationship: "instance_of",
			Confidence:   meta.confidence,
		}}
		ind.Lineage = []model.StageEvent{
			model.NewStageEvent("individual_extraction", "created",
				"ner: "+meta.name).WithConfidence(meta.confidence),
		}
		out = append(out, ind)
	}
	return out
}
