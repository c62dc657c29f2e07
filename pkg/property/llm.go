package property

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const propertyExtractionPrompt = `You are a legal verb/relation extractor and OWL ObjectProperty linker. Given a chunk of legal text along with:
1. The OWL class annotations already identified in this chunk
2. Properties (verbs/relations) already found by automated text matching

Your job is TWO-FOLD:
A. Extract any ADDITIONAL legal verbs/relations that the automated matchers missed
B. Identify domain/range CLASS links for each property (what the verb connects)

## What is an OWL ObjectProperty?
A property is a VERB or RELATION that connects concepts. Examples:
- "reversed": the court REVERSED the lower court's decision
- "remanded": the case was REMANDED for further proceedings
- "drafted": the attorney DRAFTED the motion
- "affirmed": the appellate court AFFIRMED the ruling
- "denied": the court DENIED the motion
- "granted": summary judgment was GRANTED
- "filed": the complaint was FILED in district court
- "argued": counsel ARGUED that the statute applied

## What is NOT a property?
- Nouns: "summary judgment", "court", "plaintiff" are OWL Classes
- Named entities: "John Smith", "42 U.S.C. § 1983" are OWL Individuals
- Common verbs without legal significance: "is", "was", "has", "had", "the"

## OWL Class Annotations in this chunk:
%s

## Properties already found by automated matching:
%s

## Ontology Property Labels (for reference):
%s

## Instructions:
1. For each EXISTING property above, identify which OWL class annotations serve as the subject (domain) and object (range) of the verb.
2. Identify any ADDITIONAL legal verbs/relations that the automated matchers missed. Focus on:
   - Court actions: reversed, remanded, affirmed, denied, granted, dismissed, vacated, overruled
   - Party actions: filed, argued, moved, appealed, objected, stipulated, alleged
   - Document actions: drafted, executed, signed, amended, ratified, recorded
   - Any other legally significant verbs that link concepts together

## Confidence calibration:
- 0.95 = unambiguous legal verb with clear property match and identified domain/range
- 0.75 = likely property match but domain/range uncertain
- 0.55 = plausible legal verb but no clear property match
- 0.35 = weak signal, speculative

Respond with JSON:
{"properties": [
  {
    "property_text": "exact verb text from document",
    "folio_label": "matching ontology property label (if any)",
    "domain_annotation_ids": ["id1"],
    "range_annotation_ids": ["id2"],
    "confidence": 0.85,
    "is_new": true
  }
]}

- Set "is_new": false for existing properties you're enriching with domain/range links
- Set "is_new": true for new properties you discovered
- "domain_annotation_ids" and "range_annotation_ids" reference annotation IDs from the class list above

TEXT:
%s`

type llmProperty struct {
	PropertyText        string   `json:"property_text"`
	FolioLabel          string   `json:"folio_label"`
	DomainAnnotationIDs []string `json:"domain_annotation_ids"`
	RangeAnnotationIDs  []string `json:"range_annotation_ids"`
	Confidence          float64  `json:"confidence"`
	IsNew               bool     `json:"is_new"`
}

type llmPropertyResponse struct {
	Properties []llmProperty `json:"properties"`
}

// LLMIdentifier extracts properties the matcher missed and enriches
// existing ones with domain/range annotation links.
type LLMIdentifier struct {
	llm  llms.Provider
	onto *folio.Ontology
}

// NewLLMIdentifier builds the identifier.
func NewLLMIdentifier(llm llms.Provider, onto *folio.Ontology) *LLMIdentifier {
	return &LLMIdentifier{llm: llm, onto: onto}
}

// IdentifyChunk runs one chunk, enriching existing properties in place and
// returning discovered ones.
func (l *LLMIdentifier) IdentifyChunk(
	ctx context.Context,
	chunk model.TextChunk,
	annotations []*model.Annotation,
	existing []*model.PropertyAnnotation,
) []*model.PropertyAnnotation {
	resp, ok := l.query(ctx, chunk, annotations, existing)
	if !ok {
		return nil
	}
	return l.apply(chunk, resp, existing)
}

func (l *LLMIdentifier) query(
	ctx context.Context,
	chunk model.TextChunk,
	annotations []*model.Annotation,
	existing []*model.PropertyAnnotation,
) (llmPropertyResponse, bool) {
	var annLines []string
	for _, ann := range annotations {
		if ann.Span.End <= chunk.StartOffset || ann.Span.Start >= chunk.EndOffset {
			continue
		}
		top := ann.Primary()
		if top == nil {
			continue
		}
		label := top.FolioLabel
		if label == "" {
			label = top.ConceptText
		}
		branch := ""
		if len(top.Branches) > 0 {
			branch = top.Branches[0]
		}
		annLines = append(annLines, fmt.Sprintf("- [%s] %q -> %s (branch: %s)",
			ann.ID, ann.Span.Text, label, branch))
	}
	annStr := "(none found in this chunk)"
	if len(annLines) > 0 {
		annStr = strings.Join(annLines, "\n")
	}

	var propLines []string
	for _, prop := range existing {
		if prop.Span.End <= chunk.StartOffset || prop.Span.Start >= chunk.EndOffset {
			continue
		}
		propLines = append(propLines, fmt.Sprintf("- %q -> %s (source: %s)",
			prop.PropertyText, prop.FolioLabel, prop.Source))
	}
	propStr := "(none found by automated matchers in this chunk)"
	if len(propLines) > 0 {
		propStr = strings.Join(propLines, "\n")
	}

	prompt := fmt.Sprintf(propertyExtractionPrompt,
		annStr, propStr, l.labelSample(), chunk.Text)

	var resp llmPropertyResponse
	if err := l.llm.Structured(ctx, prompt, llms.SchemaFor(&llmPropertyResponse{}), &resp, llms.Options{}); err != nil {
		logger.GetLogger().Warn("llm property identification failed",
			"chunk", chunk.ChunkIndex, "error", err)
		return llmPropertyResponse{}, false
	}
	return resp, true
}

// labelSample returns up to 50 distinct property labels for the prompt.
func (l *LLMIdentifier) labelSample() string {
	seen := make(map[string]bool)
	var labels []string
	for _, info := range l.onto.AllPropertyLabels() {
		if !seen[info.MatchedLabel] {
			seen[info.MatchedLabel] = true
			labels = append(labels, info.MatchedLabel)
		}
	}
	if len(labels) == 0 {
		return "(none available)"
	}
	sort.Strings(labels)
	if len(labels) > 50 {
		labels = labels[:50]
	}
	return strings.Join(labels, ", ")
}

func (l *LLMIdentifier) apply(
	chunk model.TextChunk,
	resp llmPropertyResponse,
	existing []*model.PropertyAnnotation,
) []*model.PropertyAnnotation {
	var discovered []*model.PropertyAnnotation

	for _, item := range resp.Properties {
		if !item.IsNew {
			l.applyDomainRange(existing, item, chunk)
			continue
		}
		if item.PropertyText == "" {
			continue
		}

		pos := strings.Index(chunk.Text, item.PropertyText)
		if pos < 0 {
			pos = strings.Index(strings.ToLower(chunk.Text), strings.ToLower(item.PropertyText))
		}
		if pos < 0 || pos+len(item.PropertyText) > len(chunk.Text) {
			continue
		}
		// Keep the document's casing at the located offsets, not the
		// model's restatement of the phrase.
		propText := chunk.Text[pos : pos+len(item.PropertyText)]
		docStart := chunk.StartOffset + pos
		docEnd := docStart + len(propText)
		confidence := clamp01(item.Confidence)

		prop := &model.PropertyAnnotation{
			ID:           uuid.NewString(),
			PropertyText: propText,
			FolioLabel:   item.FolioLabel,
			Span:         model.Span{Start: docStart, End: docEnd, Text: propText},
			Confidence:   confidence,
			Source:       SourceLLM,
			Lineage: []model.StageEvent{
				model.NewStageEvent("property_extraction", "created",
					"llm: property extraction").WithConfidence(confidence),
			},
		}

		// Fill ontology data when the suggested label resolves.
		if info, ok := l.onto.AllPropertyLabels()[strings.ToLower(item.FolioLabel)]; ok {
			prop.FolioIRI = info.Property.IRI
			prop.FolioLabel = info.Property.CleanLabel()
			prop.FolioDefinition = info.Property.Definition
			prop.FolioExamples = info.Property.Examples
			prop.FolioAltLabels = info.Property.CleanAltLabels()
			prop.DomainIRIs = info.Property.DomainIRIs
			prop.RangeIRIs = info.Property.RangeIRIs
			prop.InverseOfIRI = info.Property.InverseOf
		}

		discovered = append(discovered, prop)
	}
	return discovered
}

// applyDomainRange records LLM-identified domain/range links on a
// matching existing property's lineage.
func (l *LLMIdentifier) applyDomainRange(
	existing []*model.PropertyAnnotation,
	item llmProperty,
	chunk model.TextChunk,
) {
	for _, prop := range existing {
		if prop.Span.End <= chunk.StartOffset || prop.Span.Start >= chunk.EndOffset {
			continue
		}
		if !strings.EqualFold(prop.PropertyText, item.PropertyText) {
			continue
		}

		var parts []string
		if len(item.DomainAnnotationIDs) > 0 {
			parts = append(parts, "domain: "+strings.Join(item.DomainAnnotationIDs, ","))
		}
		if len(item.RangeAnnotationIDs) > 0 {
			parts = append(parts, "range: "+strings.Join(item.RangeAnnotationIDs, ","))
		}
		if len(parts) > 0 {
			prop.Lineage = append(prop.Lineage,
				model.NewStageEvent("property_extraction", "enriched",
					"llm: linked "+strings.Join(parts, ", ")).WithConfidence(clamp01(item.Confidence)))
		}
		return
	}
}

// IdentifyBatch fans out queries per chunk; applies serialize on a mutex.
func (l *LLMIdentifier) IdentifyBatch(
	ctx context.Context,
	chunks []model.TextChunk,
	annotations []*model.Annotation,
	existing []*model.PropertyAnnotation,
) []*model.PropertyAnnotation {
	var mu sync.Mutex
	var all []*model.PropertyAnnotation

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			resp, ok := l.query(gctx, chunk, annotations, existing)
			if !ok {
				return nil
			}
			mu.Lock()
			all = append(all, l.apply(chunk, resp, existing)...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return all
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
