package individual

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const individualExtractionPrompt = `You are a legal named entity extractor and OWL class linker. Given a chunk of legal text along with:
1. The OWL class annotations already identified in this chunk
2. Named entities already found by automated extractors

Your job is TWO-FOLD:
A. Extract any ADDITIONAL named individuals that the automated extractors missed
B. LINK all individuals (both existing and new) to the correct OWL class annotations

## What is an OWL Individual?
An individual is a SPECIFIC, NAMED instance of an OWL class. Examples:
- "John Smith" is an individual instance of the class "Plaintiff" or "Person"
- "42 U.S.C. § 1983" is an individual instance of the class "Statute"
- "Smith v. Jones, 123 U.S. 456 (1987)" is an individual instance of the class "Caselaw"
- "Google LLC" is an individual instance of the class "Organization"
- "the May 2024 Purchase Agreement" is an individual instance of "Contract"
- "$500,000" is an individual instance of "Monetary Amount"
- "December 15, 2023" is an individual instance of "Date"

## What is NOT an individual?
- Generic references: "the plaintiff", "a court", "the statute" refer to classes, not instances
- Abstract concepts: "negligence", "breach of contract" ARE the OWL classes themselves
- Pronouns: "he", "they", "it"

## OWL Class Annotations in this chunk:
%s

## Individuals already found by automated extractors:
%s

## Instructions:
1. For each EXISTING individual above, determine which OWL class annotation(s) it should be linked to. Use the annotation_id from the class annotations list.
2. Identify any ADDITIONAL specific named entities the extractors missed. Focus on:
   - Specific documents referenced by name ("the Employment Agreement dated March 1, 2024")
   - Named events ("the December 2023 closing")
   - Role-specific identifications (you may know "John Smith" is specifically the Plaintiff)
   - Non-U.S. or unusual citation formats
   - Any other specific named instances of the OWL classes listed above

## Confidence calibration:
- 0.95 = unambiguous named entity with clear class link (e.g., explicit "Plaintiff John Smith")
- 0.70 = likely entity/link but some ambiguity (e.g., "Smith" could be plaintiff or witness)
- 0.50 = plausible but uncertain (e.g., "the agreement" might refer to a specific document)
- 0.30 = weak signal, speculative link

Respond with JSON:
{"individuals": [
  {
    "name": "canonical name",
    "mention_text": "exact text from document",
    "individual_type": "named_entity or legal_citation",
    "class_annotation_ids": ["id1", "id2"],
    "class_labels": ["Plaintiff", "Person"],
    "confidence": 0.85,
    "is_new": true
  }
]}

- Set "is_new": false for existing individuals you're linking to classes
- Set "is_new": true for new individuals you discovered
- "class_annotation_ids" should reference the annotation IDs from the class list above (when available)
- "class_labels" should list the ontology class labels this individual instantiates

TEXT:
%s`

type llmIndividual struct {
	Name               string   `json:"name"`
	MentionText        string   `json:"mention_text"`
	IndividualType     string   `json:"individual_type"`
	ClassAnnotationIDs []string `json:"class_annotation_ids"`
	ClassLabels        []string `json:"class_labels"`
	Confidence         float64  `json:"confidence"`
	IsNew              bool     `json:"is_new"`
}

type llmIndividualResponse struct {
	Individuals []llmIndividual `json:"individuals"`
}

// LLMIdentifier extracts individuals the deterministic extractors missed
// and links individuals to class annotations.
type LLMIdentifier struct {
	llm llms.Provider
}

// NewLLMIdentifier builds the identifier.
func NewLLMIdentifier(llm llms.Provider) *LLMIdentifier {
	return &LLMIdentifier{llm: llm}
}

// IdentifyChunk runs one chunk. Existing individuals overlapping the chunk
// may gain class links in place; discovered individuals are returned.
func (l *LLMIdentifier) IdentifyChunk(
	ctx context.Context,
	chunk model.TextChunk,
	annotations []*model.Annotation,
	existing []*model.Individual,
) []*model.Individual {
	resp, annByID, ok := l.query(ctx, chunk, annotations, existing)
	if !ok {
		return nil
	}
	return l.apply(chunk, resp, annByID, existing)
}

// query builds the prompt and performs the structured call. No shared
// state is touched, so callers may run queries concurrently.
func (l *LLMIdentifier) query(
	ctx context.Context,
	chunk model.TextChunk,
	annotations []*model.Annotation,
	existing []*model.Individual,
) (llmIndividualResponse, map[string]*model.Annotation, bool) {
	annByID := make(map[string]*model.Annotation, len(annotations))
	var annLines []string
	for _, ann := range annotations {
		if ann.Span.End <= chunk.StartOffset || ann.Span.Start >= chunk.EndOffset {
			continue
		}
		top := ann.Primary()
		if top == nil {
			continue
		}
		annByID[ann.ID] = ann
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

	var indLines []string
	for _, ind := range existing {
		if ind.Span.End <= chunk.StartOffset || ind.Span.Start >= chunk.EndOffset {
			continue
		}
		indLines = append(indLines, fmt.Sprintf("- %q (type: %s, source: %s)",
			ind.Name, ind.IndividualType, ind.Source))
	}
	indStr := "(none found by automated extractors in this chunk)"
	if len(indLines) > 0 {
		indStr = strings.Join(indLines, "\n")
	}

	prompt := fmt.Sprintf(individualExtractionPrompt, annStr, indStr, chunk.Text)

	var resp llmIndividualResponse
	if err := l.llm.Structured(ctx, prompt, llms.SchemaFor(&llmIndividualResponse{}), &resp, llms.Options{}); err != nil {
		logger.GetLogger().Warn("llm individual identification failed",
			"chunk", chunk.ChunkIndex, "error", err)
		return llmIndividualResponse{}, nil, false
	}
	return resp, annByID, true
}

// apply mutates existing individuals with new class links and materializes
// discovered individuals at document offsets.
func (l *LLMIdentifier) apply(
	chunk model.TextChunk,
	resp llmIndividualResponse,
	annByID map[string]*model.Annotation,
	existing []*model.Individual,
) []*model.Individual {
	var discovered []*model.Individual
	for _, item := range resp.Individuals {
		if !item.IsNew {
			l.applyClassLinks(existing, item, annByID, chunk)
			continue
		}
		if item.MentionText == "" {
			continue
		}

		pos := strings.Index(chunk.Text, item.MentionText)
		if pos < 0 {
			pos = strings.Index(strings.ToLower(chunk.Text), strings.ToLower(item.MentionText))
		}
		if pos < 0 || pos+len(item.MentionText) > len(chunk.Text) {
			continue
		}
		// The model may restate the mention in its own casing; the span
		// always carries the document's text at the located offsets.
		mention := chunk.Text[pos : pos+len(item.MentionText)]
		docStart := chunk.StartOffset + pos
		docEnd := docStart + len(mention)

		indType := item.IndividualType
		if indType == "" {
			indType = model.IndividualNamedEntity
		}
		name := item.Name
		if name == "" {
			name = strings.TrimSpace(mention)
		}
		confidence := clamp01(item.Confidence)

		span := model.Span{Start: docStart, End: docEnd, Text: mention}
		ind := model.NewIndividual(name, mention, indType, span)
		ind.Confidence = confidence
		ind.Source = model.IndSourceLLM
		ind.ClassLinks = buildClassLinks(item, annByID)
		ind.Lineage = []model.StageEvent{
			model.NewStageEvent("individual_extraction", "created",
				"llm: individual extraction").WithConfidence(confidence),
		}
		discovered = append(discovered, ind)
	}
	return discovered
}

// buildClassLinks resolves annotation IDs to full links, then adds label
// only links for labels no annotation covers.
func buildClassLinks(item llmIndividual, annByID map[string]*model.Annotation) []model.ClassLink {
	var links []model.ClassLink
	confidence := clamp01(item.Confidence)

	for _, annID := range item.ClassAnnotationIDs {
		ann := annByID[annID]
		if ann == nil {
			continue
		}
		top := ann.Primary()
		if top == nil {
			continue
		}
		links = append(links, model.ClassLink{
			AnnotationID: annID,
			FolioIRI:     top.FolioIRI,
			FolioLabel:   top.FolioLabel,
			Relationship: "instance_of",
			Confidence:   confidence,
		})
	}

	haveLabels := make(map[string]bool, len(links))
	for _, l := range links {
		haveLabels[l.FolioLabel] = true
	}
	for _, label := range item.ClassLabels {
		if label != "" && !haveLabels[label] {
			links = append(links, model.ClassLink{
				FolioLabel:   label,
				Relationship: "instance_of",
				Confidence:   confidence,
			})
			haveLabels[label] = true
		}
	}
	return links
}

// applyClassLinks folds LLM links into a matching existing individual.
func (l *LLMIdentifier) applyClassLinks(
	existing []*model.Individual,
	item llmIndividual,
	annByID map[string]*model.Annotation,
	chunk model.TextChunk,
) {
	for _, ind := range existing {
		if ind.Span.End <= chunk.StartOffset || ind.Span.Start >= chunk.EndOffset {
			continue
		}
		if !strings.EqualFold(ind.Name, item.Name) && !strings.EqualFold(ind.MentionText, item.MentionText) {
			continue
		}

		newLinks := buildClassLinks(item, annByID)
		type linkKey struct{ annID, label string }
		have := make(map[linkKey]bool, len(ind.ClassLinks))
		for _, l := range ind.ClassLinks {
			have[linkKey{l.AnnotationID, l.FolioLabel}] = true
		}
		for _, link := range newLinks {
			key := linkKey{link.AnnotationID, link.FolioLabel}
			if have[key] {
				continue
			}
			ind.ClassLinks = append(ind.ClassLinks, link)
			ind.Lineage = append(ind.Lineage,
				model.NewStageEvent("individual_extraction", "linked",
					"llm: linked to "+link.FolioLabel).WithConfidence(link.Confidence))
			have[key] = true
		}
		return
	}
}

// IdentifyBatch fans out queries per chunk, then applies results under a
// mutex since chunks share the existing individual set.
func (l *LLMIdentifier) IdentifyBatch(
	ctx context.Context,
	chunks []model.TextChunk,
	annotations []*model.Annotation,
	existing []*model.Individual,
) []*model.Individual {
	var mu sync.Mutex
	var all []*model.Individual

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			resp, annByID, ok := l.query(gctx, chunk, annotations, existing)
			if !ok {
				return nil
			}
			mu.Lock()
			all = append(all, l.apply(chunk, resp, annByID, existing)...)
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
