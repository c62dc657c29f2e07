package concept

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/match"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
)

const conceptIdentificationPrompt = `You are a legal concept annotator. Given a chunk of legal text, identify every legal concept that appears in the text.

For each concept found, provide:
1. **concept_text**: The exact text span as it appears in the document
2. **branch_hint**: Which ontology branch this concept most likely belongs to
3. **confidence**: Your confidence (0.0-1.0) that this is a legal concept

Ontology branches:
%s

Rules:
- Include both explicit legal terms (e.g., "breach of contract") and contextual legal concepts (e.g., "damages" when used in a legal sense)
- Use the EXACT text as it appears, do not paraphrase or normalize
- A concept can be 1-5 words long
- Prefer the most specific concept (e.g., "breach of contract" over just "breach")
- Do not include common English words that are not legal concepts in context
- Do NOT identify "area of law" categories (e.g., "litigation", "corporate law") since these are document-level classifications, not text-level concepts

Respond with JSON:
{"concepts": [{"concept_text": "...", "branch_hint": "...", "confidence": 0.95}]}

TEXT:
%s`

type identifiedConcept struct {
	ConceptText string  `json:"concept_text"`
	BranchHint  string  `json:"branch_hint"`
	Confidence  float64 `json:"confidence"`
}

type identifyResponse struct {
	Concepts []identifiedConcept `json:"concepts"`
}

// Identifier extracts legal concepts from text chunks via structured LLM
// calls. Per-chunk failures yield empty results, never errors.
type Identifier struct {
	llm      llms.Provider
	branches []string
}

// NewIdentifier builds an identifier with the branch catalog embedded in
// its prompts.
func NewIdentifier(llm llms.Provider, branches []string) *Identifier {
	return &Identifier{llm: llm, branches: branches}
}

// IdentifyChunk asks the model for the concepts in one chunk.
func (i *Identifier) IdentifyChunk(ctx context.Context, chunk model.TextChunk) []model.ConceptMatch {
	branchList := make([]string, 0, len(i.branches))
	for _, b := range i.branches {
		branchList = append(branchList, "- "+b)
	}
	prompt := fmt.Sprintf(conceptIdentificationPrompt, strings.Join(branchList, "\n"), chunk.Text)

	var resp identifyResponse
	err := i.llm.Structured(ctx, prompt, llms.SchemaFor(&identifyResponse{}), &resp, llms.Options{})
	if err != nil {
		logger.GetLogger().Warn("llm concept identification failed",
			"chunk", chunk.ChunkIndex, "error", err)
		return nil
	}

	concepts := make([]model.ConceptMatch, 0, len(resp.Concepts))
	for _, c := range resp.Concepts {
		if strings.TrimSpace(c.ConceptText) == "" {
			continue
		}
		concepts = append(concepts, model.ConceptMatch{
			ConceptText: c.ConceptText,
			BranchHint:  c.BranchHint,
			Confidence:  c.Confidence,
			Source:      model.SourceLLM,
			State:       model.StatePreliminary,
		})
	}
	return concepts
}

// IdentifyAll fans out one task per chunk and collects results by chunk
// index. Failed chunks come back empty.
func (i *Identifier) IdentifyAll(ctx context.Context, chunks []model.TextChunk) map[int][]model.ConceptMatch {
	out := make(map[int][]model.ConceptMatch, len(chunks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			concepts := i.IdentifyChunk(gctx, chunk)
			mu.Lock()
			out[chunk.ChunkIndex] = concepts
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// BuildPreliminaryAnnotations materializes one preliminary annotation per
// occurrence of each identified concept text in the full document, so the
// client can paint before reconciliation completes. Duplicate concept texts
// keep their highest-confidence variant.
func BuildPreliminaryAnnotations(
	fullText string,
	sentences *normalize.SentenceIndex,
	conceptsByChunk map[int][]model.ConceptMatch,
) []*model.Annotation {
	best := make(map[string]model.ConceptMatch)
	for _, concepts := range conceptsByChunk {
		for _, c := range concepts {
			key := strings.ToLower(c.ConceptText)
			if existing, ok := best[key]; !ok || c.Confidence > existing.Confidence {
				best[key] = c
			}
		}
	}
	if len(best) == 0 {
		return nil
	}

	matcher := match.NewMatcher()
	for key, c := range best {
		matcher.AddPattern(key, c)
	}
	matcher.Build()

	var annotations []*model.Annotation
	for _, m := range matcher.Search(fullText) {
		c, ok := m.Value.(model.ConceptMatch)
		if !ok {
			continue
		}
		span := model.Span{
			Start:        m.Start,
			End:          m.End,
			Text:         fullText[m.Start:m.End],
			SentenceText: sentences.SentenceAt(m.Start),
		}
		ann := model.NewAnnotation(span, c)
		ann.AddLineage(model.NewStageEvent("llm_concept_identification", "created",
			"preliminary annotation from LLM concept").WithConfidence(c.Confidence))
		annotations = append(annotations, ann)
	}
	return annotations
}
