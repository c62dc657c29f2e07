package concept

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const contextualRerankPrompt = `You are a legal concept relevance evaluator. Given a document excerpt and a list of candidate ontology concepts that were identified in it, score how contextually relevant each concept is to the document.

For each concept, evaluate whether the ontology concept truly applies in this document's context, not just whether the text matches a label.

Scoring rubric:
- 0.95 = The concept is unambiguously central to the document's subject matter
- 0.80 = The concept clearly applies in this legal context
- 0.60 = The concept is relevant but secondary or tangential
- 0.40 = The concept is a stretch: the term appears but the ontology concept doesn't really fit
- 0.20 = The concept is likely a false positive: the text matches a label but the legal meaning doesn't apply

DOCUMENT EXCERPT:
%s

CANDIDATE CONCEPTS:
%s

For each concept, respond with JSON:
{"scores": [{"concept_text": "...", "folio_iri": "...", "contextual_score": 0.75, "reasoning": "brief explanation"}]}`

type rerankCandidate struct {
	ConceptText     string `json:"concept_text"`
	FolioIRI        string `json:"folio_iri"`
	FolioLabel      string `json:"folio_label"`
	FolioDefinition string `json:"folio_definition"`
}

type rerankScore struct {
	ConceptText     string  `json:"concept_text"`
	FolioIRI        string  `json:"folio_iri"`
	ContextualScore float64 `json:"contextual_score"`
	Reasoning       string  `json:"reasoning"`
}

type rerankResponse struct {
	Scores []rerankScore `json:"scores"`
}

// Reranker scores all resolved concepts against the document context in a
// single batched call and blends the result 50/50 with the pipeline score.
type Reranker struct {
	llm          llms.Provider
	contextChars int
}

// NewReranker builds a reranker that sends up to contextChars of document
// prefix with each request.
func NewReranker(llm llms.Provider, contextChars int) *Reranker {
	if contextChars <= 0 {
		contextChars = 3000
	}
	return &Reranker{llm: llm, contextChars: contextChars}
}

// Rerank mutates the resolved concepts in place. Returns the number of
// concepts whose confidence was re-blended.
func (r *Reranker) Rerank(ctx context.Context, fullText string, resolved []model.ResolvedConcept) int {
	if len(resolved) == 0 || fullText == "" {
		return 0
	}

	candidates := make([]rerankCandidate, 0, len(resolved))
	for _, c := range resolved {
		def := c.Definition
		if len(def) > 200 {
			def = def[:200]
		}
		candidates = append(candidates, rerankCandidate{
			ConceptText:     c.ConceptText,
			FolioIRI:        c.IRI,
			FolioLabel:      c.Label,
			FolioDefinition: def,
		})
	}
	candidatesJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return 0
	}

	excerpt := fullText
	if len(excerpt) > r.contextChars {
		excerpt = excerpt[:r.contextChars]
	}
	prompt := fmt.Sprintf(contextualRerankPrompt, excerpt, candidatesJSON)

	raw, err := r.llm.Complete(ctx, prompt, llms.Options{Temperature: 0})
	if err != nil {
		logger.GetLogger().Warn("contextual rerank failed, skipping", "error", err)
		return 0
	}

	var resp rerankResponse
	if err := llms.DecodeStructured(raw, &resp); err != nil {
		logger.GetLogger().Warn("contextual rerank response unparseable", "error", err)
		return 0
	}

	scores := make(map[string]float64, len(resp.Scores))
	for _, s := range resp.Scores {
		score := s.ContextualScore
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[strings.ToLower(s.ConceptText)+"|"+s.FolioIRI] = score
	}

	reranked := 0
	for i := range resolved {
		key := strings.ToLower(resolved[i].ConceptText) + "|" + resolved[i].IRI
		ctxScore, ok := scores[key]
		if !ok {
			continue
		}
		resolved[i].Confidence = resolved[i].Confidence*0.5 + ctxScore*0.5
		reranked++
	}
	return reranked
}
