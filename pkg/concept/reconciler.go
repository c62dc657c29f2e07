package concept

import (
	"context"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// Embedding similarity above this resolves an IRI conflict outright.
const embeddingAutoResolveThreshold = 0.85

// EmbeddingSimilarity scores (mention, label) pairs; wired in optionally.
type EmbeddingSimilarity interface {
	SimilarityBatch(ctx context.Context, pairs [][2]string) ([]float64, error)
	IndexSize() int
}

// Reconciler merges deterministic label matches with LLM-proposed concepts
// into a single categorized set.
type Reconciler struct {
	rulerOnlyMinConfidence float64
	embeddings             EmbeddingSimilarity
}

// NewReconciler builds a reconciler. embeddings may be nil.
func NewReconciler(rulerOnlyMinConfidence float64, embeddings EmbeddingSimilarity) *Reconciler {
	return &Reconciler{
		rulerOnlyMinConfidence: rulerOnlyMinConfidence,
		embeddings:             embeddings,
	}
}

// diminishingBoost lifts low scores meaningfully while barely changing
// scores already near 1.0.
func diminishingBoost(base float64) float64 {
	return 0.05 * (1.0 - base)
}

func boosted(base float64) float64 {
	v := base + diminishingBoost(base)
	if v > 1.0 {
		return 1.0
	}
	return v
}

// Reconcile joins the two concept sets case-insensitively on concept text.
// Agreement boosts confidence; ruler-only singletons below the floor drop.
func (r *Reconciler) Reconcile(ctx context.Context, rulerConcepts, llmConcepts []model.ConceptMatch) []model.ReconciledConcept {
	rulerByText := indexByText(rulerConcepts)
	llmByText := indexByText(llmConcepts)

	keys := make([]string, 0, len(rulerByText)+len(llmByText))
	seen := make(map[string]bool)
	for _, c := range rulerConcepts {
		key := strings.ToLower(c.ConceptText)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for _, c := range llmConcepts {
		key := strings.ToLower(c.ConceptText)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	var results []model.ReconciledConcept
	type conflict struct {
		key      string
		ruler    model.ConceptMatch
		llm      model.ConceptMatch
	}
	var conflicts []conflict

	triage := r.embeddings != nil && r.embeddings.IndexSize() > 0

	for _, key := range keys {
		rc, inRuler := rulerByText[key]
		lc, inLLM := llmByText[key]

		switch {
		case inRuler && inLLM:
			if triage && rc.FolioIRI != "" && lc.FolioIRI != "" && rc.FolioIRI != lc.FolioIRI {
				conflicts = append(conflicts, conflict{key, rc, lc})
				continue
			}
			// Agreement: keep the richer side. The ruler's entry wins when
			// it carries a direct IRI and the LLM's does not.
			winner := lc
			if rc.FolioIRI != "" && lc.FolioIRI == "" {
				winner = rc
			}
			base := rc.Confidence
			if lc.Confidence > base {
				base = lc.Confidence
			}
			winner.Confidence = boosted(base)
			winner.Source = model.SourceReconciled
			results = append(results, model.ReconciledConcept{
				Concept:  winner,
				Category: model.CategoryBothAgree,
			})

		case inRuler:
			if rc.Confidence >= r.rulerOnlyMinConfidence {
				rc.Source = model.SourceEntityRuler
				results = append(results, model.ReconciledConcept{
					Concept:  rc,
					Category: model.CategoryRulerOnly,
				})
			} else {
				logger.GetLogger().Debug("filtered ruler-only concept",
					"text", key, "confidence", rc.Confidence)
			}

		case inLLM:
			lc.Source = model.SourceLLM
			results = append(results, model.ReconciledConcept{
				Concept:  lc,
				Category: model.CategoryLLMOnly,
			})
		}
	}

	// Resolve IRI conflicts in a single batched embedding pass.
	if len(conflicts) > 0 {
		pairs := make([][2]string, 0, len(conflicts)*2)
		for _, c := range conflicts {
			pairs = append(pairs,
				[2]string{c.key, labelOrText(c.ruler)},
				[2]string{c.key, labelOrText(c.llm)})
		}
		sims, err := r.embeddings.SimilarityBatch(ctx, pairs)
		if err != nil || len(sims) != len(pairs) {
			logger.GetLogger().Warn("embedding triage failed, keeping both sides", "error", err)
			sims = make([]float64, len(pairs))
		}
		for i, c := range conflicts {
			results = append(results, r.resolveConflict(c.key, c.ruler, c.llm, sims[i*2], sims[i*2+1])...)
		}
	}

	return results
}

func (r *Reconciler) resolveConflict(key string, rc, lc model.ConceptMatch, rulerSim, llmSim float64) []model.ReconciledConcept {
	maxSim := rulerSim
	if llmSim > maxSim {
		maxSim = llmSim
	}
	if maxSim > embeddingAutoResolveThreshold {
		winner := rc
		sim := rulerSim
		if llmSim > rulerSim {
			winner = lc
			sim = llmSim
		}
		winner.Source = model.SourceReconciled
		if sim > winner.Confidence {
			winner.Confidence = sim
		}
		return []model.ReconciledConcept{{Concept: winner, Category: model.CategoryConflictResolved}}
	}

	// Below threshold: definition word-overlap tiebreak.
	rcOverlap := definitionOverlap(key, rc.FolioDefinition)
	lcOverlap := definitionOverlap(key, lc.FolioDefinition)
	if rcOverlap > lcOverlap && rcOverlap > 0 {
		rc.Source = model.SourceReconciled
		return []model.ReconciledConcept{{Concept: rc, Category: model.CategoryConflictResolved}}
	}
	if lcOverlap > rcOverlap && lcOverlap > 0 {
		lc.Source = model.SourceReconciled
		return []model.ReconciledConcept{{Concept: lc, Category: model.CategoryConflictResolved}}
	}

	// No clear winner: keep both.
	rc.Source = model.SourceReconciled
	lc.Source = model.SourceReconciled
	return []model.ReconciledConcept{
		{Concept: rc, Category: model.CategoryConflictResolved},
		{Concept: lc, Category: model.CategoryConflictResolved},
	}
}

var overlapStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "in": true,
	"for": true, "and": true, "or": true, "is": true, "on": true, "at": true,
	"by": true, "with": true,
}

func definitionOverlap(context, definition string) float64 {
	if context == "" || definition == "" {
		return 0
	}
	ctxWords := wordSet(context)
	defWords := wordSet(definition)
	if len(ctxWords) == 0 || len(defWords) == 0 {
		return 0
	}
	shared := 0
	for w := range ctxWords {
		if defWords[w] {
			shared++
		}
	}
	denom := len(ctxWords)
	if len(defWords) > denom {
		denom = len(defWords)
	}
	return float64(shared) / float64(denom)
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !overlapStopwords[w] {
			words[w] = true
		}
	}
	return words
}

func indexByText(concepts []model.ConceptMatch) map[string]model.ConceptMatch {
	out := make(map[string]model.ConceptMatch, len(concepts))
	for _, c := range concepts {
		key := strings.ToLower(c.ConceptText)
		if existing, ok := out[key]; !ok || c.Confidence > existing.Confidence {
			out[key] = c
		}
	}
	return out
}

func labelOrText(c model.ConceptMatch) string {
	if c.FolioLabel != "" {
		return c.FolioLabel
	}
	return c.ConceptText
}

// SyncAnnotations updates preliminary annotations against reconciliation
// output: agreement confirms, absence rejects, ruler-only stays preliminary
// for the resolution stage to confirm later. Every transition appends a
// lineage event.
func SyncAnnotations(annotations []*model.Annotation, results []model.ReconciledConcept) {
	categoryByKey := make(map[string]string, len(results))
	for _, r := range results {
		key := strings.ToLower(r.Concept.ConceptText) + "|" + r.Concept.FolioIRI
		categoryByKey[key] = r.Category
		// Text-only fallback for annotations whose concepts carry no IRI yet.
		textKey := strings.ToLower(r.Concept.ConceptText) + "|"
		if _, ok := categoryByKey[textKey]; !ok {
			categoryByKey[textKey] = r.Category
		}
	}

	for _, ann := range annotations {
		if ann.State != model.StatePreliminary {
			continue
		}
		primary := ann.Primary()
		if primary == nil {
			continue
		}
		key := strings.ToLower(primary.ConceptText) + "|" + primary.FolioIRI
		category, found := categoryByKey[key]
		if !found {
			category, found = categoryByKey[strings.ToLower(primary.ConceptText)+"|"]
		}

		switch {
		case found && (category == model.CategoryBothAgree || category == model.CategoryConflictResolved):
			ann.State = model.StateConfirmed
			primary.State = model.StateConfirmed
			ann.AddLineage(model.NewStageEvent("reconciliation", "confirmed",
				"ruler and LLM agree on concept"))
		case found && (category == model.CategoryRulerOnly || category == model.CategoryLLMOnly):
			// Stays preliminary; resolution and matching confirm later.
		default:
			ann.State = model.StateRejected
			primary.State = model.StateRejected
			ann.AddLineage(model.NewStageEvent("reconciliation", "rejected",
				"concept absent from reconciliation output"))
		}
	}
}
