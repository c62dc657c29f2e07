package concept

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

func cm(text string, confidence float64, source string) model.ConceptMatch {
	return model.ConceptMatch{ConceptText: text, Confidence: confidence, Source: source}
}

func TestReconcileAgreementBoostsConfidence(t *testing.T) {
	r := NewReconciler(0.60, nil)

	results := r.Reconcile(context.Background(),
		[]model.ConceptMatch{cm("breach of contract", 0.95, model.SourceEntityRuler)},
		[]model.ConceptMatch{cm("Breach of Contract", 0.80, model.SourceLLM)})

	require.Len(t, results, 1)
	assert.Equal(t, model.CategoryBothAgree, results[0].Category)
	assert.Equal(t, model.SourceReconciled, results[0].Concept.Source)
	// Diminishing boost on the higher side: 0.95 + 0.05*(1-0.95).
	assert.InDelta(t, 0.9525, results[0].Concept.Confidence, 1e-9)
}

func TestReconcileBoostNeverExceedsOne(t *testing.T) {
	r := NewReconciler(0.60, nil)
	results := r.Reconcile(context.Background(),
		[]model.ConceptMatch{cm("easement", 1.0, model.SourceEntityRuler)},
		[]model.ConceptMatch{cm("easement", 0.9, model.SourceLLM)})
	require.Len(t, results, 1)
	assert.LessOrEqual(t, results[0].Concept.Confidence, 1.0)
}

func TestReconcileRulerOnlyFloor(t *testing.T) {
	r := NewReconciler(0.60, nil)

	results := r.Reconcile(context.Background(),
		[]model.ConceptMatch{
			cm("grant", 0.35, model.SourceEntityRuler),
			cm("court", 0.80, model.SourceEntityRuler),
		},
		nil)

	require.Len(t, results, 1)
	assert.Equal(t, "court", results[0].Concept.ConceptText)
	assert.Equal(t, model.CategoryRulerOnly, results[0].Category)
}

func TestReconcileLLMOnlyAlwaysKept(t *testing.T) {
	r := NewReconciler(0.60, nil)

	results := r.Reconcile(context.Background(), nil,
		[]model.ConceptMatch{cm("adverse possession", 0.40, model.SourceLLM)})

	require.Len(t, results, 1)
	assert.Equal(t, model.CategoryLLMOnly, results[0].Category)
	assert.Equal(t, model.SourceLLM, results[0].Concept.Source)
	assert.Equal(t, 0.40, results[0].Concept.Confidence)
}

func TestReconcileAgreementPrefersSideWithIRI(t *testing.T) {
	r := NewReconciler(0.60, nil)

	ruler := cm("lease", 0.80, model.SourceEntityRuler)
	ruler.FolioIRI = "https://example.org/lease"
	llm := cm("lease", 0.70, model.SourceLLM)

	results := r.Reconcile(context.Background(),
		[]model.ConceptMatch{ruler}, []model.ConceptMatch{llm})

	require.Len(t, results, 1)
	assert.Equal(t, "https://example.org/lease", results[0].Concept.FolioIRI)
}

type stubSimilarity struct {
	scores []float64
}

func (s *stubSimilarity) SimilarityBatch(ctx context.Context, pairs [][2]string) ([]float64, error) {
	out := make([]float64, len(pairs))
	copy(out, s.scores)
	return out, nil
}

func (s *stubSimilarity) IndexSize() int { return 100 }

func TestReconcileIRIConflictEmbeddingTriage(t *testing.T) {
	// LLM side scores above the auto-resolve threshold and wins.
	r := NewReconciler(0.60, &stubSimilarity{scores: []float64{0.30, 0.92}})

	ruler := cm("security", 0.80, model.SourceEntityRuler)
	ruler.FolioIRI = "https://example.org/collateral"
	llm := cm("security", 0.75, model.SourceLLM)
	llm.FolioIRI = "https://example.org/instrument"

	results := r.Reconcile(context.Background(),
		[]model.ConceptMatch{ruler}, []model.ConceptMatch{llm})

	require.Len(t, results, 1)
	assert.Equal(t, model.CategoryConflictResolved, results[0].Category)
	assert.Equal(t, "https://example.org/instrument", results[0].Concept.FolioIRI)
	// Similarity above the concept's own confidence replaces it.
	assert.Equal(t, 0.92, results[0].Concept.Confidence)
}

func TestReconcileIRIConflictKeepsBothWithoutSignal(t *testing.T) {
	r := NewReconciler(0.60, &stubSimilarity{scores: []float64{0.10, 0.20}})

	ruler := cm("security", 0.80, model.SourceEntityRuler)
	ruler.FolioIRI = "https://example.org/collateral"
	llm := cm("security", 0.75, model.SourceLLM)
	llm.FolioIRI = "https://example.org/instrument"

	results := r.Reconcile(context.Background(),
		[]model.ConceptMatch{ruler}, []model.ConceptMatch{llm})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, model.CategoryConflictResolved, res.Category)
	}
}

func TestSyncAnnotations(t *testing.T) {
	agree := model.NewAnnotation(
		model.Span{Start: 0, End: 6, Text: "breach"},
		model.ConceptMatch{ConceptText: "breach", State: model.StatePreliminary})
	rulerOnly := model.NewAnnotation(
		model.Span{Start: 10, End: 15, Text: "court"},
		model.ConceptMatch{ConceptText: "court", State: model.StatePreliminary})
	absent := model.NewAnnotation(
		model.Span{Start: 20, End: 25, Text: "grant"},
		model.ConceptMatch{ConceptText: "grant", State: model.StatePreliminary})
	for _, ann := range []*model.Annotation{agree, rulerOnly, absent} {
		ann.State = model.StatePreliminary
	}

	SyncAnnotations([]*model.Annotation{agree, rulerOnly, absent}, []model.ReconciledConcept{
		{Concept: cm("breach", 0.9, model.SourceReconciled), Category: model.CategoryBothAgree},
		{Concept: cm("court", 0.8, model.SourceEntityRuler), Category: model.CategoryRulerOnly},
	})

	assert.Equal(t, model.StateConfirmed, agree.State)
	assert.Equal(t, model.StatePreliminary, rulerOnly.State)
	assert.Equal(t, model.StateRejected, absent.State)
	assert.NotEmpty(t, agree.Lineage)
	assert.NotEmpty(t, absent.Lineage)
}
