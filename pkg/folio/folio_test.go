package folio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/testutils"
)

func TestIRIHash(t *testing.T) {
	assert.Equal(t, "R7L3xlqLLvIHv8NiBvBzJWg", folio.IRIHash(testutils.BreachIRI))
	assert.Equal(t, "plain", folio.IRIHash("plain"))
}

func TestBranchAssignment(t *testing.T) {
	onto := testutils.TestOntology(t)
	assert.Equal(t, "Area of Law", onto.BranchFor(testutils.BreachIRI))
	assert.Equal(t, "Governmental Body", onto.BranchFor(testutils.CourtIRI))
	assert.ElementsMatch(t, []string{"Area of Law", "Governmental Body"}, onto.BranchNames())
}

func TestHierarchyPathRootFirst(t *testing.T) {
	onto := testutils.TestOntology(t)
	assert.Equal(t,
		[]string{"Area of Law", "Contract Law", "Breach of Contract"},
		onto.HierarchyPath(testutils.BreachIRI))
}

func TestRelevanceScoreExactLabel(t *testing.T) {
	score := folio.RelevanceScore(folio.ContentWords("breach of contract"),
		"breach of contract", "Breach of Contract", "", nil)
	assert.Equal(t, 99.0, score)
}

func TestMultiStrategySearchExactLabelWins(t *testing.T) {
	onto := testutils.TestOntology(t)

	hits := onto.MultiStrategySearch("breach of contract", "", 5, 30)
	require.NotEmpty(t, hits)
	assert.Equal(t, testutils.BreachIRI, hits[0].IRI)
	assert.Equal(t, 99.0, hits[0].Score)
	assert.Equal(t, "Area of Law", hits[0].Branch)
}

func TestMultiStrategySearchSynonym(t *testing.T) {
	onto := testutils.TestOntology(t)

	hits := onto.MultiStrategySearch("tribunal", "", 5, 30)
	require.NotEmpty(t, hits)
	assert.Equal(t, testutils.CourtIRI, hits[0].IRI)
}

func TestResolverDirectIRITrustsCallerConfidence(t *testing.T) {
	onto := testutils.TestOntology(t)
	r := folio.NewResolver(onto, 128, time.Minute, 30)

	resolved := r.Resolve("contractual breach", "", 0.82, model.SourceReconciled, testutils.BreachIRI)
	require.NotNil(t, resolved)
	assert.Equal(t, testutils.BreachIRI, resolved.IRI)
	assert.Equal(t, "Breach of Contract", resolved.Label)
	assert.Equal(t, 0.82, resolved.Confidence)
	assert.Equal(t, "Area of Law", resolved.Branch)
	assert.Equal(t, []string{"Area of Law", "Contract Law", "Breach of Contract"}, resolved.HierarchyPath)
	assert.Contains(t, resolved.Synonyms, "contractual breach")
}

func TestResolverSearchFallback(t *testing.T) {
	onto := testutils.TestOntology(t)
	r := folio.NewResolver(onto, 128, time.Minute, 30)

	resolved := r.Resolve("lease agreement", "", 0.5, model.SourceEntityRuler, "")
	require.NotNil(t, resolved)
	assert.Equal(t, testutils.LeaseIRI, resolved.IRI)
	// Exact-label search score 99 outranks the incoming confidence.
	assert.InDelta(t, 0.99, resolved.Confidence, 1e-9)
}

func TestResolverCachesPositiveAndNegative(t *testing.T) {
	onto := testutils.TestOntology(t)
	r := folio.NewResolver(onto, 128, time.Minute, 30)

	first := r.Resolve("lease agreement", "", 0.5, model.SourceEntityRuler, "")
	require.NotNil(t, first)
	assert.Equal(t, 1, r.CacheSize())

	second := r.Resolve("Lease Agreement", "", 0.9, model.SourceLLM, "")
	assert.Same(t, first, second, "case-insensitive repeat hits the cache")
	assert.Equal(t, 1, r.CacheSize())

	assert.Nil(t, r.Resolve("zzz unknown phrase", "", 0.5, model.SourceLLM, ""))
	assert.Equal(t, 2, r.CacheSize(), "negative lookups are cached too")
	assert.Nil(t, r.Resolve("zzz unknown phrase", "", 0.5, model.SourceLLM, ""))
	assert.Equal(t, 2, r.CacheSize())
}

func TestCandidatesForJudge(t *testing.T) {
	onto := testutils.TestOntology(t)
	r := folio.NewResolver(onto, 128, time.Minute, 30)

	candidates := r.Candidates("contract", "", 5)
	require.NotEmpty(t, candidates)
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		labels = append(labels, c.Label)
	}
	assert.Contains(t, labels, "Contract Law")
}
