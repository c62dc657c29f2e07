package ruler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/testutils"
)

func TestConfidenceByLabelShape(t *testing.T) {
	assert.Equal(t, 0.95, Confidence(folio.LabelPreferred, "breach of contract"))
	assert.Equal(t, 0.80, Confidence(folio.LabelPreferred, "court"))
	assert.Equal(t, 0.65, Confidence(folio.LabelAlternative, "contractual breach"))
	assert.Equal(t, 0.35, Confidence(folio.LabelAlternative, "tribunal"))
}

func TestFindMatchesLabelsAndOffsets(t *testing.T) {
	r := New(testutils.TestOntology(t))
	text := "The tribunal found a breach of contract under the lease agreement."

	matches := r.FindMatches(text)
	byIRI := make(map[string]Match)
	for _, m := range matches {
		byIRI[m.IRI] = m
		assert.Equal(t, m.Text, text[m.Start:m.End])
	}

	breach, ok := byIRI[testutils.BreachIRI]
	require.True(t, ok)
	assert.Equal(t, "breach of contract", breach.Text)
	assert.Equal(t, folio.LabelPreferred, breach.LabelType)
	assert.Equal(t, 0.95, breach.Confidence)

	court, ok := byIRI[testutils.CourtIRI]
	require.True(t, ok)
	assert.Equal(t, "tribunal", court.Text)
	assert.Equal(t, folio.LabelAlternative, court.LabelType)
	assert.Equal(t, 0.35, court.Confidence)

	lease, ok := byIRI[testutils.LeaseIRI]
	require.True(t, ok)
	assert.Equal(t, 0.95, lease.Confidence)
}

func TestFindConceptsDeduplicatesByText(t *testing.T) {
	r := New(testutils.TestOntology(t))
	text := "The lease agreement amends the prior lease agreement."

	concepts := r.FindConcepts(text)
	require.Len(t, concepts, 1)
	assert.Equal(t, "lease agreement", concepts[0].ConceptText)
	assert.Equal(t, model.SourceEntityRuler, concepts[0].Source)
	assert.Equal(t, model.StatePreliminary, concepts[0].State)
}

func TestShortAndStopwordLabelsSkipped(t *testing.T) {
	r := New(testutils.TestOntology(t))
	// Every fixture label is at least 5 chars; the pattern count must match
	// the usable labels exactly (6 preferred + 2 alternative).
	assert.Equal(t, 8, r.PatternCount())
}
