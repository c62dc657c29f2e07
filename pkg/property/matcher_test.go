package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/testutils"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	return NewMatcher(testutils.TestOntology(t), config.Default().Pipeline)
}

func TestMatchPreferredLabel(t *testing.T) {
	pm := newTestMatcher(t)
	// "breaches (contract)" cleans to "breaches".
	text := "The tenant breaches the covenant of quiet enjoyment."

	props := Deduplicate(pm.Match(text))
	require.Len(t, props, 1)
	assert.Equal(t, "breaches", props[0].PropertyText)
	assert.Equal(t, folio.LabelPreferred, props[0].MatchType)
	assert.Equal(t, 0.85, props[0].Confidence)
	assert.Equal(t, SourceAhoCorasick, props[0].Source)
	assert.Equal(t, text[props[0].Span.Start:props[0].Span.End], props[0].PropertyText)
}

func TestMatchAlternativeLabel(t *testing.T) {
	pm := newTestMatcher(t)
	props := pm.Match("Defendant violates the lease agreement.")
	require.Len(t, props, 1)
	assert.Equal(t, "violates", props[0].PropertyText)
	assert.Equal(t, 0.75, props[0].Confidence)
}

func TestMatchLemmaVariant(t *testing.T) {
	pm := newTestMatcher(t)
	// "files" lemma-inflects to "filed".
	props := pm.Match("Plaintiff filed the complaint on Monday.")
	require.Len(t, props, 1)
	assert.Equal(t, "filed", props[0].PropertyText)
	assert.Equal(t, folio.LabelLemma, props[0].MatchType)
	assert.Equal(t, 0.72, props[0].Confidence)
}

func TestLemmaVariants(t *testing.T) {
	assert.ElementsMatch(t, []string{"leases", "leased", "leasing"}, lemmaVariants("lease"))
	assert.ElementsMatch(t, []string{"certifies", "certified", "certifying"}, lemmaVariants("certify"))
	assert.ElementsMatch(t, []string{"grants", "granted", "granting"}, lemmaVariants("grant"))
	assert.Empty(t, lemmaVariants("enters into"), "multi-word labels are not inflected")
}

func TestDeduplicateIdenticalSpanKeepsHigherConfidence(t *testing.T) {
	span := model.Span{Start: 10, End: 18, Text: "breaches"}
	low := &model.PropertyAnnotation{ID: "a", PropertyText: "breaches", Span: span, Confidence: 0.72}
	high := &model.PropertyAnnotation{ID: "b", PropertyText: "breaches", Span: span, Confidence: 0.85}

	out := Deduplicate([]*model.PropertyAnnotation{low, high})
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestDeduplicatePartialOverlapLongerWins(t *testing.T) {
	long := &model.PropertyAnnotation{
		ID: "long", PropertyText: "enters into",
		Span: model.Span{Start: 10, End: 21}, Confidence: 0.85,
	}
	short := &model.PropertyAnnotation{
		ID: "short", PropertyText: "into force",
		Span: model.Span{Start: 17, End: 27}, Confidence: 0.90,
	}

	out := Deduplicate([]*model.PropertyAnnotation{short, long})
	require.Len(t, out, 1)
	assert.Equal(t, "long", out[0].ID)
}
