package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchWordBoundaries(t *testing.T) {
	m := NewMatcher()
	m.AddPattern("contract", "iri-1")

	// "contractual" must not produce a hit for "contract".
	matches := m.Search("The contractual duty arose from the contract itself.")
	require.Len(t, matches, 1)
	assert.Equal(t, "contract", matches[0].Pattern)
	assert.Equal(t, "iri-1", matches[0].Value)
	assert.Equal(t, 36, matches[0].Start)
	assert.Equal(t, 44, matches[0].End)
}

func TestSearchCaseInsensitive(t *testing.T) {
	m := NewMatcher()
	m.AddPattern("Breach of Contract", 1)

	matches := m.Search("Count I: BREACH OF CONTRACT.")
	require.Len(t, matches, 1)
	assert.Equal(t, "breach of contract", matches[0].Pattern)
	assert.Equal(t, 9, matches[0].Start)
	assert.Equal(t, 27, matches[0].End)
}

func TestSearchContainedSpansBothSurvive(t *testing.T) {
	m := NewMatcher()
	m.AddPattern("breach", nil)
	m.AddPattern("breach of contract", nil)

	matches := m.Search("alleging breach of contract by the seller")
	require.Len(t, matches, 2)
	// Sorted by start, longer first on ties.
	assert.Equal(t, "breach of contract", matches[0].Pattern)
	assert.Equal(t, "breach", matches[1].Pattern)
	assert.Equal(t, matches[0].Start, matches[1].Start)
}

func TestResolveOverlapsPartialLongerWins(t *testing.T) {
	matches := []Match{
		{Pattern: "security interest", Start: 10, End: 27},
		{Pattern: "interest rate", Start: 19, End: 32},
	}
	resolved := ResolveOverlaps(matches)
	require.Len(t, resolved, 1)
	assert.Equal(t, "security interest", resolved[0].Pattern)
}

func TestResolveOverlapsIdenticalKeepsFirst(t *testing.T) {
	matches := []Match{
		{Pattern: "lease", Start: 5, End: 10, Value: "first"},
		{Pattern: "lease", Start: 5, End: 10, Value: "second"},
	}
	resolved := ResolveOverlaps(matches)
	require.Len(t, resolved, 1)
	assert.Equal(t, "first", resolved[0].Value)
}

func TestAddPatternDeduplicates(t *testing.T) {
	m := NewMatcher()
	m.AddPattern("Tort", "a")
	m.AddPattern("tort", "b")
	assert.Equal(t, 1, m.PatternCount())
	assert.True(t, m.HasPattern("TORT"))

	matches := m.Search("a tort claim")
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Value, "re-adding replaces metadata")
}
