package individual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

func ind(name, source string, start, end int) *model.Individual {
	i := model.NewIndividual(name, name, model.IndividualNamedEntity, model.Span{
		Start: start, End: end, Text: name,
	})
	i.Source = source
	i.Confidence = 0.8
	return i
}

func TestDeduplicateOverlapHigherPriorityWins(t *testing.T) {
	eyecite := ind("550 U.S. 544", model.IndSourceEyecite, 100, 112)
	eyecite.IndividualType = model.IndividualLegalCitation
	eyecite.URL = "https://example.org/550us544"
	regex := ind("550 U.S. 544 (2007)", model.IndSourceRegex, 100, 119)

	out := Deduplicate([]*model.Individual{regex, eyecite})

	require.Len(t, out, 1)
	assert.Equal(t, model.IndSourceHybrid, out[0].Source)
	assert.Equal(t, "550 U.S. 544", out[0].Name)
	assert.Equal(t, "https://example.org/550us544", out[0].URL)
	assert.NotEmpty(t, out[0].Lineage)
}

func TestDeduplicateSubstringNamesMerge(t *testing.T) {
	full := ind("John Smith", model.IndSourceSpacyNER, 10, 20)
	partial := ind("Smith", model.IndSourceLLM, 200, 205)

	out := Deduplicate([]*model.Individual{full, partial})

	require.Len(t, out, 1)
	assert.Equal(t, "John Smith", out[0].Name)
	assert.Equal(t, model.IndSourceHybrid, out[0].Source)
}

func TestDeduplicateDistinctEntitiesSurvive(t *testing.T) {
	a := ind("Acme Corp", model.IndSourceSpacyNER, 10, 19)
	b := ind("Beta LLC", model.IndSourceSpacyNER, 40, 48)

	out := Deduplicate([]*model.Individual{a, b})
	assert.Len(t, out, 2)
}

func TestDeduplicateMergesClassLinks(t *testing.T) {
	winner := ind("Delaware", model.IndSourceRegex, 5, 13)
	winner.ClassLinks = []model.ClassLink{{FolioLabel: "Location", Relationship: "instance_of"}}
	loser := ind("Delaware", model.IndSourceLLM, 5, 13)
	loser.ClassLinks = []model.ClassLink{
		{FolioLabel: "Location", Relationship: "instance_of"}, // duplicate
		{FolioLabel: "U.S. State", Relationship: "instance_of"},
	}
	loser.NormalizedForm = "State of Delaware"

	out := Deduplicate([]*model.Individual{winner, loser})

	require.Len(t, out, 1)
	assert.Len(t, out[0].ClassLinks, 2)
	assert.Equal(t, "State of Delaware", out[0].NormalizedForm)
}

func TestDeduplicateSamePrioritySourceStaysPure(t *testing.T) {
	a := ind("Jane Doe", model.IndSourceSpacyNER, 10, 18)
	b := ind("Jane Doe", model.IndSourceSpacyNER, 90, 98)

	out := Deduplicate([]*model.Individual{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, model.IndSourceSpacyNER, out[0].Source, "same source never flips to hybrid")
}
