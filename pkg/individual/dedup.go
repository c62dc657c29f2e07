package individual

import (
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// Dedup priority by source. Library citations beat patterns, patterns beat
// statistical NER, NER beats LLM finds.
var sourcePriority = map[string]int{
	model.IndSourceEyecite:  100,
	model.IndSourceCiteURL:  95,
	model.IndSourceRegex:    80,
	model.IndSourceSpacyNER: 70,
	model.IndSourceLLM:      50,
}

func priority(source string) int {
	return sourcePriority[source]
}

// Deduplicate merges overlapping or same-named individuals, the higher
// priority source winning. The loser's class links, URL, and normalized
// form fold into the winner; differing sources mark the winner hybrid.
func Deduplicate(individuals []*model.Individual) []*model.Individual {
	if len(individuals) == 0 {
		return nil
	}

	sorted := make([]*model.Individual, len(individuals))
	copy(sorted, individuals)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := priority(sorted[i].Source), priority(sorted[j].Source)
		if pi != pj {
			return pi > pj
		}
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	var kept []*model.Individual
	for _, ind := range sorted {
		var winner *model.Individual
		for _, existing := range kept {
			if ind.Span.Overlaps(existing.Span) || namesMatch(ind, existing) {
				winner = existing
				break
			}
		}
		if winner == nil {
			kept = append(kept, ind)
			continue
		}

		winner.ClassLinks = mergeClassLinks(winner.ClassLinks, ind.ClassLinks)
		if ind.URL != "" && winner.URL == "" {
			winner.URL = ind.URL
		}
		if ind.NormalizedForm != "" && winner.NormalizedForm == "" {
			winner.NormalizedForm = ind.NormalizedForm
		}
		if ind.Source != winner.Source {
			winner.Source = model.IndSourceHybrid
		}
		winner.Lineage = append(winner.Lineage,
			model.NewStageEvent("individual_extraction", "merged",
				"merged with "+ind.Source+" match: "+ind.Name).WithConfidence(winner.Confidence))
	}

	logger.GetLogger().Info("individual deduplication complete",
		"input", len(individuals), "unique", len(kept))
	return kept
}

// namesMatch reports whether two individuals plausibly name the same
// entity: exact, substring ("Smith" inside "John Smith"), or identical
// mention text.
func namesMatch(a, b *model.Individual) bool {
	an := strings.ToLower(strings.TrimSpace(a.Name))
	bn := strings.ToLower(strings.TrimSpace(b.Name))
	if an == bn {
		return true
	}
	if an != "" && bn != "" && (strings.Contains(bn, an) || strings.Contains(an, bn)) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(a.MentionText), strings.TrimSpace(b.MentionText))
}

func mergeClassLinks(winner, loser []model.ClassLink) []model.ClassLink {
	type linkKey struct {
		annotationID string
		label        string
		iri          string
	}
	existing := make(map[linkKey]bool, len(winner))
	for _, l := range winner {
		existing[linkKey{l.AnnotationID, l.FolioLabel, l.FolioIRI}] = true
	}
	for _, l := range loser {
		key := linkKey{l.AnnotationID, l.FolioLabel, l.FolioIRI}
		if !existing[key] {
			winner = append(winner, l)
			existing[key] = true
		}
	}
	return winner
}
