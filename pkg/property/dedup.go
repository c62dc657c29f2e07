package property

import (
	"sort"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// Deduplicate merges overlapping property spans. Longer matches win over
// shorter partial overlaps; identical spans keep the higher confidence;
// contained spans survive side by side.
func Deduplicate(properties []*model.PropertyAnnotation) []*model.PropertyAnnotation {
	if len(properties) == 0 {
		return nil
	}

	sorted := make([]*model.PropertyAnnotation, len(properties))
	copy(sorted, properties)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Span, sorted[j].Span
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		li, lj := si.End-si.Start, sj.End-sj.Start
		if li != lj {
			return li > lj
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []*model.PropertyAnnotation
	for _, prop := range sorted {
		dominated := false
		for i, existing := range kept {
			if !prop.Span.Overlaps(existing.Span) {
				continue
			}

			if prop.Span.Start == existing.Span.Start && prop.Span.End == existing.Span.End {
				if prop.Confidence > existing.Confidence {
					kept[i] = prop
				}
				dominated = true
				break
			}

			// Containment either way keeps both.
			if contains(existing.Span, prop.Span) || contains(prop.Span, existing.Span) {
				continue
			}

			// Partial overlap: longer match wins.
			if length(prop.Span) > length(existing.Span) {
				existing.Lineage = append(existing.Lineage,
					model.NewStageEvent("property_extraction", "merged",
						"superseded by longer match: "+prop.PropertyText))
				kept[i] = prop
			}
			dominated = true
			break
		}
		if !dominated {
			kept = append(kept, prop)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Span.Start != kept[j].Span.Start {
			return kept[i].Span.Start < kept[j].Span.Start
		}
		return length(kept[i].Span) > length(kept[j].Span)
	})

	logger.GetLogger().Info("property deduplication complete",
		"input", len(properties), "unique", len(kept))
	return kept
}

func contains(outer, inner model.Span) bool {
	return inner.Start >= outer.Start && inner.End <= outer.End
}

func length(s model.Span) int {
	return s.End - s.Start
}
