package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/match"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
)

// Single-word labels suppressed when they collide with everyday English.
var matchStopwords = map[string]bool{
	"case": true, "form": true, "state": true, "right": true, "order": true,
	"party": true, "title": true, "trust": true, "will": true, "note": true,
	"notice": true, "action": true, "matter": true, "term": true, "rule": true,
}

// stringMatchStage re-scans the canonical text with every resolved concept
// label and reconciles the hits with the annotation list. Preliminary
// annotation ids survive the upgrade so the event stream emits updates
// rather than removals.
type stringMatchStage struct{}

func (s *stringMatchStage) Name() string { return "string_matching" }

func (s *stringMatchStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusMatching
	if job.Result.CanonicalText == nil {
		return nil
	}
	resolved := job.Result.Metadata.ResolvedConcepts
	if len(resolved) == 0 {
		return nil
	}
	fullText := job.Result.CanonicalText.FullText
	sentences := normalize.NewSentenceIndex(fullText)

	// text -> resolved concepts carrying it, for multi-branch
	// materialization at each matched span.
	matcher := match.NewMatcher()
	byText := make(map[string][]*model.ResolvedConcept)
	for i := range resolved {
		rc := &resolved[i]
		for _, label := range candidateLabels(rc) {
			key := strings.ToLower(label)
			if !safeLabel(key) {
				continue
			}
			byText[key] = append(byText[key], rc)
			if !matcher.HasPattern(key) {
				matcher.AddPattern(key, key)
			}
		}
	}
	matcher.Build()

	confirmed, created := 0, 0
	seen := make(map[string]bool)
	for _, m := range matcher.Search(fullText) {
		concepts := byText[m.Pattern]
		for idx, rc := range concepts {
			key := fmt.Sprintf("%d|%d|%s", m.Start, m.End, rc.IRI)
			if seen[key] {
				continue
			}
			seen[key] = true

			backups := backupConcepts(concepts, idx)
			span := model.Span{Start: m.Start, End: m.End, Text: fullText[m.Start:m.End]}

			if ann := findBySpanIRI(job.Result.Annotations, span, rc.IRI); ann != nil {
				upgrade(ann, rc, backups, sentences)
				confirmed++
				continue
			}
			if ann := findBySpanText(job.Result.Annotations, span, rc.ConceptText); ann != nil {
				upgrade(ann, rc, backups, sentences)
				confirmed++
				continue
			}

			span.SentenceText = sentences.SentenceAt(m.Start)
			ann := model.NewAnnotation(span, append([]model.ConceptMatch{matchedConcept(rc, model.StateConfirmed)}, backups...)...)
			ann.State = model.StateConfirmed
			ann.AddLineage(model.NewStageEvent(s.Name(), "created",
				fmt.Sprintf("label match for %q", rc.Label)).WithConfidence(rc.Confidence))
			job.Result.Annotations = append(job.Result.Annotations, ann)
			created++
		}
	}

	job.Result.Annotations = dedupeSameIRI(job.Result.Annotations)
	sort.SliceStable(job.Result.Annotations, func(i, j int) bool {
		return job.Result.Annotations[i].Span.Start < job.Result.Annotations[j].Span.Start
	})

	job.LogActivity(s.Name(), fmt.Sprintf("String matching confirmed %d and created %d annotations",
		confirmed, created))
	return nil
}

// candidateLabels lists every label a resolved concept can be found under.
func candidateLabels(rc *model.ResolvedConcept) []string {
	labels := []string{rc.ConceptText, rc.Label}
	labels = append(labels, rc.Synonyms...)
	labels = append(labels, rc.HiddenLabels...)
	return labels
}

// safeLabel admits labels long enough to be meaningful; single words must
// also clear the stop-word set.
func safeLabel(label string) bool {
	if len(label) <= 3 {
		return false
	}
	if !strings.Contains(label, " ") && matchStopwords[label] {
		return false
	}
	return true
}

func backupConcepts(concepts []*model.ResolvedConcept, skip int) []model.ConceptMatch {
	var backups []model.ConceptMatch
	for i, other := range concepts {
		if i == skip {
			continue
		}
		backups = append(backups, matchedConcept(other, model.StateBackup))
	}
	return backups
}

func findBySpanIRI(annotations []*model.Annotation, span model.Span, iri string) *model.Annotation {
	for _, ann := range annotations {
		primary := ann.Primary()
		if primary == nil {
			continue
		}
		if ann.Span.Start == span.Start && ann.Span.End == span.End && primary.FolioIRI == iri {
			return ann
		}
	}
	return nil
}

func findBySpanText(annotations []*model.Annotation, span model.Span, conceptText string) *model.Annotation {
	for _, ann := range annotations {
		primary := ann.Primary()
		if primary == nil {
			continue
		}
		if ann.Span.Start == span.Start && ann.Span.End == span.End &&
			strings.EqualFold(primary.ConceptText, conceptText) {
			return ann
		}
	}
	return nil
}

// upgrade replaces an annotation's concepts with the enriched resolution,
// confirms it, and keeps its id stable.
func upgrade(ann *model.Annotation, rc *model.ResolvedConcept, backups []model.ConceptMatch, sentences *normalize.SentenceIndex) {
	ann.Concepts = append([]model.ConceptMatch{matchedConcept(rc, model.StateConfirmed)}, backups...)
	ann.State = model.StateConfirmed
	if ann.Span.SentenceText == "" {
		ann.Span.SentenceText = sentences.SentenceAt(ann.Span.Start)
	}
	ann.AddLineage(model.NewStageEvent("string_matching", "confirmed",
		fmt.Sprintf("matched resolved label %q", rc.Label)).WithConfidence(rc.Confidence))
}

func matchedConcept(rc *model.ResolvedConcept, state string) model.ConceptMatch {
	var branches []string
	if rc.Branch != "" {
		branches = []string{rc.Branch}
	}
	return model.ConceptMatch{
		ConceptText:     rc.ConceptText,
		FolioIRI:        rc.IRI,
		FolioLabel:      rc.Label,
		FolioDefinition: rc.Definition,
		Branches:        branches,
		BranchColor:     rc.BranchColor,
		Confidence:      rc.Confidence,
		Source:          model.SourceMatched,
		MatchType:       rc.MatchType,
		State:           state,
		HierarchyPath:   rc.HierarchyPath,
		IRIHash:         rc.IRIHash,
		ChildrenCount:   rc.ChildrenCount,
		Translations:    rc.Translations,
		FolioExamples:   rc.Examples,
		FolioNotes:      rc.Notes,
		FolioSeeAlso:    rc.SeeAlso,
		FolioAltLabels:  rc.Synonyms,
	}
}

// dedupeSameIRI collapses overlapping annotations that share an IRI:
// identical spans merge into the first, partial overlaps keep the longer,
// contained spans both survive.
func dedupeSameIRI(annotations []*model.Annotation) []*model.Annotation {
	sort.SliceStable(annotations, func(i, j int) bool {
		if annotations[i].Span.Start != annotations[j].Span.Start {
			return annotations[i].Span.Start < annotations[j].Span.Start
		}
		return spanLen(annotations[i].Span) > spanLen(annotations[j].Span)
	})

	var kept []*model.Annotation
	for _, ann := range annotations {
		iri := ""
		if primary := ann.Primary(); primary != nil {
			iri = primary.FolioIRI
		}
		merged := false
		for _, k := range kept {
			kIRI := ""
			if primary := k.Primary(); primary != nil {
				kIRI = primary.FolioIRI
			}
			if iri == "" || kIRI != iri || !k.Span.Overlaps(ann.Span) {
				continue
			}
			identical := k.Span.Start == ann.Span.Start && k.Span.End == ann.Span.End
			containment := !identical &&
				((ann.Span.Start >= k.Span.Start && ann.Span.End <= k.Span.End) ||
					(k.Span.Start >= ann.Span.Start && k.Span.End <= ann.Span.End))
			if containment {
				continue
			}
			// Identical span or partial overlap: the longer annotation
			// survives and absorbs the other's lineage, first on tie.
			if spanLen(ann.Span) > spanLen(k.Span) {
				absorbedSpan := k.Span
				absorbedLineage := k.Lineage
				*k = *ann
				k.Lineage = append(k.Lineage, absorbedLineage...)
				k.AddLineage(model.NewStageEvent("string_matching", "dedup_merged",
					fmt.Sprintf("absorbed overlapping annotation at [%d,%d)", absorbedSpan.Start, absorbedSpan.End)))
			} else {
				k.Lineage = append(k.Lineage, ann.Lineage...)
				k.AddLineage(model.NewStageEvent("string_matching", "dedup_merged",
					fmt.Sprintf("absorbed overlapping annotation at [%d,%d)", ann.Span.Start, ann.Span.End)))
			}
			merged = true
			break
		}
		if !merged {
			kept = append(kept, ann)
		}
	}
	return kept
}

func spanLen(s model.Span) int { return s.End - s.Start }
