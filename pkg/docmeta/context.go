package docmeta

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
)

// Entity groups, in prompt order.
var entityGroups = []string{
	"Persons", "Organizations", "Courts", "Dates",
	"Addresses", "Monetary", "Citations", "Named Entities",
}

// classGroupMap folds individual class labels into prompt groups.
var classGroupMap = map[string]string{
	"Person":            "Persons",
	"Organization":      "Organizations",
	"Court":             "Courts",
	"Date":              "Dates",
	"Address":           "Addresses",
	"Monetary Amount":   "Monetary",
	"Caselaw":           "Citations",
	"Statute":           "Citations",
	"Legal Citation":    "Citations",
	"Legal Scholarship": "Citations",
}

const lowConfidenceThreshold = 0.75

// BuildContext renders the accumulated pipeline output into the text block
// the field extractor prompt consumes.
func BuildContext(job *model.Job, sentences *normalize.SentenceIndex) string {
	var lines []string
	meta := &job.Result.Metadata

	grouped := groupIndividuals(job.Result.Individuals)
	if len(grouped) > 0 {
		lines = append(lines, "NAMED ENTITIES:")
		for _, group := range entityGroups {
			if names := grouped[group]; len(names) > 0 {
				lines = append(lines, "  "+group+": "+strings.Join(names, ", "))
			}
		}
	}

	if lowConf := lowConfidenceIndividuals(job.Result.Individuals, sentences); len(lowConf) > 0 {
		lines = append(lines, "", "LOW-CONFIDENCE ENTITIES (need disambiguation):")
		lines = append(lines, lowConf...)
	}

	if len(meta.SPOTriples) > 0 {
		lines = append(lines, "", "RELATIONSHIPS:")
		triples := meta.SPOTriples
		if len(triples) > 30 {
			triples = triples[:30]
		}
		for _, t := range triples {
			lines = append(lines, fmt.Sprintf("  %s %s %s", t.Subject, t.Verb, t.Object))
		}
	}

	if top := topConcepts(meta.ResolvedConcepts); len(top) > 0 {
		lines = append(lines, "", fmt.Sprintf("LEGAL CONCEPTS (top %d):", len(top)))
		lines = append(lines, "  "+strings.Join(top, ", "))
	}

	if lowConcepts := lowConfidenceConcepts(meta.ResolvedConcepts, sentences); len(lowConcepts) > 0 {
		lines = append(lines, "", "LOW-CONFIDENCE CONCEPTS (need disambiguation):")
		lines = append(lines, lowConcepts...)
	}

	if len(meta.AreasOfLaw) > 0 {
		lines = append(lines, "", "AREAS OF LAW:")
		for _, a := range meta.AreasOfLaw {
			lines = append(lines, fmt.Sprintf("  %s (%.0f%%)", a.Area, a.Confidence*100))
		}
	}

	if len(job.Result.Properties) > 0 {
		lines = append(lines, "", "PROPERTIES/RELATIONS FOUND:")
		props := job.Result.Properties
		if len(props) > 20 {
			props = props[:20]
		}
		for _, p := range props {
			label := p.FolioLabel
			if label == "" {
				label = p.PropertyText
			}
			lines = append(lines, "  "+label)
		}
	}

	fullText := ""
	if job.Result.CanonicalText != nil {
		fullText = job.Result.CanonicalText.FullText
	}
	if fullText != "" {
		header := fullText
		if len(header) > 1000 {
			header = header[:1000]
		}
		lines = append(lines, "", "DOCUMENT HEADER (first ~1000 chars):", header)

		if len(fullText) > 1500 {
			lines = append(lines, "", "SIGNATURE BLOCK (last ~500 chars):", fullText[len(fullText)-500:])
		}
	}

	return strings.Join(lines, "\n")
}

// groupIndividuals buckets names by class link group, citation individuals
// falling into Citations regardless of links.
func groupIndividuals(individuals []*model.Individual) map[string][]string {
	grouped := make(map[string][]string)
	seen := make(map[string]bool)

	for _, ind := range individuals {
		group := "Named Entities"
		if ind.IndividualType == model.IndividualLegalCitation {
			group = "Citations"
		} else {
			for _, link := range ind.ClassLinks {
				if g, ok := classGroupMap[link.FolioLabel]; ok {
					group = g
					break
				}
			}
		}
		key := group + "|" + strings.ToLower(ind.Name)
		if !seen[key] {
			seen[key] = true
			grouped[group] = append(grouped[group], ind.Name)
		}
	}
	return grouped
}

func lowConfidenceIndividuals(individuals []*model.Individual, sentences *normalize.SentenceIndex) []string {
	var lines []string
	for _, ind := range individuals {
		if ind.Confidence >= lowConfidenceThreshold {
			continue
		}
		sentence := ""
		if sentences != nil {
			sentence = sentences.SentenceAt(ind.Span.Start)
		}
		line := fmt.Sprintf("  %q (%s, %.2f)", ind.Name, ind.IndividualType, ind.Confidence)
		if sentence != "" {
			line += fmt.Sprintf(" in sentence: %q", sentence)
		}
		lines = append(lines, line)
	}
	return lines
}

// topConcepts returns up to 20 distinct high-confidence concept labels.
func topConcepts(resolved []model.ResolvedConcept) []string {
	sorted := make([]model.ResolvedConcept, len(resolved))
	copy(sorted, resolved)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	seen := make(map[string]bool)
	var out []string
	for _, c := range sorted {
		if c.Confidence < 0.80 {
			break
		}
		label := c.Label
		if label == "" {
			label = c.ConceptText
		}
		if seen[strings.ToLower(label)] {
			continue
		}
		seen[strings.ToLower(label)] = true
		out = append(out, label)
		if len(out) == 20 {
			break
		}
	}
	return out
}

func lowConfidenceConcepts(resolved []model.ResolvedConcept, sentences *normalize.SentenceIndex) []string {
	var lines []string
	for _, c := range resolved {
		if c.Confidence >= lowConfidenceThreshold {
			continue
		}
		label := c.Label
		if label == "" {
			label = c.ConceptText
		}
		line := fmt.Sprintf("  %q (%.2f)", label, c.Confidence)
		if sentence := findSentence(sentences, c.ConceptText); sentence != "" {
			line += fmt.Sprintf(" in sentence: %q", sentence)
		}
		lines = append(lines, line)
	}
	return lines
}

// findSentence locates the first sentence mentioning the concept text.
func findSentence(sentences *normalize.SentenceIndex, conceptText string) string {
	if sentences == nil || conceptText == "" {
		return ""
	}
	needle := strings.ToLower(conceptText)
	for _, span := range sentences.Spans() {
		if strings.Contains(strings.ToLower(span.Text), needle) {
			return span.Text
		}
	}
	return ""
}
