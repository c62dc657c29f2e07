// Package individual extracts named instances of ontology classes from
// legal text: citations, structured entities, NER hits, and LLM finds,
// merged by source priority.
package individual

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// Citation shape names follow the common caselaw taxonomy so the class
// label mapping below stays readable.
const (
	citeFullCase    = "FullCaseCitation"
	citeShortCase   = "ShortCaseCitation"
	citeFullLaw     = "FullLawCitation"
	citeFullJournal = "FullJournalCitation"
	citeSupra       = "SupraCitation"
	citeID          = "IdCitation"
	citeUnknown     = "UnknownCitation"
)

// citationTypeLabels maps a citation shape to its ontology class label.
var citationTypeLabels = map[string]string{
	citeFullCase:    "Caselaw",
	citeShortCase:   "Caselaw",
	citeFullLaw:     "Statute",
	citeFullJournal: "Legal Scholarship",
	citeSupra:       "Caselaw",
	citeID:          "Caselaw",
	citeUnknown:     "Legal Citation",
}

const (
	citationConfidence   = 0.92
	additionalConfidence = 0.90
)

// Federal and regional reporter abbreviations recognized in case citations.
const reporters = `U\.S\.|S\.\s?Ct\.|L\.\s?Ed\.(?:\s?2d)?|F\.(?:2d|3d|4th)?|F\.\s?Supp\.(?:\s?2d|\s?3d)?|F\.R\.D\.|B\.R\.|` +
	`N\.E\.(?:2d|3d)?|N\.W\.(?:2d)?|S\.E\.(?:2d)?|S\.W\.(?:2d|3d)?|So\.(?:\s?2d|\s?3d)?|P\.(?:2d|3d)?|A\.(?:2d|3d)?|` +
	`Cal\.\s?(?:App\.\s?)?(?:2d|3d|4th|5th)?|N\.Y\.(?:S\.)?(?:2d|3d)?|Wn\.(?:2d)?|Ill\.(?:2d)?`

type citationPattern struct {
	citeType string
	re       *regexp.Regexp
}

// Patterns run in order; earlier matches claim their spans, so the specific
// shapes come before the short forms.
var citationPatterns = []citationPattern{
	{
		// Smith v. Jones, 123 U.S. 456, 460 (1987). The party caption is
		// optional so bare reporter cites still match.
		citeType: citeFullCase,
		re: regexp.MustCompile(
			`(?:[A-Z][\w.&'-]*(?:\s+[\w.&'-]+){0,6}\s+v\.?\s+[A-Z][\w.&'-]*(?:\s+[\w.&'-]+){0,6},?\s+)?` +
				`\b\d{1,3}\s+(?:` + reporters + `)\s+\d{1,5}(?:,\s*\d{1,5})?(?:\s+\((?:[\w.\s]+\s)?\d{4}\))?`),
	},
	{
		// 42 U.S.C. § 1983, 17 C.F.R. § 240.10b-5, Pub. L. No. 116-136.
		citeType: citeFullLaw,
		re: regexp.MustCompile(
			`\b\d{1,3}\s+(?:U\.S\.C\.(?:A\.)?|C\.F\.R\.)\s*(?:§§?\s*[\d\w.()-]+(?:\s*(?:et\s+seq\.|and\s+[\d\w.()-]+))?)?|` +
				`\bPub\.\s?L\.\s?(?:No\.\s?)?\d{1,3}-\d{1,4}|` +
				`\b\d{1,3}\s+Stat\.\s+\d{1,5}`),
	},
	{
		// 113 Harv. L. Rev. 1745 and similar law review cites.
		citeType: citeFullJournal,
		re: regexp.MustCompile(
			`\b\d{1,3}\s+[A-Z][\w.]*(?:\s+[A-Z][\w.]*)?\s+L\.\s?(?:Rev\.|J\.)\s+\d{1,5}(?:\s+\(\d{4}\))?`),
	},
	{
		// Smith, supra note 12, at 480.
		citeType: citeSupra,
		re:       regexp.MustCompile(`\b[A-Z][\w.'-]+,?\s+supra(?:\s+note\s+\d+)?(?:,?\s+at\s+\d{1,5})?`),
	},
	{
		// Id. at 480.
		citeType: citeID,
		re:       regexp.MustCompile(`\bId\.(?:\s+at\s+\d{1,5})?`),
	},
	{
		// 123 U.S. at 460, a short form referring back to a full cite.
		citeType: citeShortCase,
		re:       regexp.MustCompile(`\b\d{1,3}\s+(?:` + reporters + `)\s+at\s+\d{1,5}`),
	},
}

// CitationExtractor finds legal citations by shape and decorates statutes
// and regulations with canonical URLs.
type CitationExtractor struct{}

// NewCitationExtractor builds the extractor.
func NewCitationExtractor() *CitationExtractor {
	return &CitationExtractor{}
}

// Extract scans the full text. Earlier pattern matches claim their spans so
// an Id. inside a full citation never surfaces twice.
func (e *CitationExtractor) Extract(text string) []*model.Individual {
	var out []*model.Individual
	var claimed []model.Span

	for _, p := range citationPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			span := model.Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}
			if overlapsAny(span, claimed) {
				continue
			}
			claimed = append(claimed, span)

			matched := strings.TrimSpace(span.Text)
			label := citationTypeLabels[p.citeType]
			ind := model.NewIndividual(matched, span.Text, model.IndividualLegalCitation, span)
			ind.Confidence = citationConfidence
			ind.Source = model.IndSourceEyecite
			ind.ClassLinks = []model.ClassLink{{
				FolioLabel:   label,
				Relationship: "instance_of",
				Confidence:   citationConfidence,
			}}
			ind.Lineage = []model.StageEvent{
				model.NewStageEvent("individual_extraction", "created",
					"citation shape: "+p.citeType).WithConfidence(citationConfidence),
			}
			out = append(out, ind)
		}
	}

	e.normalize(text, &out, claimed)

	logger.GetLogger().Info("citation extraction complete", "citations", len(out))
	return out
}

var (
	uscRef     = regexp.MustCompile(`\b(\d{1,3})\s+U\.S\.C\.(?:A\.)?\s*§§?\s*([\d\w.-]+)`)
	cfrRef     = regexp.MustCompile(`\b(\d{1,3})\s+C\.F\.R\.\s*§§?\s*([\d\w.-]+)`)
	namedAct   = regexp.MustCompile(`\bSection\s+\d+[\w.()]*\s+of\s+the\s+[A-Z][\w]*(?:\s+[A-Z][\w]*){0,6}\s+Act(?:\s+of\s+\d{4})?`)
	whitespace = regexp.MustCompile(`\s+`)
)

// normalize attaches canonical URLs and normalized forms to statute cites,
// then sweeps for named-act references the shape patterns missed.
func (e *CitationExtractor) normalize(text string, individuals *[]*model.Individual, claimed []model.Span) {
	for _, ind := range *individuals {
		if url := statuteURL(ind.MentionText); url != "" {
			ind.URL = url
		}
		if norm := whitespace.ReplaceAllString(strings.TrimSpace(ind.MentionText), " "); norm != ind.MentionText {
			ind.NormalizedForm = norm
		}
	}

	for _, loc := range namedAct.FindAllStringIndex(text, -1) {
		span := model.Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}
		if overlapsAny(span, claimed) {
			continue
		}
		claimed = append(claimed, span)

		ind := model.NewIndividual(strings.TrimSpace(span.Text), span.Text, model.IndividualLegalCitation, span)
		ind.Confidence = additionalConfidence
		ind.Source = model.IndSourceCiteURL
		ind.ClassLinks = []model.ClassLink{{
			FolioLabel:   "Statute",
			Relationship: "instance_of",
			Confidence:   additionalConfidence,
		}}
		ind.Lineage = []model.StageEvent{
			model.NewStageEvent("individual_extraction", "created",
				"named act reference").WithConfidence(additionalConfidence),
		}
		*individuals = append(*individuals, ind)
	}
}

// statuteURL builds a Cornell LII link for U.S.C. and C.F.R. references.
func statuteURL(mention string) string {
	if m := uscRef.FindStringSubmatch(mention); m != nil {
		return fmt.Sprintf("https://www.law.cornell.edu/uscode/text/%s/%s", m[1], m[2])
	}
	if m := cfrRef.FindStringSubmatch(mention); m != nil {
		return fmt.Sprintf("https://www.law.cornell.edu/cfr/text/%s/%s", m[1], m[2])
	}
	return ""
}

func overlapsAny(span model.Span, claimed []model.Span) bool {
	for _, c := range claimed {
		if span.Overlaps(c) {
			return true
		}
	}
	return false
}
