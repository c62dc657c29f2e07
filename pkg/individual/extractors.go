package individual

import (
	"regexp"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// SpanProducer is one entity extractor. Implementations are stateless and
// safe for concurrent use.
type SpanProducer interface {
	Name() string
	Extract(text string) []*model.Individual
}

// regexExtractor matches one entity family with a single pattern. The
// first capture group, when present, becomes the canonical name.
type regexExtractor struct {
	name       string
	folioLabel string
	source     string
	confidence float64
	minLen     int
	pattern    *regexp.Regexp
}

func (e *regexExtractor) Name() string { return e.name }

func (e *regexExtractor) Extract(text string) []*model.Individual {
	var out []*model.Individual
	for _, loc := range e.pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		matched := text[start:end]
		trimmed := strings.TrimSpace(matched)
		if len(trimmed) < e.minLen {
			continue
		}

		name := trimmed
		if len(loc) >= 4 && loc[2] >= 0 {
			name = strings.TrimSpace(text[loc[2]:loc[3]])
		}

		out = append(out, e.makeIndividual(name, matched, start, end))
	}
	return out
}

func (e *regexExtractor) makeIndividual(name, matched string, start, end int) *model.Individual {
	span := model.Span{Start: start, End: end, Text: matched}
	ind := model.NewIndividual(name, matched, model.IndividualNamedEntity, span)
	ind.Confidence = e.confidence
	ind.Source = e.source
	ind.ClassLinks = []model.ClassLink{{
		FolioLabel:   e.folioLabel,
		Relationship: "instance_of",
		Confidence:   e.confidence,
	}}
	ind.Lineage = []model.StageEvent{
		model.NewStageEvent("individual_extraction", "created",
			e.source+": "+e.name).WithConfidence(e.confidence),
	}
	return ind
}

const smallNumbers = `one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|` +
	`thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|` +
	`thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|million|billion|trillion`

const monthNames = `January|February|March|April|May|June|July|August|` +
	`September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec`

// DefaultExtractors returns the full structured-entity extractor set, NER
// extractors included.
func DefaultExtractors() []SpanProducer {
	return append(regexExtractors(), nerExtractors()...)
}

func regexExtractors() []SpanProducer {
	return []SpanProducer{
		&regexExtractor{
			name: "monetary_amount", folioLabel: "Monetary Amount", source: model.IndSourceRegex,
			confidence: 0.93, minLen: 2,
			pattern: regexp.MustCompile(`(?i)[$€£¥₹]\s*[\d,]+(?:\.\d+)?\s*(?:(?:hundred|thousand|million|billion|trillion|[KMBT])(?:\s+dollars?)?)?|` +
				`[\d,]+(?:\.\d+)?\s*(?:dollars?|cents?|USD|EUR|GBP|JPY)|` +
				`(?:(?:` + smallNumbers + `)[\s-]+)+(?:dollars?|cents?|pounds?|euros?)`),
		},
		&regexExtractor{
			name: "date", folioLabel: "Date", source: model.IndSourceRegex,
			confidence: 0.92,
			pattern: regexp.MustCompile(`(?i)(?:` + monthNames + `)\.?\s+\d{1,2},?\s+\d{4}|` +
				`\d{1,2}\s+(?:` + monthNames + `)\.?\s+\d{4}|` +
				`\d{1,2}/\d{1,2}/\d{2,4}|` +
				`\d{4}-\d{2}-\d{2}|` +
				`the\s+\d{1,2}(?:st|nd|rd|th)\s+day\s+of\s+(?:` + monthNames + `)\.?,?\s+\d{4}`),
		},
		&regexExtractor{
			name: "duration", folioLabel: "Duration", source: model.IndSourceRegex,
			confidence: 0.90,
			pattern: regexp.MustCompile(`(?i)(?:\d+(?:\.\d+)?|` + smallNumbers + `)` +
				`(?:\s*\(\d+\))?` +
				`\s+(?:second|minute|hour|day|week|month|year|decade)s?\b`),
		},
		&regexExtractor{
			name: "percentage", folioLabel: "Percentage", source: model.IndSourceRegex,
			confidence: 0.93,
			pattern: regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*%|` +
				`(?:` + smallNumbers + `)\s+percent\b|` +
				`\d+(?:\.\d+)?\s+basis\s+points?\b`),
		},
		&regexExtractor{
			name: "court", folioLabel: "Court", source: model.IndSourceRegex,
			confidence: 0.91,
			pattern: regexp.MustCompile(`Supreme Court of (?:the United States|[A-Z][a-z]+(?: [A-Z][a-z]+)*)|` +
				`United States (?:District|Circuit|Bankruptcy|Tax) Court|` +
				`(?:First|Second|Third|Fourth|Fifth|Sixth|Seventh|Eighth|Ninth|Tenth|Eleventh|D\.?C\.?) Circuit|` +
				`[SNWCE]\.D\.\s*[A-Z][a-z]+\.?|` +
				`Court of (?:Appeals?|Common Pleas|Claims|Chancery)(?:\s+(?:for|of)\s+[A-Z][\w\s]+)?|` +
				`(?:Superior|District|Circuit|Appellate|Family|Probate|Surrogate(?:'s)?|Municipal|Juvenile|Small Claims) Court(?:\s+(?:of|for)\s+[A-Z][\w\s]+)?`),
		},
		&regexExtractor{
			name: "definition", folioLabel: "Definition", source: model.IndSourceRegex,
			confidence: 0.88,
			pattern: regexp.MustCompile(`["“]([A-Z][\w\s]{1,60}?)["”]\s+` +
				`(?i:means?|shall mean|is defined as|refers to|shall refer to|has the meaning|hereby defined as)`),
		},
		&regexExtractor{
			name: "condition", folioLabel: "Condition", source: model.IndSourceRegex,
			confidence: 0.85,
			pattern: regexp.MustCompile(`(?i)\b(?:if|unless|provided\s+that|subject\s+to|` +
				`on\s+(?:the\s+)?condition\s+that|in\s+the\s+event\s+(?:that\s)?|` +
				`notwithstanding|except\s+(?:that|where|when|as)|contingent\s+upon)\b`),
		},
		&regexExtractor{
			name: "constraint", folioLabel: "Constraint", source: model.IndSourceRegex,
			confidence: 0.85,
			pattern: regexp.MustCompile(`(?i)\b(?:no\s+more\s+than|no\s+less\s+than|no\s+fewer\s+than|` +
				`at\s+least|at\s+most|not\s+to\s+exceed|` +
				`(?:shall|must|will)\s+not\s+exceed|` +
				`up\s+to\s+(?:and\s+including\s+)?\w|` +
				`a\s+maximum\s+of|a\s+minimum\s+of|` +
				`not\s+(?:more|less|fewer)\s+than)\b`),
		},
		&regexExtractor{
			name: "address", folioLabel: "Address", source: model.IndSourceRegex,
			confidence: 0.87, minLen: 10,
			pattern: regexp.MustCompile(`\d{1,5}\s+[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*` +
				`\s+(?:Street|St|Avenue|Ave|Boulevard|Blvd|Road|Rd|Drive|Dr|Lane|Ln|Way|Court|Ct|Place|Pl|Circle|Cir|Terrace|Ter|Pike|Highway|Hwy)\.?` +
				`(?:,?\s+(?:Suite|Ste|Apt|Unit|Floor|Fl|Room|Rm)\.?\s*\d+)?` +
				`(?:,?\s+[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)?` +
				`(?:,?\s+[A-Z]{2})?` +
				`(?:\s+\d{5}(?:-\d{4})?)?`),
		},
		&regexExtractor{
			name: "trademark", folioLabel: "Trademark", source: model.IndSourceRegex,
			confidence: 0.93,
			pattern:    regexp.MustCompile(`[\w]+(?:\s+[\w]+)*\s*[®™]`),
		},
		&regexExtractor{
			name: "copyright", folioLabel: "Copyright", source: model.IndSourceRegex,
			confidence: 0.93,
			pattern: regexp.MustCompile(`(?i)(?:©|Copyright\s*(?:\(c\)|©)?)\s*\d{4}(?:\s*[-–]\s*\d{4})?` +
				`(?:\s+[A-Z][\w\s,&.]+)?`),
		},
		&regexExtractor{
			// Company designators catch organizations the NER model misses.
			name: "organization", folioLabel: "Organization", source: model.IndSourceRegex,
			confidence: 0.80, minLen: 6,
			pattern: regexp.MustCompile(`[A-Z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*){0,5},?\s+` +
				`(?:Inc\.?|LLC|L\.L\.C\.|Corp\.?|Corporation|Company|Co\.|Ltd\.?|LLP|L\.P\.|PLC|N\.A\.|GmbH|S\.A\.)`),
		},
	}
}

// Runner executes every extractor over the full text, tolerating
// per-extractor panics from pathological inputs.
type Runner struct {
	extractors []SpanProducer
}

// NewRunner builds a runner; nil extractors means the default set.
func NewRunner(extractors []SpanProducer) *Runner {
	if extractors == nil {
		extractors = DefaultExtractors()
	}
	return &Runner{extractors: extractors}
}

// Extract runs all extractors and concatenates their output.
func (r *Runner) Extract(text string) []*model.Individual {
	var all []*model.Individual
	for _, ex := range r.extractors {
		all = append(all, r.runOne(ex, text)...)
	}
	logger.GetLogger().Info("entity extraction complete",
		"individuals", len(all), "extractors", len(r.extractors))
	return all
}

func (r *Runner) runOne(ex SpanProducer, text string) (out []*model.Individual) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.GetLogger().Warn("entity extractor panicked",
				"extractor", ex.Name(), "panic", rec)
			out = nil
		}
	}()
	return ex.Extract(text)
}
